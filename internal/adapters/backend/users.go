package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"scolarite/internal/domain/session"
	"scolarite/internal/domain/user"
)

// Pagination is the paging block of listing responses.
type Pagination struct {
	TotalDocuments int `json:"totalDocuments"`
	CurrentPage    int `json:"currentPage,omitempty"`
	TotalPages     int `json:"totalPages,omitempty"`
	Limit          int `json:"limit,omitempty"`
}

// PageQuery is a backend page request. Page is 1-based.
type PageQuery struct {
	Page    int
	Limit   int
	Keyword string
}

func (q PageQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Keyword != "" {
		v.Set("keyword", q.Keyword)
	}
	return v
}

// UserPage is one page of users.
type UserPage struct {
	Users      []user.User `json:"users"`
	Pagination Pagination  `json:"pagination"`
}

// ListUsers fetches one page of users, optionally restricted to a role.
func (c *Client) ListUsers(ctx context.Context, q PageQuery, role session.Role) (UserPage, error) {
	v := q.values()
	if role != "" {
		v.Set("role", string(role))
	}
	var out UserPage
	err := c.do(ctx, call{method: http.MethodGet, path: "/user", query: v}, &out)
	return out, err
}

// UpdateUser changes a user's profile and role.
func (c *Client) UpdateUser(ctx context.Context, id string, ch user.Changes) error {
	return c.do(ctx, call{method: http.MethodPut, path: "/user/" + pathID(id), route: "/user/:id", body: ch}, nil)
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: "/user/" + pathID(id), route: "/user/:id"}, nil)
}

// AllUsers reads every user with the given role ("" for all roles).
func (c *Client) AllUsers(ctx context.Context, role session.Role) ([]user.User, error) {
	return collect(ctx, func(ctx context.Context, page int) ([]user.User, int, error) {
		p, err := c.ListUsers(ctx, PageQuery{Page: page, Limit: AllPageLimit}, role)
		return p.Users, p.Pagination.TotalDocuments, err
	})
}

// AllPageLimit is the page size used when reading whole collections.
const AllPageLimit = 100

// maxPages stops a collection read against a backend that never reports a total.
const maxPages = 1000

// collect pages through a listing until total rows are read or a page comes back empty.
func collect[T any](ctx context.Context, fetch func(ctx context.Context, page int) ([]T, int, error)) ([]T, error) {
	var all []T
	for page := 1; page <= maxPages; page++ {
		items, total, err := fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) == 0 || len(all) >= total {
			break
		}
	}
	return all, nil
}
