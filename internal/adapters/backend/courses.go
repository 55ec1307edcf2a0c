package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"scolarite/internal/domain/course"
)

// courseList decodes either a bare array or {"courses": [...]}.
type courseList []course.Course

func (l *courseList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		return json.Unmarshal(b, (*[]course.Course)(l))
	}
	var wrapped struct {
		Courses []course.Course `json:"courses"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	*l = wrapped.Courses
	return nil
}

// ListCourses fetches every course. The backend does not page courses.
func (c *Client) ListCourses(ctx context.Context) ([]course.Course, error) {
	var out courseList
	if err := c.do(ctx, call{method: http.MethodGet, path: "/course"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AllCourses is ListCourses; it exists for symmetry with the other collections.
func (c *Client) AllCourses(ctx context.Context) ([]course.Course, error) {
	return c.ListCourses(ctx)
}

// CreateCourse adds a course.
func (c *Client) CreateCourse(ctx context.Context, in course.Input) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/course", body: in}, nil)
}

// UpdateCourse changes a course.
func (c *Client) UpdateCourse(ctx context.Context, id string, in course.Input) error {
	return c.do(ctx, call{method: http.MethodPut, path: "/course/" + pathID(id), route: "/course/:id", body: in}, nil)
}

// DeleteCourse removes a course.
func (c *Client) DeleteCourse(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: "/course/" + pathID(id), route: "/course/:id"}, nil)
}
