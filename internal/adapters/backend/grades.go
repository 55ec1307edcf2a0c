package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"scolarite/internal/domain/grade"
)

// GradePage is one page of grades.
type GradePage struct {
	Grades     []grade.Grade `json:"grades"`
	Pagination Pagination    `json:"pagination"`
}

// ListGrades fetches one page of grades.
func (c *Client) ListGrades(ctx context.Context, q PageQuery) (GradePage, error) {
	var out GradePage
	err := c.do(ctx, call{method: http.MethodGet, path: "/grade", query: q.values()}, &out)
	return out, err
}

// AllGrades reads every grade.
func (c *Client) AllGrades(ctx context.Context) ([]grade.Grade, error) {
	return collect(ctx, func(ctx context.Context, page int) ([]grade.Grade, int, error) {
		p, err := c.ListGrades(ctx, PageQuery{Page: page, Limit: AllPageLimit})
		return p.Grades, p.Pagination.TotalDocuments, err
	})
}

// CreateGrade adds a grade. The backend takes a batch, so one grade is sent as a one-element array.
func (c *Client) CreateGrade(ctx context.Context, p grade.Payload) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/grade", body: []grade.Payload{p}}, nil)
}

// UpdateGrade changes a grade.
func (c *Client) UpdateGrade(ctx context.Context, id string, p grade.Payload) error {
	return c.do(ctx, call{method: http.MethodPut, path: "/grade/" + pathID(id), route: "/grade/:id", body: p}, nil)
}

// DeleteGrade removes a grade.
func (c *Client) DeleteGrade(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: "/grade/" + pathID(id), route: "/grade/:id"}, nil)
}

// gradeList decodes either a bare array or {"grades": [...]}.
type gradeList []grade.Grade

func (l *gradeList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		return json.Unmarshal(b, (*[]grade.Grade)(l))
	}
	var wrapped struct {
		Grades []grade.Grade `json:"grades"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	*l = wrapped.Grades
	return nil
}

// StudentGrades fetches every grade of one student.
func (c *Client) StudentGrades(ctx context.Context, studentID string) ([]grade.Grade, error) {
	var out gradeList
	err := c.do(ctx, call{method: http.MethodGet, path: "/grade/student/" + pathID(studentID), route: "/grade/student/:id"}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SendBulletin asks the backend to email a student's grade summary for a period key or "all".
func (c *Client) SendBulletin(ctx context.Context, userID, period string) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/grade/send-bulletin",
		body:   map[string]string{"userId": userID, "filter": period},
	}, nil)
}
