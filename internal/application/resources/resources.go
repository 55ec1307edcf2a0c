// Package resources adapts the backend collections to list bindings, one Source
// per screen, together with the columns each screen displays.
package resources

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"scolarite/internal/adapters/backend"
	"scolarite/internal/application/binding"
	"scolarite/internal/domain/course"
	"scolarite/internal/domain/grade"
	"scolarite/internal/domain/session"
	"scolarite/internal/domain/user"
)

// Screen names, used as binding registry keys.
const (
	ScreenUsers    = "users"
	ScreenStudents = "students"
	ScreenCourses  = "courses"
	ScreenGrades   = "grades"
)

// UserAPI is the backend surface needed by user listings.
type UserAPI interface {
	ListUsers(ctx context.Context, q backend.PageQuery, role session.Role) (backend.UserPage, error)
	DeleteUser(ctx context.Context, id string) error
}

// CourseAPI is the backend surface needed by course listings.
type CourseAPI interface {
	ListCourses(ctx context.Context) ([]course.Course, error)
	DeleteCourse(ctx context.Context, id string) error
}

// GradeAPI is the backend surface needed by grade listings.
type GradeAPI interface {
	ListGrades(ctx context.Context, q backend.PageQuery) (backend.GradePage, error)
	DeleteGrade(ctx context.Context, id string) error
}

// pageQuery converts binding params to a backend page request.
// The binding's PageIndex is 0-based, the wire page is 1-based.
func pageQuery[F comparable](p binding.Params[F], keyword string) backend.PageQuery {
	return backend.PageQuery{Page: p.PageIndex + 1, Limit: p.PageSize, Keyword: keyword}
}

// UserSource lists every user, filtered by role and keyword.
type UserSource struct {
	API UserAPI
}

// List fetches one page of users.
func (s UserSource) List(ctx context.Context, p binding.Params[user.Filter]) (binding.Page[user.User], error) {
	res, err := s.API.ListUsers(ctx, pageQuery(p, p.Filter.Keyword), p.Filter.Role)
	if err != nil {
		return binding.Page[user.User]{}, fmt.Errorf("list users: %w", err)
	}
	return binding.Page[user.User]{Items: res.Users, TotalCount: res.Pagination.TotalDocuments}, nil
}

// Delete removes a user.
func (s UserSource) Delete(ctx context.Context, id string) error {
	return s.API.DeleteUser(ctx, id)
}

// StudentSource lists students only. The filter's role is ignored.
type StudentSource struct {
	API UserAPI
}

// List fetches one page of students.
func (s StudentSource) List(ctx context.Context, p binding.Params[user.Filter]) (binding.Page[user.User], error) {
	res, err := s.API.ListUsers(ctx, pageQuery(p, p.Filter.Keyword), session.RoleStudent)
	if err != nil {
		return binding.Page[user.User]{}, fmt.Errorf("list students: %w", err)
	}
	return binding.Page[user.User]{Items: res.Users, TotalCount: res.Pagination.TotalDocuments}, nil
}

// Delete removes a student.
func (s StudentSource) Delete(ctx context.Context, id string) error {
	return s.API.DeleteUser(ctx, id)
}

// CourseSource lists courses. The backend returns them all at once, so the
// keyword and the paging are applied here.
type CourseSource struct {
	API CourseAPI
}

// List fetches every course and returns the requested page of the matches.
func (s CourseSource) List(ctx context.Context, p binding.Params[course.Filter]) (binding.Page[course.Course], error) {
	all, err := s.API.ListCourses(ctx)
	if err != nil {
		return binding.Page[course.Course]{}, fmt.Errorf("list courses: %w", err)
	}
	matched := make([]course.Course, 0, len(all))
	for _, c := range all {
		if p.Filter.Matches(c) {
			matched = append(matched, c)
		}
	}
	start := min(p.PageIndex*p.PageSize, len(matched))
	end := min(start+p.PageSize, len(matched))
	return binding.Page[course.Course]{Items: matched[start:end], TotalCount: len(matched)}, nil
}

// Delete removes a course.
func (s CourseSource) Delete(ctx context.Context, id string) error {
	return s.API.DeleteCourse(ctx, id)
}

// GradeSource lists grades filtered by keyword.
type GradeSource struct {
	API GradeAPI
}

// List fetches one page of grades.
func (s GradeSource) List(ctx context.Context, p binding.Params[grade.Filter]) (binding.Page[grade.Grade], error) {
	res, err := s.API.ListGrades(ctx, pageQuery(p, p.Filter.Keyword))
	if err != nil {
		return binding.Page[grade.Grade]{}, fmt.Errorf("list grades: %w", err)
	}
	return binding.Page[grade.Grade]{Items: res.Grades, TotalCount: res.Pagination.TotalDocuments}, nil
}

// Delete removes a grade.
func (s GradeSource) Delete(ctx context.Context, id string) error {
	return s.API.DeleteGrade(ctx, id)
}

// UserColumns are the columns of the user and student tables.
var UserColumns = []binding.Column[user.User]{
	{Header: "Prénom", Value: func(u user.User) string { return u.FirstName }},
	{Header: "Nom", Value: func(u user.User) string { return u.LastName }},
	{Header: "Email", Value: func(u user.User) string { return u.Email }},
	{Header: "Rôle", Value: func(u user.User) string { return string(u.Role) }},
}

// CourseColumns are the columns of the course table.
var CourseColumns = []binding.Column[course.Course]{
	{Header: "Nom du cours", Value: func(c course.Course) string { return c.Name }},
	{Header: "Code", Value: func(c course.Course) string { return c.Code }},
}

// GradeColumns are the columns of the grade table.
var GradeColumns = []binding.Column[grade.Grade]{
	{Header: "Étudiant", Value: func(g grade.Grade) string { return g.Student.Label() }},
	{Header: "Cours", Value: func(g grade.Grade) string { return g.Course.Label() }},
	{Header: "Note", Value: func(g grade.Grade) string { return g.Value.String() }},
	{Header: "Date", Value: func(g grade.Grade) string { return g.FormattedDate() }},
}

// ChoiceAPI is the backend surface needed to fill the grade form selects.
type ChoiceAPI interface {
	AllUsers(ctx context.Context, role session.Role) ([]user.User, error)
	AllCourses(ctx context.Context) ([]course.Course, error)
}

// GradeChoices are the options of the grade form.
type GradeChoices struct {
	Students []user.User
	Courses  []course.Course
}

// LoadGradeChoices fetches students and courses in parallel.
func LoadGradeChoices(ctx context.Context, api ChoiceAPI) (GradeChoices, error) {
	var out GradeChoices
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Students, err = api.AllUsers(ctx, session.RoleStudent)
		return err
	})
	g.Go(func() error {
		var err error
		out.Courses, err = api.AllCourses(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return GradeChoices{}, fmt.Errorf("load grade choices: %w", err)
	}
	return out, nil
}
