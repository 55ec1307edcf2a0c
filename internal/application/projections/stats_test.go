package projections

import (
	"context"
	"errors"
	"testing"
	"time"

	"scolarite/internal/domain/course"
	"scolarite/internal/domain/grade"
	"scolarite/internal/domain/session"
	"scolarite/internal/domain/user"
)

type mockCollectionAPI struct {
	users     []user.User
	courses   []course.Course
	grades    []grade.Grade
	roleAsked session.Role
	err       error
}

func (m *mockCollectionAPI) AllUsers(_ context.Context, role session.Role) ([]user.User, error) {
	m.roleAsked = role
	if m.err != nil {
		return nil, m.err
	}
	var out []user.User
	for _, u := range m.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockCollectionAPI) AllCourses(context.Context) ([]course.Course, error) {
	return m.courses, nil
}

func (m *mockCollectionAPI) AllGrades(context.Context) ([]grade.Grade, error) {
	return m.grades, nil
}

func seedCollections() *mockCollectionAPI {
	return &mockCollectionAPI{
		users: []user.User{
			{ID: "a", Role: session.RoleAdmin},
			{ID: "s1", Role: session.RoleStudent},
			{ID: "s2", Role: session.RoleStudent},
			{ID: "r", Role: session.RoleScolarite},
		},
		courses: []course.Course{{ID: "m", Name: "Maths"}, {ID: "h", Name: "Histoire"}},
		grades: []grade.Grade{
			{Course: grade.Ref{ID: "m"}, Value: 10},
			{Course: grade.Ref{ID: "m"}, Value: 14},
		},
	}
}

// TestQueryAdminStats verifies totals, role order and the unavailable course average.
func TestQueryAdminStats(t *testing.T) {
	api := seedCollections()
	res, err := QueryAdminStats(context.Background(), GetAdminStatsDeps{API: api})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalUsers != 4 || res.TotalCourses != 2 {
		t.Errorf("totals = %d users, %d courses", res.TotalUsers, res.TotalCourses)
	}
	if api.roleAsked != "" {
		t.Errorf("admin stats should read every role, asked %q", api.roleAsked)
	}
	want := []RoleCount{{session.RoleAdmin, 1}, {session.RoleScolarite, 1}, {session.RoleStudent, 2}}
	for i, w := range want {
		if res.Roles[i] != w {
			t.Errorf("Roles[%d] = %+v, want %+v", i, res.Roles[i], w)
		}
	}
	if res.Overall.String() != "12.00" {
		t.Errorf("Overall = %s", res.Overall)
	}
	if res.PerCourse[0].Average.Value != 12 || res.PerCourse[0].Percent != 60 {
		t.Errorf("Maths = %+v", res.PerCourse[0])
	}
	if res.PerCourse[1].Average.Available() || res.PerCourse[1].Average.String() != "N/A" {
		t.Errorf("Histoire has no grades and must be unavailable, got %+v", res.PerCourse[1])
	}
}

// TestQueryAdminStats_NoGrades verifies an empty grade set gives an unavailable overall mean.
func TestQueryAdminStats_NoGrades(t *testing.T) {
	api := seedCollections()
	api.grades = nil
	res, err := QueryAdminStats(context.Background(), GetAdminStatsDeps{API: api})
	if err != nil {
		t.Fatal(err)
	}
	if res.Overall.Available() {
		t.Errorf("Overall = %+v", res.Overall)
	}
}

// TestQueryScolariteStats verifies only students are counted.
func TestQueryScolariteStats(t *testing.T) {
	api := seedCollections()
	res, err := QueryScolariteStats(context.Background(), GetScolariteStatsDeps{API: api})
	if err != nil {
		t.Fatal(err)
	}
	if api.roleAsked != session.RoleStudent {
		t.Errorf("role asked = %q", api.roleAsked)
	}
	if res.Students != 2 || res.Courses != 2 || res.Grades != 2 {
		t.Errorf("res = %+v", res)
	}
}

// TestQueryScolariteStats_Error verifies a failed collection fails the whole query.
func TestQueryScolariteStats_Error(t *testing.T) {
	api := seedCollections()
	api.err = errors.New("down")
	if _, err := QueryScolariteStats(context.Background(), GetScolariteStatsDeps{API: api}); err == nil {
		t.Error("expected error")
	}
}

type mockStudentGradesAPI struct {
	grades []grade.Grade
}

func (m mockStudentGradesAPI) StudentGrades(context.Context, string) ([]grade.Grade, error) {
	return m.grades, nil
}

func day(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

// TestQueryStudentGrades verifies semester periods, filtering, mean and CSV export.
func TestQueryStudentGrades(t *testing.T) {
	deps := GetStudentGradesDeps{API: mockStudentGradesAPI{grades: []grade.Grade{
		{Course: grade.Ref{Name: "Maths"}, Value: 12, Date: day("2025-02-10")},
		{Course: grade.Ref{Name: "Histoire"}, Value: 15.5, Date: day("2025-09-01")},
		{Value: 8, Date: day("2024-11-20")},
		{Course: grade.Ref{Name: "Sport"}, Value: 10},
	}}}

	res, err := QueryStudentGrades(context.Background(), GetStudentGradesQuery{StudentID: "s1"}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if res.Period != AllPeriods || len(res.Grades) != 4 {
		t.Errorf("all: period=%q grades=%d", res.Period, len(res.Grades))
	}
	wantPeriods := []string{"2024-S2", "2025-S1", "2025-S2"}
	if len(res.Periods) != len(wantPeriods) {
		t.Fatalf("Periods = %v", res.Periods)
	}
	for i, p := range wantPeriods {
		if res.Periods[i] != p {
			t.Errorf("Periods = %v", res.Periods)
			break
		}
	}
	if res.CSVFilename() != "notes_all.csv" {
		t.Errorf("filename = %q", res.CSVFilename())
	}
	rows := res.CSVRecords()
	if rows[0][0] != "Cours" || rows[0][1] != "Note" || rows[2][1] != "15.5" || rows[3][0] != "Inconnu" {
		t.Errorf("csv = %v", rows)
	}

	res, _ = QueryStudentGrades(context.Background(), GetStudentGradesQuery{StudentID: "s1", Period: "2025-S1"}, deps)
	if len(res.Grades) != 1 || res.Mean.String() != "12.00" || res.CSVFilename() != "notes_2025-S1.csv" {
		t.Errorf("S1: %+v", res)
	}

	res, _ = QueryStudentGrades(context.Background(), GetStudentGradesQuery{StudentID: "s1", Period: "1-S1"}, deps)
	if len(res.Grades) != 0 {
		t.Errorf("undated grade matched a period: %+v", res.Grades)
	}

	res, _ = QueryStudentGrades(context.Background(), GetStudentGradesQuery{StudentID: "s1", Period: "2030-S1"}, deps)
	if len(res.Grades) != 0 || res.Mean.Available() {
		t.Errorf("empty period: %+v", res)
	}
}

// TestQueryStudentGrades_RequiresStudent verifies the student ID precondition.
func TestQueryStudentGrades_RequiresStudent(t *testing.T) {
	_, err := QueryStudentGrades(context.Background(), GetStudentGradesQuery{}, GetStudentGradesDeps{})
	if !errors.Is(err, ErrStudentRequired) {
		t.Errorf("err = %v", err)
	}
}
