package projections

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"scolarite/internal/domain/grade"
)

// AllPeriods selects every grade regardless of semester.
const AllPeriods = "all"

var periodKey = regexp.MustCompile(`^[0-9]{4}-S[12]$`)

// ValidPeriod reports whether p is a semester key, AllPeriods, or empty.
func ValidPeriod(p string) bool {
	return p == "" || p == AllPeriods || periodKey.MatchString(p)
}

// ErrStudentRequired is returned when no student ID is given.
var ErrStudentRequired = errors.New("student id is required")

// GetStudentGradesQuery carries the student and the selected semester.
type GetStudentGradesQuery struct {
	StudentID string
	Period    string // YYYY-S1, YYYY-S2 or AllPeriods; empty means AllPeriods
}

// GetStudentGradesResult carries a student's grades for one period.
type GetStudentGradesResult struct {
	Period  string
	Periods []string // every semester with at least one grade, ascending
	Grades  []grade.Grade
	Mean    Average
}

// GetStudentGradesDeps holds dependencies for QueryStudentGrades.
type GetStudentGradesDeps struct {
	API StudentGradesAPI
}

// QueryStudentGrades reads a student's grades and filters them by semester.
// PRE: query.StudentID is non-empty
// POST: Mean covers exactly the returned grades and is unavailable when there are none
func QueryStudentGrades(ctx context.Context, query GetStudentGradesQuery, deps GetStudentGradesDeps) (GetStudentGradesResult, error) {
	if query.StudentID == "" {
		return GetStudentGradesResult{}, ErrStudentRequired
	}
	period := query.Period
	if period == "" {
		period = AllPeriods
	}

	all, err := deps.API.StudentGrades(ctx, query.StudentID)
	if err != nil {
		return GetStudentGradesResult{}, fmt.Errorf("student grades: %w", err)
	}

	var periods []string
	for _, g := range all {
		if g.Date.IsZero() {
			continue
		}
		if p := g.Period(); !slices.Contains(periods, p) {
			periods = append(periods, p)
		}
	}
	slices.Sort(periods)

	filtered := all
	if period != AllPeriods {
		filtered = nil
		for _, g := range all {
			if !g.Date.IsZero() && g.Period() == period {
				filtered = append(filtered, g)
			}
		}
	}

	return GetStudentGradesResult{
		Period:  period,
		Periods: periods,
		Grades:  filtered,
		Mean:    Mean(gradeValues(filtered)),
	}, nil
}

// CSVFilename returns the export file name for the selected period.
func (r GetStudentGradesResult) CSVFilename() string {
	return "notes_" + r.Period + ".csv"
}

// CSVRecords returns the export rows, header first.
func (r GetStudentGradesResult) CSVRecords() [][]string {
	out := make([][]string, 0, len(r.Grades)+1)
	out = append(out, []string{"Cours", "Note"})
	for _, g := range r.Grades {
		name := g.Course.Name
		if name == "" {
			name = "Inconnu"
		}
		out = append(out, []string{name, strconv.FormatFloat(float64(g.Value), 'f', -1, 64)})
	}
	return out
}
