package projections

import (
	"context"

	"scolarite/internal/domain/session"
)

// GetScolariteStatsResult carries the registrar statistics.
type GetScolariteStatsResult struct {
	Students  int
	Courses   int
	Grades    int
	PerCourse []CourseAverage
}

// GetScolariteStatsDeps holds dependencies for QueryScolariteStats.
type GetScolariteStatsDeps struct {
	API CollectionAPI
}

// QueryScolariteStats counts students, courses and grades and averages grades per course.
// POST: a course without grades has an unavailable average
func QueryScolariteStats(ctx context.Context, deps GetScolariteStatsDeps) (GetScolariteStatsResult, error) {
	c, err := fetchCollections(ctx, deps.API, session.RoleStudent)
	if err != nil {
		return GetScolariteStatsResult{}, err
	}
	return GetScolariteStatsResult{
		Students:  len(c.users),
		Courses:   len(c.courses),
		Grades:    len(c.grades),
		PerCourse: courseAverages(c.courses, c.grades),
	}, nil
}
