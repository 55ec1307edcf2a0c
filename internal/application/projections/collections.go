package projections

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"scolarite/internal/domain/course"
	"scolarite/internal/domain/grade"
	"scolarite/internal/domain/session"
	"scolarite/internal/domain/user"
)

type collections struct {
	users   []user.User
	courses []course.Course
	grades  []grade.Grade
}

// fetchCollections reads users (restricted to role when set), courses and grades in parallel.
func fetchCollections(ctx context.Context, api CollectionAPI, role session.Role) (collections, error) {
	var c collections
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		c.users, err = api.AllUsers(ctx, role)
		return err
	})
	g.Go(func() error {
		var err error
		c.courses, err = api.AllCourses(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		c.grades, err = api.AllGrades(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return collections{}, fmt.Errorf("fetch collections: %w", err)
	}
	return c, nil
}

// CourseAverage is the mean grade of one course.
type CourseAverage struct {
	Course  course.Course
	Average Average
	Percent int // bar width, share of the maximum score
}

func courseAverages(courses []course.Course, grades []grade.Grade) []CourseAverage {
	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	means := MeanBy(grades, ids,
		func(g grade.Grade) string { return g.Course.ID },
		func(g grade.Grade) float64 { return float64(g.Value) })

	out := make([]CourseAverage, len(courses))
	for i, c := range courses {
		avg := means[c.ID]
		out[i] = CourseAverage{Course: c, Average: avg, Percent: avg.Percent(grade.MaxScore)}
	}
	return out
}

func gradeValues(grades []grade.Grade) []float64 {
	out := make([]float64, len(grades))
	for i, g := range grades {
		out[i] = float64(g.Value)
	}
	return out
}
