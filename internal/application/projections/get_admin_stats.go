package projections

import (
	"cmp"
	"context"
	"slices"

	"scolarite/internal/domain/session"
	"scolarite/internal/domain/user"
)

// RoleCount is the number of users holding a role.
type RoleCount struct {
	Role  session.Role
	Count int
}

// GetAdminStatsResult carries the administrator statistics.
type GetAdminStatsResult struct {
	TotalUsers   int
	TotalCourses int
	Roles        []RoleCount
	Overall      Average
	PerCourse    []CourseAverage
}

// GetAdminStatsDeps holds dependencies for QueryAdminStats.
type GetAdminStatsDeps struct {
	API CollectionAPI
}

// QueryAdminStats computes user, role and grade statistics over every collection.
// PRE: deps.API carries an administrator token
// POST: roles are listed in session.Roles order, then any unknown role; a course
// without grades has an unavailable average
func QueryAdminStats(ctx context.Context, deps GetAdminStatsDeps) (GetAdminStatsResult, error) {
	c, err := fetchCollections(ctx, deps.API, "")
	if err != nil {
		return GetAdminStatsResult{}, err
	}

	counts := CountBy(c.users, func(u user.User) session.Role { return u.Role })
	roles := make([]RoleCount, 0, len(counts))
	for _, r := range session.Roles {
		if n := counts[r]; n > 0 {
			roles = append(roles, RoleCount{Role: r, Count: n})
			delete(counts, r)
		}
	}
	var extra []RoleCount
	for r, n := range counts {
		extra = append(extra, RoleCount{Role: r, Count: n})
	}
	slices.SortFunc(extra, func(a, b RoleCount) int { return cmp.Compare(a.Role, b.Role) })

	return GetAdminStatsResult{
		TotalUsers:   len(c.users),
		TotalCourses: len(c.courses),
		Roles:        append(roles, extra...),
		Overall:      Mean(gradeValues(c.grades)),
		PerCourse:    courseAverages(c.courses, c.grades),
	}, nil
}
