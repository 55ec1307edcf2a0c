package projections

import (
	"context"

	"scolarite/internal/domain/course"
	"scolarite/internal/domain/grade"
	"scolarite/internal/domain/session"
	"scolarite/internal/domain/user"
)

// CollectionAPI reads whole backend collections.
type CollectionAPI interface {
	AllUsers(ctx context.Context, role session.Role) ([]user.User, error)
	AllCourses(ctx context.Context) ([]course.Course, error)
	AllGrades(ctx context.Context) ([]grade.Grade, error)
}

// StudentGradesAPI reads the grades of one student.
type StudentGradesAPI interface {
	StudentGrades(ctx context.Context, studentID string) ([]grade.Grade, error)
}
