package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
)

// BulletinAPI asks the backend to email a grade summary.
type BulletinAPI interface {
	SendBulletin(ctx context.Context, userID, period string) error
}

// SendBulletinInput carries the student and the selected period.
type SendBulletinInput struct {
	StudentID string
	Period    string // period key or "all"
}

// SendBulletinDeps holds dependencies for SendBulletin.
type SendBulletinDeps struct {
	API BulletinAPI
}

// ExecuteSendBulletin requests the grade summary of a student for a period.
// PRE: StudentID is the signed-in student
func ExecuteSendBulletin(ctx context.Context, input SendBulletinInput, deps SendBulletinDeps) error {
	period := input.Period
	if period == "" {
		period = "all"
	}
	if err := deps.API.SendBulletin(ctx, input.StudentID, period); err != nil {
		return fmt.Errorf("send bulletin: %w", err)
	}
	slog.Info("bulletin_requested", "student", input.StudentID, "period", period)
	return nil
}
