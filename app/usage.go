// Package app enforces weekly interview limits for authenticated users.
package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/SatVerseX/mockmate-api/app/models"
)

type quotaError struct {
	Limit int
	Used  int
}

func (e quotaError) Error() string {
	return "weekly interview quota exceeded"
}

func weekStartUTC(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	daysSinceMonday := weekday - 1
	start := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}

// enforceInterviewQuota reserves one interview slot under the given plan.
// The usage window resets each Monday 00:00 UTC; plans with a nil
// InterviewLimit are unlimited but still have usage recorded.
func enforceInterviewQuota(ctx context.Context, userID string, plan models.Plan) (models.Profile, error) {
	if db == nil {
		return models.Profile{}, nil
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return models.Profile{}, err
	}
	defer tx.Rollback()

	profile, err := getProfileForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if err := insertDefaultProfile(ctx, tx, userID); err != nil {
				return models.Profile{}, err
			}
			profile, err = getProfileForUpdate(ctx, tx, userID)
		}
		if err != nil {
			return models.Profile{}, err
		}
	}

	now := time.Now()
	currentWeekStart := weekStartUTC(now)
	if profile.UsagePeriodStart.Before(currentWeekStart) {
		profile.InterviewsUsed = 0
		profile.UsagePeriodStart = currentWeekStart
	}

	if plan.InterviewLimit != nil && profile.InterviewsUsed+1 > *plan.InterviewLimit {
		return profile, quotaError{Limit: *plan.InterviewLimit, Used: profile.InterviewsUsed}
	}
	profile.InterviewsUsed++

	if err := updateProfileUsage(ctx, tx, userID, profile.InterviewsUsed, profile.UsagePeriodStart); err != nil {
		return models.Profile{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Profile{}, err
	}

	return profile, nil
}

func getProfileForUpdate(ctx context.Context, tx *sql.Tx, userID string) (models.Profile, error) {
	var profile models.Profile
	err := tx.QueryRowContext(ctx, `
		SELECT interviews_used, usage_period_start
		FROM profiles
		WHERE id = $1
		FOR UPDATE;
	`, userID).Scan(&profile.InterviewsUsed, &profile.UsagePeriodStart)
	if err != nil {
		return models.Profile{}, err
	}
	profile.ID = userID
	return profile, nil
}

func insertDefaultProfile(ctx context.Context, tx *sql.Tx, userID string) error {
	now := weekStartUTC(time.Now())
	_, err := tx.ExecContext(ctx, `
		INSERT INTO profiles (id, interviews_used, usage_period_start)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING;
	`, userID, 0, now)
	return err
}

func updateProfileUsage(ctx context.Context, tx *sql.Tx, userID string, used int, start time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE profiles
		SET interviews_used = $1, usage_period_start = $2, updated_at = now()
		WHERE id = $3;
	`, used, start, userID)
	return err
}
