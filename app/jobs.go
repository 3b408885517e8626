package app

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/SatVerseX/mockmate-api/app/models"
)

// createFeedbackJob inserts the queued job row for an interview, returning the
// existing row when one was already created for it.
func createFeedbackJob(ctx context.Context, interviewID string) (models.JobStatus, error) {
	if db == nil {
		return models.JobStatus{}, errDBNotInitialized
	}

	var js models.JobStatus
	var lastError sql.NullString
	err := db.QueryRowContext(ctx, `
		INSERT INTO feedback_jobs (id, interview_id, status, attempts)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (interview_id) DO UPDATE SET updated_at = now()
		RETURNING id, interview_id, status, attempts, last_error;
	`, uuid.NewString(), interviewID, models.JobQueued).Scan(
		&js.ID, &js.InterviewID, &js.Status, &js.Attempts, &lastError,
	)
	if err != nil {
		return models.JobStatus{}, err
	}
	js.LastError = lastError.String
	return js, nil
}

// findFeedbackJob fetches a job scoped to the interview owner.
func findFeedbackJob(ctx context.Context, jobID, userID string) (models.JobStatus, error) {
	if db == nil {
		return models.JobStatus{}, sql.ErrNoRows
	}

	var js models.JobStatus
	var lastError sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT j.id, j.interview_id, j.status, j.attempts, j.last_error
		FROM feedback_jobs j
		JOIN interviews i ON i.id = j.interview_id
		WHERE j.id = $1 AND i.user_id = $2;
	`, jobID, userID).Scan(&js.ID, &js.InterviewID, &js.Status, &js.Attempts, &lastError)
	if err != nil {
		return models.JobStatus{}, err
	}
	js.LastError = lastError.String
	return js, nil
}

// markJobRunning flips queued/failed -> running and counts the attempt. The
// returned value is the attempt number that just started.
func markJobRunning(ctx context.Context, jobID string) (int, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}
	var attempts int
	err := db.QueryRowContext(ctx, `
		UPDATE feedback_jobs
		SET status = $1, attempts = attempts + 1, updated_at = now()
		WHERE id = $2
		RETURNING attempts;
	`, models.JobRunning, jobID).Scan(&attempts)
	return attempts, err
}

func completeFeedbackJob(ctx context.Context, jobID string) error {
	if db == nil {
		return errDBNotInitialized
	}
	_, err := db.ExecContext(ctx, `
		UPDATE feedback_jobs
		SET status = $1, last_error = NULL, updated_at = now()
		WHERE id = $2;
	`, models.JobCompleted, jobID)
	return err
}

// failFeedbackJob records the error; the row goes back to queued unless the
// failure is final.
func failFeedbackJob(ctx context.Context, jobID, lastError string, final bool) error {
	if db == nil {
		return errDBNotInitialized
	}
	status := models.JobQueued
	if final {
		status = models.JobFailed
	}
	_, err := db.ExecContext(ctx, `
		UPDATE feedback_jobs
		SET status = $1, last_error = $2, updated_at = now()
		WHERE id = $3;
	`, status, nullIfEmpty(lastError), jobID)
	return err
}
