package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/SatVerseX/mockmate-api/app/models"
)

var errInvalidTransition = errors.New("interview not in expected status")

const interviewColumns = `
	id, user_id, status, config, started_at, ended_at, duration_seconds,
	warning_count, disqualify_reason, metrics, feedback, created_at, updated_at
`

func createInterview(ctx context.Context, userID string, cfg models.InterviewConfig) (models.Interview, error) {
	if db == nil {
		return models.Interview{}, errDBNotInitialized
	}

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return models.Interview{}, fmt.Errorf("marshal config: %w", err)
	}

	id := uuid.NewString()
	row := db.QueryRowContext(ctx, `
		INSERT INTO interviews (id, user_id, status, config)
		VALUES ($1, $2, $3, $4)
		RETURNING `+interviewColumns+`;
	`, id, userID, models.InterviewCreated, configJSON)
	return scanInterview(row)
}

func scanInterview(row rowScanner) (models.Interview, error) {
	var iv models.Interview
	var configJSON []byte
	err := row.Scan(
		&iv.ID,
		&iv.UserID,
		&iv.Status,
		&configJSON,
		&iv.StartedAt,
		&iv.EndedAt,
		&iv.DurationSeconds,
		&iv.WarningCount,
		&iv.DisqualifyReason,
		&iv.Metrics,
		&iv.Feedback,
		&iv.CreatedAt,
		&iv.UpdatedAt,
	)
	if err != nil {
		return models.Interview{}, err
	}
	if err := json.Unmarshal(configJSON, &iv.Config); err != nil {
		return models.Interview{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return iv, nil
}

// getInterview loads a row scoped to its owner.
func getInterview(ctx context.Context, id, userID string) (models.Interview, error) {
	if db == nil {
		return models.Interview{}, sql.ErrNoRows
	}
	row := db.QueryRowContext(ctx, `
		SELECT `+interviewColumns+`
		FROM interviews
		WHERE id = $1 AND user_id = $2;
	`, id, userID)
	return scanInterview(row)
}

// getInterviewAny loads a row without owner scoping, for the feedback worker.
func getInterviewAny(ctx context.Context, id string) (models.Interview, error) {
	if db == nil {
		return models.Interview{}, sql.ErrNoRows
	}
	row := db.QueryRowContext(ctx, `
		SELECT `+interviewColumns+`
		FROM interviews
		WHERE id = $1;
	`, id)
	return scanInterview(row)
}

// listInterviews reads a page of the user's interviews using LIMIT/OFFSET,
// newest first.
func listInterviews(ctx context.Context, userID string, limit, offset int) ([]models.Interview, error) {
	if db == nil {
		return []models.Interview{}, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+interviewColumns+`
		FROM interviews
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
		OFFSET $3;
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func countInterviews(ctx context.Context, userID string) (int, error) {
	if db == nil {
		return 0, nil
	}
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM interviews WHERE user_id = $1;
	`, userID).Scan(&count)
	return count, err
}

// markInterviewLive transitions created -> live and stamps started_at.
func markInterviewLive(ctx context.Context, id string) error {
	if db == nil {
		return nil
	}
	res, err := db.ExecContext(ctx, `
		UPDATE interviews
		SET status = $1, started_at = now(), updated_at = now()
		WHERE id = $2 AND status = $3;
	`, models.InterviewLive, id, models.InterviewCreated)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return errInvalidTransition
	}
	return nil
}

// finishInterview transitions a non-terminal row to its final status and
// records session totals. disqualifyReason is only stored for disqualified.
func finishInterview(ctx context.Context, id, status string, durationSeconds, warningCount int, disqualifyReason string) error {
	if db == nil {
		return nil
	}
	res, err := db.ExecContext(ctx, `
		UPDATE interviews
		SET status            = $1,
		    ended_at          = now(),
		    duration_seconds  = $2,
		    warning_count     = $3,
		    disqualify_reason = $4,
		    updated_at        = now()
		WHERE id = $5 AND status IN ($6, $7);
	`,
		status,
		durationSeconds,
		warningCount,
		nullIfEmpty(disqualifyReason),
		id,
		models.InterviewCreated,
		models.InterviewLive,
	)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return errInvalidTransition
	}
	return nil
}

// saveTranscript bulk-writes transcript lines through a temp staging table.
// Re-finalizing a session never duplicates lines.
func saveTranscript(ctx context.Context, interviewID string, lines []models.TranscriptLine) error {
	if db == nil {
		return nil
	}
	if len(lines) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		CREATE TEMP TABLE tmp_transcript (
			interview_id UUID,
			seq          INT,
			speaker      TEXT,
			content      TEXT,
			spoken_at    TIMESTAMPTZ
		) ON COMMIT DROP;
	`)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(
		"tmp_transcript",
		"interview_id",
		"seq",
		"speaker",
		"content",
		"spoken_at",
	))
	if err != nil {
		return err
	}

	for _, line := range lines {
		spokenAt := line.SpokenAt
		if spokenAt.IsZero() {
			spokenAt = time.Now().UTC()
		}
		if _, err := stmt.Exec(interviewID, line.Seq, line.Speaker, line.Content, spokenAt); err != nil {
			return err
		}
	}

	if _, err := stmt.Exec(); err != nil {
		return err
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO interview_transcripts (interview_id, seq, speaker, content, spoken_at)
		SELECT interview_id, seq, speaker, content, spoken_at
		FROM tmp_transcript
		ON CONFLICT (interview_id, seq) DO NOTHING;
	`)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func loadTranscript(ctx context.Context, interviewID string) ([]models.TranscriptLine, error) {
	if db == nil {
		return []models.TranscriptLine{}, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT interview_id, seq, speaker, content, spoken_at
		FROM interview_transcripts
		WHERE interview_id = $1
		ORDER BY seq ASC;
	`, interviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TranscriptLine
	for rows.Next() {
		var line models.TranscriptLine
		if err := rows.Scan(&line.InterviewID, &line.Seq, &line.Speaker, &line.Content, &line.SpokenAt); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// setInterviewResults stores the worker's computed metrics and AI feedback.
func setInterviewResults(ctx context.Context, id string, metrics, feedback json.RawMessage) error {
	if db == nil {
		return errDBNotInitialized
	}
	_, err := db.ExecContext(ctx, `
		UPDATE interviews
		SET metrics = $1, feedback = $2, updated_at = now()
		WHERE id = $3;
	`, []byte(metrics), []byte(feedback), id)
	return err
}
