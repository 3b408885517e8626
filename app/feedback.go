package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/SatVerseX/mockmate-api/app/models"
	"github.com/SatVerseX/mockmate-api/gemini"
)

const maxFeedbackAttempts = 3

const feedbackSystemPrompt = `You are an expert interview coach reviewing a mock interview transcript.
Respond with a single JSON object in exactly this shape:
{
  "overall_score": <integer 0-100>,
  "communication": <integer 0-100>,
  "technical_depth": <integer 0-100>,
  "confidence": <integer 0-100>,
  "problem_solving": <integer 0-100>,
  "strengths": ["..."],
  "improvements": ["..."],
  "question_notes": [{"question": "...", "note": "..."}],
  "verdict": "<one short paragraph>"
}
Score against the stated role and difficulty. Be specific and cite moments from
the transcript. For a behavioral interview judge technical_depth on the rigor of
the examples given. Do not add any other keys or prose.`

// ProcessFeedbackJob runs one queued review end to end. A returned error means
// the queue message should stay visible for a retry; nil means it can be
// deleted, including permanent failures that were recorded on the job row.
func ProcessFeedbackJob(ctx context.Context, client *gemini.Client, msg models.FeedbackJobMessage) error {
	start := time.Now()
	log.Printf("Processing feedback job: job_id=%s interview=%s", msg.JobID, msg.InterviewID)

	attempt, err := markJobRunning(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("feedback job %s not found; dropping message", msg.JobID)
			return nil
		}
		return err
	}
	if attempt > maxFeedbackAttempts {
		log.Printf("feedback job %s exceeded %d attempts; giving up", msg.JobID, maxFeedbackAttempts)
		return failFeedbackJob(ctx, msg.JobID, "attempt limit reached", true)
	}

	iv, err := getInterviewAny(ctx, msg.InterviewID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return failFeedbackJob(ctx, msg.JobID, "interview not found", true)
		}
		recordJobFailure(ctx, msg.JobID, err)
		return err
	}

	lines, err := loadTranscript(ctx, iv.ID)
	if err != nil {
		recordJobFailure(ctx, msg.JobID, err)
		return err
	}
	if len(lines) == 0 {
		return failFeedbackJob(ctx, msg.JobID, "transcript empty", true)
	}

	metrics := ComputeInterviewMetrics(lines, iv.DurationSeconds, iv.WarningCount)

	feedback, err := generateFeedback(ctx, client, iv, lines, metrics)
	if err != nil {
		log.Printf("feedback generation failed job=%s: %v", msg.JobID, err)
		recordJobFailure(ctx, msg.JobID, err)
		return err
	}

	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return failFeedbackJob(ctx, msg.JobID, "encode metrics: "+err.Error(), true)
	}
	feedbackJSON, err := json.Marshal(feedback)
	if err != nil {
		return failFeedbackJob(ctx, msg.JobID, "encode feedback: "+err.Error(), true)
	}

	if err := setInterviewResults(ctx, iv.ID, metricsJSON, feedbackJSON); err != nil {
		recordJobFailure(ctx, msg.JobID, err)
		return err
	}
	if err := completeFeedbackJob(ctx, msg.JobID); err != nil {
		return err
	}

	log.Printf("Feedback complete: job_id=%s interview=%s took=%s", msg.JobID, msg.InterviewID, time.Since(start))
	return nil
}

// RunFeedbackLocal creates (or reuses) the job row for an interview and
// processes it inline, bypassing SQS. Used by the local runner.
func RunFeedbackLocal(ctx context.Context, client *gemini.Client, interviewID string) error {
	job, err := createFeedbackJob(ctx, interviewID)
	if err != nil {
		return err
	}
	iv, err := getInterviewAny(ctx, interviewID)
	if err != nil {
		return err
	}
	return ProcessFeedbackJob(ctx, client, models.FeedbackJobMessage{
		JobID:       job.ID,
		InterviewID: interviewID,
		UserID:      iv.UserID,
	})
}

// recordJobFailure stores the error and re-queues the row for the next
// delivery. Best effort: the message retry does not depend on it.
func recordJobFailure(ctx context.Context, jobID string, cause error) {
	if err := failFeedbackJob(ctx, jobID, cause.Error(), false); err != nil {
		log.Printf("feedback job %s: failed to record error: %v", jobID, err)
	}
}

func generateFeedback(ctx context.Context, client *gemini.Client, iv models.Interview, lines []models.TranscriptLine, metrics models.InterviewMetrics) (models.InterviewFeedback, error) {
	var fb models.InterviewFeedback
	raw, err := client.GenerateFeedback(ctx, gemini.FeedbackRequest{
		SystemPrompt: feedbackSystemPrompt,
		UserPrompt:   buildFeedbackPrompt(iv, lines, metrics),
	})
	if err != nil {
		return fb, err
	}
	if err := json.Unmarshal(raw, &fb); err != nil {
		return fb, fmt.Errorf("parse feedback payload: %w", err)
	}
	clampFeedbackScores(&fb)
	return fb, nil
}

func buildFeedbackPrompt(iv models.Interview, lines []models.TranscriptLine, m models.InterviewMetrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Role: %s\nInterview type: %s\nDifficulty: %s\n",
		iv.Config.Role, iv.Config.InterviewType, iv.Config.Difficulty)
	if len(iv.Config.FocusAreas) > 0 {
		fmt.Fprintf(&b, "Focus areas: %s\n", strings.Join(iv.Config.FocusAreas, ", "))
	}
	fmt.Fprintf(&b, "Measured stats: duration %ds, candidate words %d, talk ratio %.2f, "+
		"filler words per 100 %.1f, avg answer %.0f words, questions answered %d, proctor warnings %d.\n",
		m.DurationSeconds, m.CandidateWords, m.TalkRatio,
		m.FillerPerHundred, m.AvgAnswerWords, m.QuestionsAnswered, m.WarningCount)
	b.WriteString("\nTranscript:\n")
	for _, line := range lines {
		label := "Candidate"
		if line.Speaker == models.SpeakerInterviewer {
			label = "Interviewer"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, line.Content)
	}
	return b.String()
}

func clampFeedbackScores(fb *models.InterviewFeedback) {
	fb.OverallScore = clampScore(fb.OverallScore)
	fb.Communication = clampScore(fb.Communication)
	fb.TechnicalDepth = clampScore(fb.TechnicalDepth)
	fb.Confidence = clampScore(fb.Confidence)
	fb.ProblemSolving = clampScore(fb.ProblemSolving)
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
