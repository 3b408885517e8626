package app

import (
	"strings"
	"testing"

	"github.com/SatVerseX/mockmate-api/app/models"
)

func TestBuildFeedbackPrompt(t *testing.T) {
	iv := models.Interview{
		Config: models.InterviewConfig{
			Role:          "Backend Engineer",
			InterviewType: models.InterviewTypeTechnical,
			Difficulty:    "medium",
			FocusAreas:    []string{"apis", "sql"},
		},
	}
	lines := []models.TranscriptLine{
		{Speaker: models.SpeakerInterviewer, Content: "Why Go?"},
		{Speaker: models.SpeakerCandidate, Content: "Concurrency and tooling."},
	}
	m := models.InterviewMetrics{
		DurationSeconds:   600,
		CandidateWords:    80,
		TalkRatio:         0.64,
		FillerPerHundred:  5.1,
		AvgAnswerWords:    20,
		QuestionsAnswered: 4,
		WarningCount:      1,
	}

	prompt := buildFeedbackPrompt(iv, lines, m)
	for _, want := range []string{
		"Role: Backend Engineer",
		"Focus areas: apis, sql",
		"duration 600s",
		"talk ratio 0.64",
		"proctor warnings 1",
		"Interviewer: Why Go?",
		"Candidate: Concurrency and tooling.",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestClampFeedbackScores(t *testing.T) {
	fb := models.InterviewFeedback{
		OverallScore:   150,
		Communication:  -10,
		TechnicalDepth: 85,
		Confidence:     101,
		ProblemSolving: 0,
	}
	clampFeedbackScores(&fb)
	if fb.OverallScore != 100 || fb.Communication != 0 || fb.TechnicalDepth != 85 ||
		fb.Confidence != 100 || fb.ProblemSolving != 0 {
		t.Fatalf("unexpected clamped scores: %+v", fb)
	}
}

func TestFeedbackSystemPromptDemandsJSON(t *testing.T) {
	// The worker parses the reply as JSON; the prompt must pin the schema.
	for _, key := range []string{"overall_score", "strengths", "improvements", "question_notes", "verdict"} {
		if !strings.Contains(feedbackSystemPrompt, key) {
			t.Fatalf("system prompt missing %q", key)
		}
	}
}
