package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Interview statuses. A row starts as "created" and moves to "live" when the
// websocket session opens; it ends in exactly one of the terminal states.
const (
	InterviewCreated      = "created"
	InterviewLive         = "live"
	InterviewCompleted    = "completed"
	InterviewAbandoned    = "abandoned"
	InterviewDisqualified = "disqualified"
)

// Interview types and difficulties accepted in a session config.
const (
	InterviewTypeBehavioral = "behavioral"
	InterviewTypeTechnical  = "technical"
	InterviewTypeMixed      = "mixed"
)

var (
	// InterviewTypes lists valid interview_type values.
	InterviewTypes = []string{InterviewTypeBehavioral, InterviewTypeTechnical, InterviewTypeMixed}
	// Difficulties lists valid difficulty values.
	Difficulties = []string{"easy", "medium", "hard"}
)

// InterviewConfig is the JSON configuration chosen on the setup screen.
type InterviewConfig struct {
	Role            string   `json:"role"`
	InterviewType   string   `json:"interview_type"`
	Difficulty      string   `json:"difficulty"`
	DurationMinutes int      `json:"duration_minutes"`
	FocusAreas      []string `json:"focus_areas,omitempty"`
	UseResume       bool     `json:"use_resume"`
}

// Interview is one practice session row.
type Interview struct {
	ID               string          `json:"id" db:"id"`
	UserID           string          `json:"-" db:"user_id"`
	Status           string          `json:"status" db:"status"`
	Config           InterviewConfig `json:"config" db:"config"`
	StartedAt        sql.NullTime    `json:"-" db:"started_at"`
	EndedAt          sql.NullTime    `json:"-" db:"ended_at"`
	DurationSeconds  int             `json:"duration_seconds" db:"duration_seconds"`
	WarningCount     int             `json:"warning_count" db:"warning_count"`
	DisqualifyReason sql.NullString  `json:"-" db:"disqualify_reason"`
	Metrics          json.RawMessage `json:"metrics,omitempty" db:"metrics"`
	Feedback         json.RawMessage `json:"feedback,omitempty" db:"feedback"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// Terminal reports whether the interview can no longer change state.
func (iv Interview) Terminal() bool {
	switch iv.Status {
	case InterviewCompleted, InterviewAbandoned, InterviewDisqualified:
		return true
	}
	return false
}

// Transcript speakers.
const (
	SpeakerInterviewer = "interviewer"
	SpeakerCandidate   = "candidate"
)

// TranscriptLine is one utterance of the saved conversation.
type TranscriptLine struct {
	InterviewID string    `json:"-" db:"interview_id"`
	Seq         int       `json:"seq" db:"seq"`
	Speaker     string    `json:"speaker" db:"speaker"`
	Content     string    `json:"content" db:"content"`
	SpokenAt    time.Time `json:"spoken_at" db:"spoken_at"`
}

// InterviewMetrics are the deterministic numbers computed from a transcript
// before the AI review runs.
type InterviewMetrics struct {
	DurationSeconds   int     `json:"duration_seconds"`
	CandidateWords    int     `json:"candidate_words"`
	InterviewerWords  int     `json:"interviewer_words"`
	TalkRatio         float64 `json:"talk_ratio"`
	FillerPerHundred  float64 `json:"filler_per_hundred"`
	AvgAnswerWords    float64 `json:"avg_answer_words"`
	QuestionsAnswered int     `json:"questions_answered"`
	WordsPerMinute    float64 `json:"words_per_minute"`
	WarningCount      int     `json:"warning_count"`
	TranscriptLines   int     `json:"transcript_lines"`
}

// QuestionNote is per-question commentary within a review.
type QuestionNote struct {
	Question string `json:"question"`
	Note     string `json:"note"`
}

// InterviewFeedback is the AI-authored review stored on the interview row.
// Scores are clamped to 0..100.
type InterviewFeedback struct {
	OverallScore   int            `json:"overall_score"`
	Communication  int            `json:"communication"`
	TechnicalDepth int            `json:"technical_depth"`
	Confidence     int            `json:"confidence"`
	ProblemSolving int            `json:"problem_solving"`
	Strengths      []string       `json:"strengths"`
	Improvements   []string       `json:"improvements"`
	QuestionNotes  []QuestionNote `json:"question_notes,omitempty"`
	Verdict        string         `json:"verdict"`
}
