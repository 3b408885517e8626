package models

// Feedback job statuses.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// JobStatus summarizes a feedback generation job.
type JobStatus struct {
	ID          string `json:"id"`
	InterviewID string `json:"interview_id"`
	Status      string `json:"status"`
	Attempts    int    `json:"attempts"`
	LastError   string `json:"last_error,omitempty"`
}

// FeedbackJobMessage is the SQS payload handed to the feedback worker.
type FeedbackJobMessage struct {
	JobID       string `json:"job_id"`
	InterviewID string `json:"interview_id"`
	UserID      string `json:"user_id"`
}
