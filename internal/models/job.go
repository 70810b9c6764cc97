package models

import "time"

// Background job kinds.
const (
	JobAutoAssign        = "assign.auto"
	JobSummaryRegenerate = "summary.regenerate"
	JobFAQRespond        = "faq.respond"
)

// Job is the unit of work handed to the worker pool. Jobs carry ids only;
// handlers reload current state from the store.
type Job struct {
	Kind           string    `json:"kind"`
	ConversationID string    `json:"conversation_id,omitempty"`
	MessageID      string    `json:"message_id,omitempty"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}

// JobRun is the outcome of one job execution, kept for operators.
type JobRun struct {
	Kind           string    `bson:"kind" json:"kind"`
	ConversationID string    `bson:"conversation_id,omitempty" json:"conversation_id,omitempty"`
	MessageID      string    `bson:"message_id,omitempty" json:"message_id,omitempty"`
	Status         string    `bson:"status" json:"status"` // done|failed
	Error          string    `bson:"error,omitempty" json:"error,omitempty"`
	DurationMS     int64     `bson:"duration_ms" json:"duration_ms"`
	StartedAt      time.Time `bson:"started_at" json:"started_at"`
	ExpiresAt      time.Time `bson:"expires_at" json:"-"` // TTL index
}
