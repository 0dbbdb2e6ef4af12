package models

import "time"

// EventStatus tracks the lifecycle of an event through the analysis pipeline.
type EventStatus string

const (
	StatusNew       EventStatus = "NEW"
	StatusScored    EventStatus = "SCORED"
	StatusProcessed EventStatus = "PROCESSED"
)

// Event is one unit of ingested text to be risk-assessed. The orchestrator
// assigns the id when absent and advances Status monotonically
// NEW -> SCORED -> PROCESSED within a single run; no other field is mutated
// after construction.
type Event struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	Source    string      `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
	Status    EventStatus `json:"status"`
}

// IngestedEvent is the normalized record produced by a channel adapter
// before it enters the pipeline.
type IngestedEvent struct {
	Source    string    `json:"source"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Review records a human judgement attached to a processed event.
type Review struct {
	EventID    string    `json:"event_id"`
	Reviewer   string    `json:"reviewer"`
	Note       string    `json:"note"`
	ReviewedAt time.Time `json:"reviewed_at"`
}
