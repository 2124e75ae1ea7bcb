package logsink

import (
	"time"

	"recall-study/internal/llm"
)

// Entry is one interaction record, created once per completed turn and never
// mutated afterwards. Entries for the same participant are appended in turn
// order.
type Entry struct {
	Timestamp      time.Time          `json:"timestamp"`
	ParticipantID  string             `json:"participant_id"`
	TurnCount      int                `json:"turn_count"`
	AttachmentKind llm.AttachmentKind `json:"attachment_kind"`
	PromptText     string             `json:"prompt_text"`
	ResponseText   string             `json:"response_text"`
	PromptLength   int                `json:"prompt_length"`
	ResponseLength int                `json:"response_length"`
	DurationMS     int64              `json:"duration_ms"`
}

// Sink abstracts the durable append-only destination for interaction
// records. Append is one attempt with no retry; a failure is non-fatal to
// the caller (the chat turn stands either way). Implementations must be safe
// for concurrent appends from unrelated sessions.
type Sink interface {
	Append(entry Entry) error
}

// Loader is implemented by sinks that can read their records back, which the
// daily reporting path needs. The remote spreadsheet sink does not implement
// it.
type Loader interface {
	Load() ([]Entry, error)
}
