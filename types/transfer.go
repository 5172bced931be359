package types

import "time"

// Sentiment classification values produced by the summarizer.
const (
	SentimentPositive   = "positive"
	SentimentNeutral    = "neutral"
	SentimentNegative   = "negative"
	SentimentFrustrated = "frustrated"
)

// Urgency levels produced by the summarizer.
const (
	UrgencyLow      = "low"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// Summary is the briefing material handed to the incoming operator. It is
// generated once per transfer, before the briefing phase begins.
type Summary struct {
	Text      string `json:"text"`
	Sentiment string `json:"sentiment"`
	Urgency   string `json:"urgency"`
	Provider  string `json:"provider,omitempty"`
	Fallback  bool   `json:"fallback"`
}

// ConversationContext carries what is known about an in-progress call when
// a summary is requested.
type ConversationContext struct {
	CallID          string  `json:"call_id"`
	CallerName      string  `json:"caller_name,omitempty"`
	Priority        string  `json:"priority,omitempty"`
	DurationMinutes float64 `json:"duration_minutes"`
	History         string  `json:"history,omitempty"`
	CurrentIssue    string  `json:"current_issue,omitempty"`
	OperatorNotes   string  `json:"operator_notes,omitempty"`
}

// Event is an asynchronous status notification delivered to connected
// clients through the notification bus.
type Event struct {
	Type       string         `json:"type"`
	TransferID string         `json:"transfer_id,omitempty"`
	RoomName   string         `json:"room_name,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Event types emitted by the transfer orchestrator.
const (
	EventTransferInitiated = "transfer_initiated"
	EventTransferRequested = "transfer_request"
	EventOperatorJoined    = "operator_joined"
	EventBriefingStarted   = "briefing_started"
	EventSummaryShared     = "summary_shared"
	EventTransferCompleted = "transfer_completed"
	EventTransferFailed    = "transfer_failed"
	EventTransferCancelled = "transfer_cancelled"
)

// NewEvent constructs an Event stamped with the current time.
func NewEvent(eventType, transferID string, payload map[string]any) Event {
	return Event{
		Type:       eventType,
		TransferID: transferID,
		Payload:    payload,
		Timestamp:  time.Now().UTC(),
	}
}
