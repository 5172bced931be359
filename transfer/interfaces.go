package transfer

import (
	"context"
	"time"

	"github.com/warmline/warmline/types"
)

// RoomHandle describes a media room created through the gateway.
type RoomHandle struct {
	Name            string
	SID             string
	WSURL           string
	MaxParticipants int
	CreatedAt       time.Time
}

// RoomGateway is the media/room provider boundary: room lifecycle,
// participant admission credentials, and small data messages pushed into
// a room. Consumed, not re-specified.
type RoomGateway interface {
	CreateRoom(ctx context.Context, name string, maxParticipants int, metadata map[string]string) (*RoomHandle, error)
	DeleteRoom(ctx context.Context, name string) (bool, error)
	IssueCredential(ctx context.Context, room, identity, displayName string, metadata map[string]string) (string, error)
	RemoveParticipant(ctx context.Context, room, identity string) (bool, error)
	SendData(ctx context.Context, room string, payload any) error
}

// Summarizer turns conversation context into briefing material. Callers
// must tolerate failure: the orchestrator substitutes a deterministic
// local fallback instead of blocking the handoff.
type Summarizer interface {
	Summarize(ctx context.Context, conversation types.ConversationContext) (*types.Summary, error)
}

// Notifier delivers asynchronous status events. Delivery is best-effort;
// implementations swallow and log per-recipient failures.
type Notifier interface {
	Send(ctx context.Context, recipientID string, event types.Event)
	BroadcastToRoom(ctx context.Context, roomName string, event types.Event, excluding ...string)
}

// OperatorInfo is the directory view of an operator.
type OperatorInfo struct {
	OperatorID            string `json:"operator_id"`
	Name                  string `json:"name"`
	Status                string `json:"status"`
	Available             bool   `json:"available"`
	CurrentSessions       int    `json:"current_sessions"`
	MaxConcurrentSessions int    `json:"max_concurrent_sessions"`
}

// Directory is the source of truth for operator availability and
// capacity counters.
type Directory interface {
	// LookupOperator returns the operator, or a NOT_FOUND error.
	LookupOperator(ctx context.Context, operatorID string) (*OperatorInfo, error)

	// CheckAndReserve verifies the operator is online, available, and
	// strictly below capacity. The reservation is advisory; it is only
	// committed by ReleaseOrCommit on a successful outcome.
	CheckAndReserve(ctx context.Context, operatorID string) error

	// ReleaseOrCommit settles counters at the terminal transition: on
	// OutcomeSuccessful the source releases one session and the target
	// takes one over; other outcomes leave counters untouched.
	ReleaseOrCommit(ctx context.Context, sourceOperatorID, targetOperatorID string, outcome Outcome) error
}

// Recorder is the durable store boundary. Lookups feed validation and
// the status fallback; saves are best-effort history writes that never
// block a phase transition.
type Recorder interface {
	LookupCall(ctx context.Context, callID string) (*CallInfo, error)
	SaveTransfer(ctx context.Context, rec *Record) error
	LookupTransfer(ctx context.Context, transferID string) (*Record, error)
}

// Metrics receives orchestration measurements. A nil Metrics disables
// instrumentation.
type Metrics interface {
	TransferInitiated(priority string)
	TransferTerminal(outcome string, duration time.Duration)
	PhaseTransition(from, to string)
	SummaryFallback()
}
