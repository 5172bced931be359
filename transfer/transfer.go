package transfer

import (
	"time"

	"github.com/warmline/warmline/types"
)

// Phase is the lifecycle phase of a transfer. Transitions are monotonic
// through the order declared below; no backward transition is permitted.
type Phase string

const (
	PhaseAwaitingOperators Phase = "awaiting_agents"
	PhaseBriefing          Phase = "briefing"
	PhaseCompleting        Phase = "completing"
	PhaseCompleted         Phase = "completed"
	PhaseFailed            Phase = "failed"
	PhaseCancelled         Phase = "cancelled"
)

// phaseRank orders phases for the monotonicity check. Terminal phases
// share the top of the order; once terminal, nothing moves.
var phaseRank = map[Phase]int{
	PhaseAwaitingOperators: 0,
	PhaseBriefing:          1,
	PhaseCompleting:        2,
	PhaseCompleted:         3,
	PhaseFailed:            3,
	PhaseCancelled:         3,
}

// Terminal reports whether p permits no further transitions.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseCancelled
}

// CanTransition reports whether moving from p to next follows a defined
// edge of the state machine.
func (p Phase) CanTransition(next Phase) bool {
	if p.Terminal() {
		return false
	}
	switch p {
	case PhaseAwaitingOperators:
		return next == PhaseBriefing || next == PhaseCancelled
	case PhaseBriefing:
		return next == PhaseCompleting || next == PhaseFailed || next == PhaseCancelled
	case PhaseCompleting:
		return next == PhaseCompleted
	}
	return false
}

// Outcome classifies a terminal transfer.
type Outcome string

const (
	OutcomeSuccessful Outcome = "successful"
	OutcomeFailed     Outcome = "failed"
	OutcomeCancelled  Outcome = "cancelled"
)

// Role of a participant inside the briefing room.
type Role string

const (
	RoleSource Role = "source"
	RoleTarget Role = "target"
)

// Participant records an operator who joined the briefing room.
type Participant struct {
	OperatorID string    `json:"operator_id"`
	Role       Role      `json:"role"`
	JoinedAt   time.Time `json:"joined_at"`
}

// Transfer is the unit of orchestration. It is created on initiation,
// mutated only by the Orchestrator, and removed from the live working set
// at its terminal transition.
type Transfer struct {
	TransferID       string `json:"transfer_id"`
	CallID           string `json:"call_id"`
	SourceOperatorID string `json:"source_operator_id"`
	TargetOperatorID string `json:"target_operator_id"`

	BriefingRoom string `json:"briefing_room"`
	OriginalRoom string `json:"original_room"`

	Phase        Phase                  `json:"phase"`
	Participants map[string]Participant `json:"participants"`
	Summary      *types.Summary         `json:"summary,omitempty"`

	Reason   string `json:"reason,omitempty"`
	Feedback string `json:"feedback,omitempty"`
	Priority string `json:"priority,omitempty"`

	Outcome    Outcome    `json:"outcome,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	TerminalAt *time.Time `json:"terminal_at,omitempty"`
}

// snapshot returns a copy safe to hand to readers while the original
// keeps mutating under the entry lock.
func (t *Transfer) snapshot() *Transfer {
	cp := *t
	cp.Participants = make(map[string]Participant, len(t.Participants))
	for k, v := range t.Participants {
		cp.Participants[k] = v
	}
	if t.Summary != nil {
		s := *t.Summary
		cp.Summary = &s
	}
	if t.TerminalAt != nil {
		ta := *t.TerminalAt
		cp.TerminalAt = &ta
	}
	return &cp
}

// DurationSeconds is the wall time from creation to terminal transition,
// zero while the transfer is live.
func (t *Transfer) DurationSeconds() int {
	if t.TerminalAt == nil {
		return 0
	}
	return int(t.TerminalAt.Sub(t.CreatedAt).Seconds())
}

// CallInfo is what the orchestrator needs to know about a call at
// initiation time.
type CallInfo struct {
	CallID     string
	RoomName   string
	CallerName string
	Priority   string
	StartedAt  time.Time
}

// Record is the durable-history view of a transfer, written best-effort
// at initiation and at the terminal transition.
type Record struct {
	TransferID       string
	CallID           string
	SourceOperatorID string
	TargetOperatorID string
	BriefingRoom     string
	OriginalRoom     string
	Phase            Phase
	Outcome          Outcome
	Reason           string
	Feedback         string
	Priority         string
	Summary          *types.Summary
	InitiatedAt      time.Time
	TerminalAt       *time.Time
	DurationSeconds  int
}
