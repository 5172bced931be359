package store

import "time"

// CallRecord tracks a real-time session in the system.
type CallRecord struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	CallID string `gorm:"size:50;uniqueIndex" json:"call_id"`

	CallerName  string `gorm:"size:100" json:"caller_name,omitempty"`
	CallerPhone string `gorm:"size:20" json:"caller_phone,omitempty"`

	RoomName string `gorm:"size:100;not null" json:"room_name"`

	// Status: initiated, active, transferred, ended, failed.
	Status   string `gorm:"size:20;default:initiated" json:"status"`
	Priority string `gorm:"size:10;default:medium" json:"priority"`

	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName implements the gorm table naming convention.
func (CallRecord) TableName() string { return "calls" }

// OperatorRecord tracks operator identity, availability, and capacity.
type OperatorRecord struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	OperatorID string `gorm:"size:50;uniqueIndex" json:"operator_id"`

	Name  string `gorm:"size:100;not null" json:"name"`
	Email string `gorm:"size:255;uniqueIndex" json:"email"`

	// Skills is a comma-separated list of specializations.
	Skills string `gorm:"size:500" json:"skills,omitempty"`

	// Status: online, busy, away, offline.
	Status                string `gorm:"size:20;default:offline" json:"status"`
	Available             bool   `gorm:"default:true" json:"available"`
	CurrentSessions       int    `gorm:"default:0" json:"current_sessions"`
	MaxConcurrentSessions int    `gorm:"default:3" json:"max_concurrent_sessions"`

	TotalSessionsHandled int        `gorm:"default:0" json:"total_sessions_handled"`
	SuccessfulTransfers  int        `gorm:"default:0" json:"successful_transfers"`
	LastActiveAt         *time.Time `json:"last_active_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName implements the gorm table naming convention.
func (OperatorRecord) TableName() string { return "operators" }

// TransferRecord is the durable history row for a transfer. The live
// working set is authoritative while a transfer is in flight; this row is
// eventually-consistent history.
type TransferRecord struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	TransferID string `gorm:"size:50;uniqueIndex" json:"transfer_id"`

	CallID           string `gorm:"size:50;index;not null" json:"call_id"`
	SourceOperatorID string `gorm:"size:50;not null" json:"source_operator_id"`
	TargetOperatorID string `gorm:"size:50;not null" json:"target_operator_id"`

	BriefingRoom string `gorm:"size:100" json:"briefing_room"`
	OriginalRoom string `gorm:"size:100" json:"original_room"`

	// Phase mirrors the live state machine; Outcome is set only once the
	// transfer is terminal.
	Phase   string `gorm:"size:20" json:"phase"`
	Outcome string `gorm:"size:20" json:"outcome,omitempty"`

	Reason   string `gorm:"size:500" json:"reason,omitempty"`
	Feedback string `gorm:"size:2000" json:"feedback,omitempty"`
	Priority string `gorm:"size:10;default:medium" json:"priority"`

	SummaryText      string `gorm:"type:text" json:"summary_text,omitempty"`
	SummarySentiment string `gorm:"size:20" json:"summary_sentiment,omitempty"`
	SummaryUrgency   string `gorm:"size:20" json:"summary_urgency,omitempty"`

	InitiatedAt     time.Time  `json:"initiated_at"`
	TerminalAt      *time.Time `json:"terminal_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName implements the gorm table naming convention.
func (TransferRecord) TableName() string { return "transfers" }
