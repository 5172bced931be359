package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/warmline/warmline/transfer"
	"github.com/warmline/warmline/types"
)

// Store is the durable repository for calls, operators, and transfer
// history. It implements transfer.Recorder.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates a Store over an open gorm connection.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.With(zap.String("component", "store"))}
}

// DB exposes the underlying connection for components that manage their
// own transactions.
func (s *Store) DB() *gorm.DB { return s.db }

// ---------------------------------------------------------------------
// calls
// ---------------------------------------------------------------------

// CreateCall registers a new live call.
func (s *Store) CreateCall(ctx context.Context, rec *CallRecord) error {
	if rec.Status == "" {
		rec.Status = "active"
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return types.NewErrorf(types.ErrConflict, "call %s already exists", rec.CallID)
		}
		return types.NewError(types.ErrInternalError, "create call").WithCause(err)
	}
	return nil
}

// GetCall fetches a call by its public ID.
func (s *Store) GetCall(ctx context.Context, callID string) (*CallRecord, error) {
	var rec CallRecord
	err := s.db.WithContext(ctx).Where("call_id = ?", callID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewErrorf(types.ErrNotFound, "call %s not found", callID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "get call").WithCause(err)
	}
	return &rec, nil
}

// UpdateCallStatus moves a call to a new status.
func (s *Store) UpdateCallStatus(ctx context.Context, callID, status string) error {
	res := s.db.WithContext(ctx).Model(&CallRecord{}).
		Where("call_id = ?", callID).
		Update("status", status)
	if res.Error != nil {
		return types.NewError(types.ErrInternalError, "update call status").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewErrorf(types.ErrNotFound, "call %s not found", callID)
	}
	return nil
}

// EndCall marks a call ended and stamps its duration.
func (s *Store) EndCall(ctx context.Context, callID string) error {
	rec, err := s.GetCall(ctx, callID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	updates := map[string]any{
		"status":           "ended",
		"ended_at":         now,
		"duration_seconds": int(now.Sub(rec.StartedAt).Seconds()),
	}
	if err := s.db.WithContext(ctx).Model(&CallRecord{}).
		Where("call_id = ?", callID).Updates(updates).Error; err != nil {
		return types.NewError(types.ErrInternalError, "end call").WithCause(err)
	}
	return nil
}

// ListActiveCalls returns calls not yet ended, newest first.
func (s *Store) ListActiveCalls(ctx context.Context) ([]CallRecord, error) {
	var out []CallRecord
	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{"initiated", "active", "transferred"}).
		Order("started_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "list active calls").WithCause(err)
	}
	return out, nil
}

// ---------------------------------------------------------------------
// operators
// ---------------------------------------------------------------------

// CreateOperator registers an operator.
func (s *Store) CreateOperator(ctx context.Context, rec *OperatorRecord) error {
	if rec.MaxConcurrentSessions <= 0 {
		rec.MaxConcurrentSessions = 3
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return types.NewErrorf(types.ErrConflict, "operator %s already exists", rec.OperatorID)
		}
		return types.NewError(types.ErrInternalError, "create operator").WithCause(err)
	}
	return nil
}

// GetOperator fetches an operator by its public ID.
func (s *Store) GetOperator(ctx context.Context, operatorID string) (*OperatorRecord, error) {
	var rec OperatorRecord
	err := s.db.WithContext(ctx).Where("operator_id = ?", operatorID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewErrorf(types.ErrNotFound, "operator %s not found", operatorID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "get operator").WithCause(err)
	}
	return &rec, nil
}

// UpdateOperatorStatus sets status and availability and stamps activity.
func (s *Store) UpdateOperatorStatus(ctx context.Context, operatorID, status string, available bool) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&OperatorRecord{}).
		Where("operator_id = ?", operatorID).
		Updates(map[string]any{
			"status":         status,
			"available":      available,
			"last_active_at": now,
		})
	if res.Error != nil {
		return types.NewError(types.ErrInternalError, "update operator status").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewErrorf(types.ErrNotFound, "operator %s not found", operatorID)
	}
	return nil
}

// ListOperators returns all operators, optionally only available ones.
func (s *Store) ListOperators(ctx context.Context, onlyAvailable bool) ([]OperatorRecord, error) {
	q := s.db.WithContext(ctx).Order("operator_id")
	if onlyAvailable {
		q = q.Where("available = ? AND status = ?", true, "online")
	}
	var out []OperatorRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, types.NewError(types.ErrInternalError, "list operators").WithCause(err)
	}
	return out, nil
}

// ---------------------------------------------------------------------
// transfers
// ---------------------------------------------------------------------

// GetTransfer fetches a transfer history row.
func (s *Store) GetTransfer(ctx context.Context, transferID string) (*TransferRecord, error) {
	var rec TransferRecord
	err := s.db.WithContext(ctx).Where("transfer_id = ?", transferID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewErrorf(types.ErrNotFound, "transfer %s not found", transferID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "get transfer").WithCause(err)
	}
	return &rec, nil
}

// ListTransfers returns history rows, newest first. An empty callID
// matches everything.
func (s *Store) ListTransfers(ctx context.Context, callID string, limit int) ([]TransferRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Order("initiated_at DESC").Limit(limit)
	if callID != "" {
		q = q.Where("call_id = ?", callID)
	}
	var out []TransferRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, types.NewError(types.ErrInternalError, "list transfers").WithCause(err)
	}
	return out, nil
}

// ---------------------------------------------------------------------
// transfer.Recorder
// ---------------------------------------------------------------------

// LookupCall implements transfer.Recorder over the calls table.
func (s *Store) LookupCall(ctx context.Context, callID string) (*transfer.CallInfo, error) {
	rec, err := s.GetCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	return &transfer.CallInfo{
		CallID:     rec.CallID,
		RoomName:   rec.RoomName,
		CallerName: rec.CallerName,
		Priority:   rec.Priority,
		StartedAt:  rec.StartedAt,
	}, nil
}

// SaveTransfer upserts the history row keyed by transfer_id.
func (s *Store) SaveTransfer(ctx context.Context, rec *transfer.Record) error {
	row := &TransferRecord{
		TransferID:       rec.TransferID,
		CallID:           rec.CallID,
		SourceOperatorID: rec.SourceOperatorID,
		TargetOperatorID: rec.TargetOperatorID,
		BriefingRoom:     rec.BriefingRoom,
		OriginalRoom:     rec.OriginalRoom,
		Phase:            string(rec.Phase),
		Outcome:          string(rec.Outcome),
		Reason:           rec.Reason,
		Feedback:         rec.Feedback,
		Priority:         rec.Priority,
		InitiatedAt:      rec.InitiatedAt,
		TerminalAt:       rec.TerminalAt,
		DurationSeconds:  rec.DurationSeconds,
	}
	if rec.Summary != nil {
		row.SummaryText = rec.Summary.Text
		row.SummarySentiment = rec.Summary.Sentiment
		row.SummaryUrgency = rec.Summary.Urgency
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "transfer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"phase", "outcome", "reason", "feedback",
			"summary_text", "summary_sentiment", "summary_urgency",
			"terminal_at", "duration_seconds", "updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		return types.NewError(types.ErrInternalError, "save transfer").WithCause(err)
	}

	// A successful transfer hands the call to the target operator.
	if rec.Phase == transfer.PhaseCompleted {
		if uerr := s.UpdateCallStatus(ctx, rec.CallID, "transferred"); uerr != nil {
			s.logger.Warn("failed to mark call transferred",
				zap.String("call_id", rec.CallID), zap.Error(uerr))
		}
	}
	return nil
}

// LookupTransfer implements transfer.Recorder over the transfers table.
func (s *Store) LookupTransfer(ctx context.Context, transferID string) (*transfer.Record, error) {
	row, err := s.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	rec := &transfer.Record{
		TransferID:       row.TransferID,
		CallID:           row.CallID,
		SourceOperatorID: row.SourceOperatorID,
		TargetOperatorID: row.TargetOperatorID,
		BriefingRoom:     row.BriefingRoom,
		OriginalRoom:     row.OriginalRoom,
		Phase:            transfer.Phase(row.Phase),
		Outcome:          transfer.Outcome(row.Outcome),
		Reason:           row.Reason,
		Feedback:         row.Feedback,
		Priority:         row.Priority,
		InitiatedAt:      row.InitiatedAt,
		TerminalAt:       row.TerminalAt,
		DurationSeconds:  row.DurationSeconds,
	}
	if row.SummaryText != "" {
		rec.Summary = &types.Summary{
			Text:      row.SummaryText,
			Sentiment: row.SummarySentiment,
			Urgency:   row.SummaryUrgency,
		}
	}
	return rec, nil
}
