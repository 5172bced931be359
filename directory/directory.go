package directory

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/warmline/warmline/store"
	"github.com/warmline/warmline/transfer"
	"github.com/warmline/warmline/types"
)

// Service is the operator directory: availability checks, capacity
// counters, and liveness. Counters live in the database; liveness lives
// in the optional Presence store. Implements transfer.Directory.
type Service struct {
	db       *gorm.DB
	presence *Presence
	logger   *zap.Logger
}

// New creates a directory Service. presence may be nil, in which case
// liveness falls back to the persisted operator status.
func New(db *gorm.DB, presence *Presence, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       db,
		presence: presence,
		logger:   logger.With(zap.String("component", "directory")),
	}
}

// LookupOperator returns the directory view of an operator.
func (s *Service) LookupOperator(ctx context.Context, operatorID string) (*transfer.OperatorInfo, error) {
	var rec store.OperatorRecord
	err := s.db.WithContext(ctx).Where("operator_id = ?", operatorID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewErrorf(types.ErrNotFound, "operator %s not found", operatorID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "lookup operator").WithCause(err)
	}

	info := &transfer.OperatorInfo{
		OperatorID:            rec.OperatorID,
		Name:                  rec.Name,
		Status:                rec.Status,
		Available:             rec.Available,
		CurrentSessions:       rec.CurrentSessions,
		MaxConcurrentSessions: rec.MaxConcurrentSessions,
	}
	if s.presence != nil {
		online, perr := s.presence.Online(ctx, operatorID)
		if perr != nil {
			s.logger.Warn("presence check failed, using persisted status",
				zap.String("operator_id", operatorID), zap.Error(perr))
		} else if !online {
			info.Status = "offline"
		}
	}
	return info, nil
}

// CheckAndReserve verifies the operator can take one more session:
// online, marked available, and strictly below capacity. The row check
// runs in one transaction with the row locked, the same way the counter
// commit does. The check is advisory; counters move only in
// ReleaseOrCommit.
func (s *Service) CheckAndReserve(ctx context.Context, operatorID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec store.OperatorRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("operator_id = ?", operatorID).First(&rec).Error; err != nil {
			return err
		}
		if rec.Status == "offline" {
			return types.NewErrorf(types.ErrUnavailable, "operator %s is offline", operatorID)
		}
		if !rec.Available {
			return types.NewErrorf(types.ErrUnavailable, "operator %s is not accepting transfers", operatorID)
		}
		if rec.CurrentSessions >= rec.MaxConcurrentSessions {
			return types.NewErrorf(types.ErrUnavailable, "operator %s at capacity (%d/%d)",
				operatorID, rec.CurrentSessions, rec.MaxConcurrentSessions)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.NewErrorf(types.ErrNotFound, "operator %s not found", operatorID)
		}
		var appErr *types.Error
		if errors.As(err, &appErr) {
			return err
		}
		return types.NewError(types.ErrInternalError, "check operator capacity").WithCause(err)
	}

	if s.presence != nil {
		online, perr := s.presence.Online(ctx, operatorID)
		if perr != nil {
			s.logger.Warn("presence check failed, using persisted status",
				zap.String("operator_id", operatorID), zap.Error(perr))
		} else if !online {
			return types.NewErrorf(types.ErrUnavailable, "operator %s is offline", operatorID)
		}
	}
	return nil
}

// ReleaseOrCommit settles counters at a transfer's terminal transition.
// Only a successful outcome moves anything: the source operator drops a
// session and gains a successful transfer, the target takes the session
// over. Both updates ride one transaction.
func (s *Service) ReleaseOrCommit(ctx context.Context, sourceOperatorID, targetOperatorID string, outcome transfer.Outcome) error {
	if outcome != transfer.OutcomeSuccessful {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var src, dst store.OperatorRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("operator_id = ?", sourceOperatorID).First(&src).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("operator_id = ?", targetOperatorID).First(&dst).Error; err != nil {
			return err
		}

		srcSessions := src.CurrentSessions - 1
		if srcSessions < 0 {
			srcSessions = 0
		}
		if err := tx.Model(&src).Updates(map[string]any{
			"current_sessions":     srcSessions,
			"successful_transfers": src.SuccessfulTransfers + 1,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&dst).Updates(map[string]any{
			"current_sessions":       dst.CurrentSessions + 1,
			"total_sessions_handled": dst.TotalSessionsHandled + 1,
		}).Error
	})
	if err != nil {
		return types.NewError(types.ErrInternalError, "commit transfer counters").WithCause(err)
	}
	return nil
}

// Heartbeat refreshes an operator's liveness and persisted activity.
func (s *Service) Heartbeat(ctx context.Context, operatorID string) error {
	var rec store.OperatorRecord
	err := s.db.WithContext(ctx).Where("operator_id = ?", operatorID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NewErrorf(types.ErrNotFound, "operator %s not found", operatorID)
	}
	if err != nil {
		return types.NewError(types.ErrInternalError, "heartbeat lookup").WithCause(err)
	}

	if s.presence != nil {
		if perr := s.presence.Beat(ctx, operatorID); perr != nil {
			s.logger.Warn("presence beat failed",
				zap.String("operator_id", operatorID), zap.Error(perr))
		}
	}

	updates := map[string]any{"last_active_at": gorm.Expr("CURRENT_TIMESTAMP")}
	if rec.Status == "offline" {
		updates["status"] = "online"
	}
	if err := s.db.WithContext(ctx).Model(&store.OperatorRecord{}).
		Where("operator_id = ?", operatorID).Updates(updates).Error; err != nil {
		return types.NewError(types.ErrInternalError, "heartbeat update").WithCause(err)
	}
	return nil
}

// SetAvailability flips whether the operator accepts new transfers.
func (s *Service) SetAvailability(ctx context.Context, operatorID string, available bool) error {
	res := s.db.WithContext(ctx).Model(&store.OperatorRecord{}).
		Where("operator_id = ?", operatorID).
		Update("available", available)
	if res.Error != nil {
		return types.NewError(types.ErrInternalError, "set availability").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewErrorf(types.ErrNotFound, "operator %s not found", operatorID)
	}
	return nil
}

// GoOffline marks the operator offline and drops their presence key.
func (s *Service) GoOffline(ctx context.Context, operatorID string) error {
	if s.presence != nil {
		if err := s.presence.Drop(ctx, operatorID); err != nil {
			s.logger.Warn("presence drop failed",
				zap.String("operator_id", operatorID), zap.Error(err))
		}
	}
	res := s.db.WithContext(ctx).Model(&store.OperatorRecord{}).
		Where("operator_id = ?", operatorID).
		Update("status", "offline")
	if res.Error != nil {
		return types.NewError(types.ErrInternalError, "go offline").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewErrorf(types.ErrNotFound, "operator %s not found", operatorID)
	}
	return nil
}
