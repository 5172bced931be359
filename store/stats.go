package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/warmline/warmline/transfer"
	"github.com/warmline/warmline/types"
)

// CallStats aggregates call history inside the reporting window.
type CallStats struct {
	Total                  int64   `json:"total"`
	Active                 int64   `json:"active"`
	Ended                  int64   `json:"ended"`
	AverageDurationSeconds float64 `json:"average_duration_seconds"`
}

// TransferStats aggregates transfer history inside the reporting window.
type TransferStats struct {
	Total              int64            `json:"total"`
	ByOutcome          map[string]int64 `json:"by_outcome"`
	SuccessRatePercent float64          `json:"success_rate_percent"`
}

// OperatorStats is a point-in-time view of the operator roster.
type OperatorStats struct {
	Total     int64 `json:"total"`
	Online    int64 `json:"online"`
	Available int64 `json:"available"`
}

// Stats is the aggregate dashboard view over the durable history.
type Stats struct {
	Since     time.Time     `json:"since"`
	Calls     CallStats     `json:"calls"`
	Transfers TransferStats `json:"transfers"`
	Operators OperatorStats `json:"operators"`
}

// Stats aggregates calls and transfers created since the cutoff, plus
// the current operator roster. Operator counts ignore the cutoff; the
// roster is not a time series.
func (s *Store) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	out := &Stats{
		Since:     since,
		Transfers: TransferStats{ByOutcome: make(map[string]int64)},
	}
	db := s.db.WithContext(ctx)

	if err := db.Model(&CallRecord{}).
		Where("created_at >= ?", since).Count(&out.Calls.Total).Error; err != nil {
		return nil, statsError(err)
	}
	if err := db.Model(&CallRecord{}).
		Where("created_at >= ? AND status IN ?", since, []string{"initiated", "active"}).
		Count(&out.Calls.Active).Error; err != nil {
		return nil, statsError(err)
	}
	if err := db.Model(&CallRecord{}).
		Where("created_at >= ? AND status = ?", since, "ended").
		Count(&out.Calls.Ended).Error; err != nil {
		return nil, statsError(err)
	}
	var avg sql.NullFloat64
	if err := db.Model(&CallRecord{}).
		Where("created_at >= ? AND status = ?", since, "ended").
		Select("AVG(duration_seconds)").Row().Scan(&avg); err != nil {
		return nil, statsError(err)
	}
	if avg.Valid {
		out.Calls.AverageDurationSeconds = avg.Float64
	}

	if err := db.Model(&TransferRecord{}).
		Where("created_at >= ?", since).Count(&out.Transfers.Total).Error; err != nil {
		return nil, statsError(err)
	}
	var byOutcome []struct {
		Outcome string
		N       int64
	}
	if err := db.Model(&TransferRecord{}).
		Where("created_at >= ? AND outcome <> ''", since).
		Select("outcome, COUNT(*) AS n").Group("outcome").
		Scan(&byOutcome).Error; err != nil {
		return nil, statsError(err)
	}
	for _, row := range byOutcome {
		out.Transfers.ByOutcome[row.Outcome] = row.N
	}
	if out.Transfers.Total > 0 {
		successful := out.Transfers.ByOutcome[string(transfer.OutcomeSuccessful)]
		out.Transfers.SuccessRatePercent = float64(successful) / float64(out.Transfers.Total) * 100
	}

	if err := db.Model(&OperatorRecord{}).Count(&out.Operators.Total).Error; err != nil {
		return nil, statsError(err)
	}
	if err := db.Model(&OperatorRecord{}).
		Where("status = ?", "online").Count(&out.Operators.Online).Error; err != nil {
		return nil, statsError(err)
	}
	if err := db.Model(&OperatorRecord{}).
		Where("status = ? AND available = ?", "online", true).
		Count(&out.Operators.Available).Error; err != nil {
		return nil, statsError(err)
	}
	return out, nil
}

func statsError(err error) error {
	return types.NewError(types.ErrInternalError, "aggregate stats").WithCause(err)
}
