package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/warmline/warmline/store"
)

// AnalyticsHandler serves aggregate statistics over the durable history.
type AnalyticsHandler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewAnalyticsHandler wraps the store for dashboard aggregation.
func NewAnalyticsHandler(st *store.Store, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		store:  st,
		logger: logger.With(zap.String("component", "analytics_handler")),
	}
}

// timeframeWindow maps the timeframe query parameter to a lookback
// window. Unknown values fall back to 24h.
func timeframeWindow(tf string) time.Duration {
	switch tf {
	case "1h":
		return time.Hour
	case "7d":
		return 7 * 24 * time.Hour
	case "30d":
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// HandleDashboard reports call, transfer, and operator aggregates for a
// lookback window.
// GET /api/v1/analytics/dashboard?timeframe=1h|24h|7d|30d
func (h *AnalyticsHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	tf := r.URL.Query().Get("timeframe")
	if tf == "" {
		tf = "24h"
	}
	now := time.Now().UTC()

	stats, err := h.store.Stats(r.Context(), now.Add(-timeframeWindow(tf)))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]any{
		"timeframe":    tf,
		"generated_at": now,
		"since":        stats.Since,
		"calls":        stats.Calls,
		"transfers":    stats.Transfers,
		"operators":    stats.Operators,
	})
}
