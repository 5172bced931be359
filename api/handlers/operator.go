package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warmline/warmline/directory"
	"github.com/warmline/warmline/store"
	"github.com/warmline/warmline/types"
)

// OperatorHandler manages operator registration, presence, and
// availability.
type OperatorHandler struct {
	store     *store.Store
	directory *directory.Service
	logger    *zap.Logger
}

// NewOperatorHandler wraps the durable store and the directory.
func NewOperatorHandler(st *store.Store, dir *directory.Service, logger *zap.Logger) *OperatorHandler {
	return &OperatorHandler{
		store:     st,
		directory: dir,
		logger:    logger.With(zap.String("component", "operator_handler")),
	}
}

type registerOperatorRequest struct {
	OperatorID            string   `json:"operator_id,omitempty"`
	Name                  string   `json:"name"`
	Email                 string   `json:"email"`
	Skills                []string `json:"skills,omitempty"`
	MaxConcurrentSessions int      `json:"max_concurrent_sessions,omitempty"`
}

// HandleRegister creates an operator.
// POST /api/v1/operators
func (h *OperatorHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerOperatorRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Name == "" || req.Email == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "name and email are required"), h.logger)
		return
	}
	if req.OperatorID == "" {
		req.OperatorID = "op_" + uuid.NewString()[:8]
	}
	if req.MaxConcurrentSessions <= 0 {
		req.MaxConcurrentSessions = 3
	}

	rec := &store.OperatorRecord{
		OperatorID:            req.OperatorID,
		Name:                  req.Name,
		Email:                 req.Email,
		Skills:                strings.Join(req.Skills, ","),
		Status:                "offline",
		Available:             true,
		MaxConcurrentSessions: req.MaxConcurrentSessions,
	}
	if err := h.store.CreateOperator(r.Context(), rec); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteCreated(w, rec)
}

// HandleGet fetches one operator.
// GET /api/v1/operators/{id}
func (h *OperatorHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.GetOperator(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, rec)
}

// HandleList lists operators, optionally only available ones.
// GET /api/v1/operators?available=true
func (h *OperatorHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	onlyAvailable := r.URL.Query().Get("available") == "true"
	recs, err := h.store.ListOperators(r.Context(), onlyAvailable)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]interface{}{
		"operators": recs,
		"count":     len(recs),
	})
}

// HandleHeartbeat refreshes an operator's presence lease.
// POST /api/v1/operators/{id}/heartbeat
func (h *OperatorHandler) HandleHeartbeat(w http.ResponseWriter, r *http.Request) {
	operatorID := r.PathValue("id")
	if err := h.directory.Heartbeat(r.Context(), operatorID); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]string{"operator_id": operatorID, "status": "online"})
}

type availabilityRequest struct {
	Available bool `json:"available"`
}

// HandleAvailability toggles whether the operator accepts transfers.
// PUT /api/v1/operators/{id}/availability
func (h *OperatorHandler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	operatorID := r.PathValue("id")

	var req availabilityRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if err := h.directory.SetAvailability(r.Context(), operatorID, req.Available); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]interface{}{
		"operator_id": operatorID,
		"available":   req.Available,
	})
}

// HandleOffline drops the operator's presence and marks them offline.
// POST /api/v1/operators/{id}/offline
func (h *OperatorHandler) HandleOffline(w http.ResponseWriter, r *http.Request) {
	operatorID := r.PathValue("id")
	if err := h.directory.GoOffline(r.Context(), operatorID); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]string{"operator_id": operatorID, "status": "offline"})
}

// HandleLookup reports live availability as the orchestrator sees it,
// presence included.
// GET /api/v1/operators/{id}/availability
func (h *OperatorHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	info, err := h.directory.LookupOperator(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, info)
}
