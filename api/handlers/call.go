package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warmline/warmline/store"
	"github.com/warmline/warmline/types"
)

// CallHandler manages call session records.
type CallHandler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCallHandler wraps the durable store.
func NewCallHandler(st *store.Store, logger *zap.Logger) *CallHandler {
	return &CallHandler{
		store:  st,
		logger: logger.With(zap.String("component", "call_handler")),
	}
}

type createCallRequest struct {
	CallID      string `json:"call_id,omitempty"`
	CallerName  string `json:"caller_name,omitempty"`
	CallerPhone string `json:"caller_phone,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// HandleCreate registers a call session and its media room.
// POST /api/v1/calls
func (h *CallHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCallRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.CallID == "" {
		req.CallID = "call_" + uuid.NewString()[:8]
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}

	rec := &store.CallRecord{
		CallID:      req.CallID,
		CallerName:  req.CallerName,
		CallerPhone: req.CallerPhone,
		RoomName:    "call_" + req.CallID,
		Status:      "active",
		Priority:    req.Priority,
		StartedAt:   time.Now().UTC(),
	}
	if err := h.store.CreateCall(r.Context(), rec); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteCreated(w, rec)
}

// HandleGet fetches one call.
// GET /api/v1/calls/{id}
func (h *CallHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.GetCall(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, rec)
}

// HandleListActive lists calls that have not ended.
// GET /api/v1/calls
func (h *CallHandler) HandleListActive(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.ListActiveCalls(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]interface{}{
		"calls": recs,
		"count": len(recs),
	})
}

// HandleEnd marks a call ended and records its duration.
// POST /api/v1/calls/{id}/end
func (h *CallHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("id")
	if err := h.store.EndCall(r.Context(), callID); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]string{"call_id": callID, "status": "ended"})
}

// HandleTransferHistory lists past transfers for a call, newest first.
// GET /api/v1/calls/{id}/transfers
func (h *CallHandler) HandleTransferHistory(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("id")

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, types.NewError(types.ErrInvalidRequest, "limit must be a positive integer"), h.logger)
			return
		}
		limit = n
	}

	recs, err := h.store.ListTransfers(r.Context(), callID, limit)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]interface{}{
		"call_id":   callID,
		"transfers": recs,
		"count":     len(recs),
	})
}
