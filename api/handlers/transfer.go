package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/warmline/warmline/transfer"
	"github.com/warmline/warmline/types"
)

// BriefingNoter produces operator-facing talking points from a summary.
type BriefingNoter interface {
	BriefingNote(ctx context.Context, s *types.Summary) (string, error)
}

// TransferHandler exposes the warm transfer lifecycle.
type TransferHandler struct {
	orch     *transfer.Orchestrator
	briefing BriefingNoter
	logger   *zap.Logger
}

// NewTransferHandler wraps the orchestrator. briefing is optional; when
// present, the target operator's join response carries talking points.
func NewTransferHandler(orch *transfer.Orchestrator, briefing BriefingNoter, logger *zap.Logger) *TransferHandler {
	return &TransferHandler{
		orch:     orch,
		briefing: briefing,
		logger:   logger.With(zap.String("component", "transfer_handler")),
	}
}

// HandleInitiate starts a warm transfer.
// POST /api/v1/transfers
func (h *TransferHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	var req transfer.InitiateRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	res, err := h.orch.Initiate(r.Context(), req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteCreated(w, res)
}

type joinRequest struct {
	OperatorID string `json:"operator_id"`
}

type joinResponse struct {
	*transfer.JoinResult
	BriefingNote string `json:"briefing_note,omitempty"`
}

// HandleJoin admits an operator into the briefing room.
// POST /api/v1/transfers/{id}/join
func (h *TransferHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	transferID := r.PathValue("id")

	var req joinRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.OperatorID == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "operator_id is required"), h.logger)
		return
	}

	res, err := h.orch.Join(r.Context(), transferID, req.OperatorID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	resp := joinResponse{JoinResult: res}
	// The summary is only disclosed to the target operator, so its
	// presence decides whether talking points are generated.
	if res.Summary != nil && h.briefing != nil {
		note, err := h.briefing.BriefingNote(r.Context(), res.Summary)
		if err != nil {
			h.logger.Warn("briefing note unavailable",
				zap.String("transfer_id", transferID), zap.Error(err))
		} else {
			resp.BriefingNote = note
		}
	}
	WriteSuccess(w, resp)
}

type completeRequest struct {
	Success  bool   `json:"success"`
	Feedback string `json:"feedback,omitempty"`
}

// HandleComplete finishes the briefing with a success or failure
// outcome.
// POST /api/v1/transfers/{id}/complete
func (h *TransferHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	transferID := r.PathValue("id")

	var req completeRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	res, err := h.orch.Complete(r.Context(), transferID, req.Success, req.Feedback)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, res)
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// HandleCancel aborts a live transfer. Cancelling an already-terminal
// transfer reports the recorded state.
// POST /api/v1/transfers/{id}/cancel
func (h *TransferHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	transferID := r.PathValue("id")

	var req cancelRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Reason == "" {
		req.Reason = "cancelled by operator"
	}

	res, err := h.orch.Cancel(r.Context(), transferID, req.Reason)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, res)
}

// HandleStatus reports the state of one transfer, live or terminal.
// GET /api/v1/transfers/{id}
func (h *TransferHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	res, err := h.orch.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, res)
}

// HandleListActive lists all in-flight transfers.
// GET /api/v1/transfers
func (h *TransferHandler) HandleListActive(w http.ResponseWriter, r *http.Request) {
	active := h.orch.ListActive()
	WriteSuccess(w, map[string]interface{}{
		"transfers": active,
		"count":     len(active),
	})
}
