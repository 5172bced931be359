package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/warmline/warmline/directory"
	"github.com/warmline/warmline/notify"
	"github.com/warmline/warmline/types"
)

// WSHandler upgrades operator connections and feeds them transfer
// events through the hub.
type WSHandler struct {
	hub       *notify.Hub
	directory *directory.Service
	logger    *zap.Logger
}

// NewWSHandler wraps the hub. The directory is optional; when present,
// client heartbeat messages refresh the operator's presence lease.
func NewWSHandler(hub *notify.Hub, dir *directory.Service, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:       hub,
		directory: dir,
		logger:    logger.With(zap.String("component", "ws_handler")),
	}
}

// clientMessage is what operators may send upstream.
type clientMessage struct {
	Type string `json:"type"` // heartbeat, join_room, leave_room
	Room string `json:"room,omitempty"`
}

// HandleConnect upgrades the request and pumps events until the client
// disconnects.
// GET /api/v1/ws?operator_id=...
func (h *WSHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	operatorID := r.URL.Query().Get("operator_id")
	if operatorID == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "operator_id query parameter is required"), h.logger)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Same-origin policy is enforced upstream by the CORS middleware.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("operator_id", operatorID), zap.Error(err))
		return
	}

	conn := notify.NewWSConn(c)
	h.hub.Register(operatorID, conn)
	h.logger.Info("operator connected", zap.String("operator_id", operatorID))

	defer func() {
		h.hub.Unregister(operatorID, conn)
		_ = conn.Close()
		h.logger.Info("operator disconnected", zap.String("operator_id", operatorID))
	}()

	welcome := types.Event{
		Type:      "connected",
		Payload:   map[string]any{"operator_id": operatorID},
		Timestamp: time.Now().UTC(),
	}
	if err := conn.WriteEvent(r.Context(), welcome); err != nil {
		return
	}

	h.readLoop(r.Context(), c, operatorID)
}

// readLoop consumes upstream messages until the connection drops.
func (h *WSHandler) readLoop(ctx context.Context, c *websocket.Conn, operatorID string) {
	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, c, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				h.logger.Debug("websocket read failed",
					zap.String("operator_id", operatorID), zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "heartbeat":
			if h.directory != nil {
				hbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				if err := h.directory.Heartbeat(hbCtx, operatorID); err != nil {
					h.logger.Warn("heartbeat failed",
						zap.String("operator_id", operatorID), zap.Error(err))
				}
				cancel()
			}
		case "join_room":
			if msg.Room != "" {
				h.hub.JoinRoom(operatorID, msg.Room)
			}
		case "leave_room":
			if msg.Room != "" {
				h.hub.LeaveRoom(operatorID, msg.Room)
			}
		default:
			// Unknown message types are ignored.
		}
	}
}
