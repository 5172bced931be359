package room

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/warmline/warmline/config"
	"github.com/warmline/warmline/internal/tlsutil"
	"github.com/warmline/warmline/transfer"
	"github.com/warmline/warmline/types"
)

// Info describes a room as reported by the media gateway.
type Info struct {
	Name            string            `json:"name"`
	SID             string            `json:"sid"`
	NumParticipants int               `json:"num_participants"`
	MaxParticipants int               `json:"max_participants"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Client talks to the media gateway's room API and mints local join
// credentials. Implements transfer.RoomGateway.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	wsURL         string
	apiKey        string
	apiSecret     string
	credentialTTL time.Duration
	staleRoomAge  time.Duration
	logger        *zap.Logger
}

// NewClient creates a room gateway client from config.
func NewClient(cfg config.RoomConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CredentialTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Client{
		httpClient:    tlsutil.SecureHTTPClient(15 * time.Second),
		baseURL:       cfg.BaseURL,
		wsURL:         cfg.WSURL,
		apiKey:        cfg.APIKey,
		apiSecret:     cfg.APISecret,
		credentialTTL: ttl,
		staleRoomAge:  cfg.StaleRoomAge,
		logger:        logger.With(zap.String("component", "room_gateway")),
	}
}

// WSURL is the websocket endpoint clients connect to with a credential.
func (c *Client) WSURL() string { return c.wsURL }

// CreateRoom provisions a room on the gateway.
func (c *Client) CreateRoom(ctx context.Context, name string, maxParticipants int, metadata map[string]string) (*transfer.RoomHandle, error) {
	body := map[string]any{
		"name":             name,
		"max_participants": maxParticipants,
		"metadata":         metadata,
	}
	var out Info
	if err := c.do(ctx, http.MethodPost, "/v1/rooms", body, &out); err != nil {
		return nil, err
	}
	c.logger.Info("room created", zap.String("room", out.Name), zap.String("sid", out.SID))
	return &transfer.RoomHandle{
		Name:            out.Name,
		SID:             out.SID,
		WSURL:           c.wsURL,
		MaxParticipants: out.MaxParticipants,
		CreatedAt:       out.CreatedAt,
	}, nil
}

// DeleteRoom removes a room. Returns false without error when the room
// is already gone.
func (c *Client) DeleteRoom(ctx context.Context, name string) (bool, error) {
	err := c.do(ctx, http.MethodDelete, "/v1/rooms/"+url.PathEscape(name), nil, nil)
	if types.IsCode(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListRooms returns all rooms the gateway currently holds.
func (c *Client) ListRooms(ctx context.Context) ([]Info, error) {
	var out struct {
		Rooms []Info `json:"rooms"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/rooms", nil, &out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

// IssueCredential mints a signed join credential locally; no gateway
// round trip is needed.
func (c *Client) IssueCredential(_ context.Context, roomName, identity, displayName string, metadata map[string]string) (string, error) {
	return MintCredential(c.apiKey, c.apiSecret, roomName, identity, displayName, metadata, c.credentialTTL)
}

// RemoveParticipant kicks an identity out of a room. Returns false
// without error when room or participant is already gone.
func (c *Client) RemoveParticipant(ctx context.Context, roomName, identity string) (bool, error) {
	path := "/v1/rooms/" + url.PathEscape(roomName) + "/participants/" + url.PathEscape(identity)
	err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if types.IsCode(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SendData pushes a small JSON payload to every participant in a room.
func (c *Client) SendData(ctx context.Context, roomName string, payload any) error {
	return c.do(ctx, http.MethodPost, "/v1/rooms/"+url.PathEscape(roomName)+"/data", payload, nil)
}

// CleanupStale deletes rooms older than the configured stale age and
// reports how many went. Rooms with live participants are skipped.
func (c *Client) CleanupStale(ctx context.Context) (int, error) {
	if c.staleRoomAge <= 0 {
		return 0, nil
	}
	rooms, err := c.ListRooms(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-c.staleRoomAge)
	removed := 0
	for _, r := range rooms {
		if r.NumParticipants > 0 || r.CreatedAt.IsZero() || r.CreatedAt.After(cutoff) {
			continue
		}
		if _, derr := c.DeleteRoom(ctx, r.Name); derr != nil {
			c.logger.Warn("failed to delete stale room", zap.String("room", r.Name), zap.Error(derr))
			continue
		}
		removed++
	}
	if removed > 0 {
		c.logger.Info("stale rooms cleaned up", zap.Int("removed", removed))
	}
	return removed, nil
}

// do performs one JSON request against the gateway.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return types.NewError(types.ErrInternalError, "encode request").WithCause(err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return types.NewError(types.ErrInternalError, "build request").WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.NewErrorf(types.ErrUpstreamFailure, "room gateway %s %s", method, path).WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return types.NewErrorf(types.ErrNotFound, "room gateway: %s not found", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.NewErrorf(types.ErrUpstreamFailure, "room gateway %s %s: status %d: %s",
			method, path, resp.StatusCode, string(msg)).WithRetryable(resp.StatusCode >= 500)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return types.NewError(types.ErrUpstreamFailure, "decode gateway response").WithCause(err)
		}
	}
	return nil
}
