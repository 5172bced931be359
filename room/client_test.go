package room

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warmline/warmline/config"
	"github.com/warmline/warmline/types"
)

// fakeGatewayServer is an in-memory media gateway speaking the room API.
type fakeGatewayServer struct {
	mu    map[string]Info
	data  []string // rooms that received data payloads
	kicks []string // "room/identity"
}

func newGatewayServer() (*fakeGatewayServer, *httptest.Server) {
	g := &fakeGatewayServer{mu: make(map[string]Info)}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/rooms", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name            string            `json:"name"`
			MaxParticipants int               `json:"max_participants"`
			Metadata        map[string]string `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		info := Info{
			Name:            body.Name,
			SID:             "RM_" + body.Name,
			MaxParticipants: body.MaxParticipants,
			Metadata:        body.Metadata,
			CreatedAt:       time.Now().UTC(),
		}
		g.mu[body.Name] = info
		json.NewEncoder(w).Encode(info)
	})

	mux.HandleFunc("GET /v1/rooms", func(w http.ResponseWriter, r *http.Request) {
		rooms := make([]Info, 0, len(g.mu))
		for _, info := range g.mu {
			rooms = append(rooms, info)
		}
		json.NewEncoder(w).Encode(map[string]any{"rooms": rooms})
	})

	mux.HandleFunc("DELETE /v1/rooms/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if _, ok := g.mu[name]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(g.mu, name)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("DELETE /v1/rooms/{name}/participants/{identity}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if _, ok := g.mu[name]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		g.kicks = append(g.kicks, name+"/"+r.PathValue("identity"))
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /v1/rooms/{name}/data", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if _, ok := g.mu[name]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		g.data = append(g.data, name)
		w.WriteHeader(http.StatusOK)
	})

	return g, httptest.NewServer(mux)
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(config.RoomConfig{
		BaseURL:       baseURL,
		WSURL:         "ws://gateway.test",
		APIKey:        "key",
		APISecret:     "secret",
		CredentialTTL: time.Hour,
		StaleRoomAge:  24 * time.Hour,
	}, nil)
}

func TestClient_RoomLifecycle(t *testing.T) {
	gw, srv := newGatewayServer()
	defer srv.Close()
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	handle, err := c.CreateRoom(ctx, "briefing_ab12", 3, map[string]string{"type": "briefing"})
	require.NoError(t, err)
	assert.Equal(t, "briefing_ab12", handle.Name)
	assert.Equal(t, "RM_briefing_ab12", handle.SID)
	assert.Equal(t, "ws://gateway.test", handle.WSURL)
	assert.Equal(t, 3, handle.MaxParticipants)

	rooms, err := c.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)

	require.NoError(t, c.SendData(ctx, "briefing_ab12", map[string]any{"hello": "room"}))
	assert.Equal(t, []string{"briefing_ab12"}, gw.data)

	ok, err := c.RemoveParticipant(ctx, "briefing_ab12", "op-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"briefing_ab12/op-1"}, gw.kicks)

	deleted, err := c.DeleteRoom(ctx, "briefing_ab12")
	require.NoError(t, err)
	assert.True(t, deleted)

	// Deleting again reports not-present without an error.
	deleted, err = c.DeleteRoom(ctx, "briefing_ab12")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestClient_SendData_MissingRoom(t *testing.T) {
	_, srv := newGatewayServer()
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	err := c.SendData(context.Background(), "nope", map[string]any{"x": 1})
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestClient_GatewayErrorsAreUpstreamFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.CreateRoom(context.Background(), "x", 3, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamFailure, types.GetErrorCode(err))

	// The gateway being unreachable entirely is also upstream failure.
	srv.Close()
	_, err = c.ListRooms(context.Background())
	assert.Equal(t, types.ErrUpstreamFailure, types.GetErrorCode(err))
}

func TestClient_CleanupStale(t *testing.T) {
	gw, srv := newGatewayServer()
	defer srv.Close()
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	gw.mu["old_empty"] = Info{Name: "old_empty", CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	gw.mu["old_busy"] = Info{Name: "old_busy", NumParticipants: 2, CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	gw.mu["fresh"] = Info{Name: "fresh", CreatedAt: time.Now().UTC()}

	removed, err := c.CleanupStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, hasOldEmpty := gw.mu["old_empty"]
	_, hasOldBusy := gw.mu["old_busy"]
	_, hasFresh := gw.mu["fresh"]
	assert.False(t, hasOldEmpty)
	assert.True(t, hasOldBusy, "rooms with live participants are never reaped")
	assert.True(t, hasFresh)
}

func TestClient_AuthHeaderSent(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"rooms": []Info{}})
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.ListRooms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer key", gotAuth)
}
