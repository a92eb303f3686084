package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"tubeclone/internal/notify"
	"tubeclone/internal/storage"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type    string          `json:"type"`
	View    string          `json:"view"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

// liveServer serves the app on a real listener so a websocket client can dial it.
func liveServer(t *testing.T) (*Server, string) {
	t.Helper()
	s, app := newTestServer(t, storage.NewMemoryStore())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return s, ln.Addr().String()
}

func dial(t *testing.T, addr, token string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/ws?token="+token, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads frames until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", typ)
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		if f.Type == typ {
			return f
		}
	}
}

func postJSON(t *testing.T, addr, path, token string, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "http://"+addr+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestWebSocket_RejectsMissingToken(t *testing.T) {
	_, addr := liveServer(t)

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_NavigateAndToasts(t *testing.T) {
	s, addr := liveServer(t)
	clientID := "5f0c6a8e-2a47-4b8e-9a55-0b4c5f2f6d11"
	token, err := s.tokens.Issue(clientID)
	require.NoError(t, err)

	conn := dial(t, addr, token)
	require.Eventually(t, func() bool { return s.hub.Connections(clientID) == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "navigate", "path": "/category/music"}))
	res := readUntil(t, conn, notify.TypeResults)
	assert.Equal(t, "category", res.View)

	var payload struct {
		Category string            `json:"category"`
		Videos   []json.RawMessage `json:"videos"`
	}
	require.NoError(t, json.Unmarshal(res.Payload, &payload))
	assert.Equal(t, "music", payload.Category)
	assert.NotEmpty(t, payload.Videos)

	// A sign-in over HTTP toasts on the open channel.
	resp := postJSON(t, addr, "/api/session/signin", token, `{"email":"live@example.com","password":"pw"}`)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	toast := readUntil(t, conn, notify.TypeToast)
	var body map[string]string
	require.NoError(t, json.Unmarshal(toast.Payload, &body))
	assert.Equal(t, "Success", body["title"])

	// The live view sees the new session on its next frame.
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "navigate", "path": "/watch/music-0-z"}))
	readUntil(t, conn, notify.TypeResults)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "action", "action": "save"}))
	state := readUntil(t, conn, notify.TypeState)
	var watch struct {
		Saved bool `json:"saved"`
	}
	require.NoError(t, json.Unmarshal(state.Payload, &watch))
	assert.True(t, watch.Saved)
}

func TestWebSocket_ShutdownSendsGoingAway(t *testing.T) {
	s, addr := liveServer(t)
	clientID := "0b7e1c52-6f0d-4c1e-8d3a-2f9a7b1c4e21"
	token, err := s.tokens.Issue(clientID)
	require.NoError(t, err)

	conn := dial(t, addr, token)
	require.Eventually(t, func() bool { return s.hub.Connections(clientID) == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.hub.Shutdown(context.Background()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
		return
	}
}
