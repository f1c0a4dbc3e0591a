package server_test

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tyrowin/presencechat/internal/presence"
	"github.com/Tyrowin/presencechat/internal/server"
)

const (
	testOrigin  = "http://localhost:5173"
	readTimeout = 2 * time.Second
	quietPeriod = 300 * time.Millisecond
)

// testEnv is one isolated server: its own core, hub and listener.
type testEnv struct {
	srv   *server.Server
	http  *httptest.Server
	wsURL string
}

func newTestEnv(t *testing.T, customize func(cfg *server.Config)) *testEnv {
	t.Helper()
	cfg := server.NewConfig()
	if customize != nil {
		customize(cfg)
	}

	srv := server.New(cfg, nil, zap.NewNop())
	go srv.Hub().Run()

	ts := httptest.NewServer(srv.SetupRoutes())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Hub().Shutdown(2 * time.Second)
	})

	return &testEnv{
		srv:   srv,
		http:  ts,
		wsURL: "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
	}
}

// dial opens a WebSocket connection with an allowed Origin header.
func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, err := dialWithOrigin(e.wsURL, testOrigin)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func dialWithOrigin(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(presence.Envelope{Event: event, Data: raw}))
}

// readUntil reads frames until one carries event, skipping everything else.
func readUntil(t *testing.T, conn *websocket.Conn, event string) presence.Envelope {
	t.Helper()
	deadline := time.Now().Add(readTimeout)
	require.NoError(t, conn.SetReadDeadline(deadline))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	for {
		var env presence.Envelope
		err := conn.ReadJSON(&env)
		require.NoError(t, err, "waiting for %q", event)
		if env.Event == event {
			return env
		}
	}
}

// expectNoEvent fails if event arrives on conn within the quiet period.
func expectNoEvent(t *testing.T, conn *websocket.Conn, event string) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(quietPeriod)))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	for {
		var env presence.Envelope
		err := conn.ReadJSON(&env)
		if err != nil {
			var netErr net.Error
			if ok := asNetError(err, &netErr); ok && netErr.Timeout() {
				return
			}
			t.Fatalf("Unexpected error while waiting for absence of %q: %v", event, err)
		}
		if env.Event == event {
			t.Fatalf("Expected no %q event, got %s", event, string(env.Data))
		}
	}
}

func asNetError(err error, target *net.Error) bool {
	netErr, ok := err.(net.Error)
	if ok {
		*target = netErr
	}
	return ok
}

// announce sends online for id and waits for the server to confirm it back
// on the same connection.
func announce(t *testing.T, conn *websocket.Conn, id presence.Identity) {
	t.Helper()
	sendEvent(t, conn, presence.EventOnline, presence.IdentityPayload{UserID: id})
	readUntil(t, conn, presence.EventOnlineUsers)
}

func decodeData[T any](t *testing.T, env presence.Envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}
