package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tyrowin/presencechat/internal/presence"
	"github.com/Tyrowin/presencechat/internal/server"
	"github.com/Tyrowin/presencechat/internal/statusstore"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func dialServer(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	headers := http.Header{}
	headers.Set("Origin", "http://localhost:5173")

	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		c, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", headers)
		if resp != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 5*time.Second, 20*time.Millisecond)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func announceOnline(t *testing.T, conn *websocket.Conn, id presence.Identity) {
	t.Helper()
	data, err := json.Marshal(presence.IdentityPayload{UserID: id})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(presence.Envelope{Event: presence.EventOnline, Data: data}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var env presence.Envelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Event == presence.EventOnlineUsers {
			return
		}
	}
}

// TestRunShutdownMirrorsOfflineTransitions verifies that users still
// connected at shutdown end up offline in Redis once run returns.
func TestRunShutdownMirrorsOfflineTransitions(t *testing.T) {
	mr := miniredis.RunT(t)

	config := server.NewConfig()
	config.Port = freeAddr(t)
	config.RedisAddr = mr.Addr()
	config.ShutdownTimeout = 2 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, zap.NewNop(), config) }()

	alice := dialServer(t, config.Port)
	bob := dialServer(t, config.Port)
	announceOnline(t, alice, "alice")
	announceOnline(t, bob, "bob")

	require.Eventually(t, func() bool {
		return mr.HGet(statusstore.Key("alice"), "status") == "online" &&
			mr.HGet(statusstore.Key("bob"), "status") == "online"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancellation")
	}

	require.Equal(t, "offline", mr.HGet(statusstore.Key("alice"), "status"))
	require.Equal(t, "offline", mr.HGet(statusstore.Key("bob"), "status"))
}

func TestRunFailsWhenRedisIsUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	config := server.NewConfig()
	config.Port = freeAddr(t)
	config.RedisAddr = addr

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, zap.NewNop(), config)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ping redis")
}
