package transport

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func echoServer(t *testing.T, agents chan<- string) string {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.UserAgent()
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			kind, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if err = ws.WriteMessage(kind, append([]byte("echo:"), data...)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDialer_Roundtrip(t *testing.T) {
	req := require.New(t)
	agents := make(chan string, 1)
	endpoint := echoServer(t, agents)
	dialer := NewDialer(logs.GetLoggerFromLevel(slog.LevelDebug), "beam-chat-test")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// When a connection is opened
	conn, err := dialer.Dial(ctx, endpoint)
	req.NoError(err)
	defer conn.Close()

	// Then the configured user agent was sent
	req.Equal("beam-chat-test", <-agents)

	// And text frames go both ways, empty heartbeat frames included
	req.NoError(conn.WriteMessage([]byte(`{"type":"method"}`)))
	data, err := conn.ReadMessage()
	req.NoError(err)
	req.Equal(`echo:{"type":"method"}`, string(data))

	req.NoError(conn.WriteMessage([]byte{}))
	data, err = conn.ReadMessage()
	req.NoError(err)
	req.Equal("echo:", string(data))
}

func TestDialer_Close_Unblocks_Reader(t *testing.T) {
	req := require.New(t)
	agents := make(chan string, 1)
	endpoint := echoServer(t, agents)
	dialer := NewDialer(logs.GetLoggerFromLevel(slog.LevelDebug), "")

	conn, err := dialer.Dial(context.Background(), endpoint)
	req.NoError(err)

	readErr := make(chan error, 1)
	go func() {
		_, err := conn.ReadMessage()
		readErr <- err
	}()

	// When the connection is closed twice
	req.NoError(conn.Close())
	_ = conn.Close()

	// Then the pending read fails
	select {
	case err := <-readErr:
		req.Error(err)
	case <-time.After(2 * time.Second):
		req.Fail("reader was not released")
	}
}

func TestDialer_Unreachable_Endpoint(t *testing.T) {
	req := require.New(t)
	dialer := NewDialer(logs.GetLoggerFromLevel(slog.LevelDebug), "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := dialer.Dial(ctx, "ws://127.0.0.1:1/chat")

	req.Error(err)
}
