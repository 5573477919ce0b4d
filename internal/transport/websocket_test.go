package transport_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/book-expert/doubao-tts-service/internal/core"
	"github.com/book-expert/doubao-tts-service/internal/transport"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func newServer(t *testing.T, handle func(*websocket.Conn, *http.Request)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		handle(conn, r)
	}))
	t.Cleanup(server.Close)

	return server
}

func TestConn_SendReceiveBinary(t *testing.T) {
	t.Parallel()

	headers := make(chan http.Header, 1)
	server := newServer(t, func(conn *websocket.Conn, r *http.Request) {
		headers <- r.Header.Clone()

		messageType, data, err := conn.ReadMessage()
		if err != nil || messageType != websocket.BinaryMessage {
			return
		}

		_ = conn.WriteMessage(websocket.BinaryMessage, append([]byte("echo:"), data...))
	})

	header := http.Header{}
	header.Set("X-Api-App-Key", "1234567890")

	dialer := transport.NewDialer(5*time.Second, 0)
	conn, err := dialer.Dial(context.Background(), wsURL(server), header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Send([]byte{0x11, 0x14}))

	frame, err := conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, []byte("echo:\x11\x14"), frame)
	assert.Equal(t, "1234567890", (<-headers).Get("X-Api-App-Key"))
}

func TestConn_RejectsTextFrame(t *testing.T) {
	t.Parallel()

	server := newServer(t, func(conn *websocket.Conn, _ *http.Request) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		_, _, _ = conn.ReadMessage()
	})

	conn, err := transport.NewDialer(5*time.Second, 0).Dial(context.Background(), wsURL(server), nil)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Receive()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTransport)
	assert.ErrorIs(t, err, transport.ErrTextFrame)
}

func TestConn_ReceiveAfterPeerClose(t *testing.T) {
	t.Parallel()

	server := newServer(t, func(_ *websocket.Conn, _ *http.Request) {})

	conn, err := transport.NewDialer(5*time.Second, 0).Dial(context.Background(), wsURL(server), nil)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Receive()
	require.Error(t, err)

	var transportErr *core.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "receive", transportErr.Op)
}

func TestConn_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	server := newServer(t, func(conn *websocket.Conn, _ *http.Request) {
		_, _, _ = conn.ReadMessage()
	})

	conn, err := transport.NewDialer(5*time.Second, 0).Dial(context.Background(), wsURL(server), nil)
	require.NoError(t, err)

	firstErr := conn.Close()
	secondErr := conn.Close()
	assert.Equal(t, firstErr, secondErr)

	require.Error(t, conn.Send([]byte{0x01}))
}

func TestDialer_HandshakeRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "access denied", http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	_, err := transport.NewDialer(5*time.Second, 0).Dial(context.Background(), wsURL(server), nil)
	require.Error(t, err)

	var transportErr *core.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "connect", transportErr.Op)
	assert.Contains(t, transportErr.Error(), "401")
	assert.Contains(t, transportErr.Hint, "Access Token")
}

func TestSuggestion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		errText  string
		contains string
	}{
		{errText: "websocket: bad handshake (HTTP 403 Forbidden)", contains: "Access Token"},
		{errText: "dial tcp 10.0.0.1:443: connect: connection refused", contains: "reachable"},
		{errText: "dial tcp: i/o timeout", contains: "shorten the text"},
		{errText: "something else", contains: ""},
	}

	for _, testCase := range tests {
		hint := transport.Suggestion(testCase.errText)
		if testCase.contains == "" {
			assert.Empty(t, hint)

			continue
		}

		assert.Contains(t, hint, testCase.contains)
	}
}
