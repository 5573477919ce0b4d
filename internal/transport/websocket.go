// Package transport carries protocol frames over a WebSocket connection.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/book-expert/doubao-tts-service/internal/core"
	"github.com/gorilla/websocket"
)

const (
	// DefaultMaxMessageBytes bounds a single inbound frame.
	DefaultMaxMessageBytes = 10 * 1024 * 1024

	closeWriteTimeout = time.Second
)

// ErrTextFrame is returned when the peer sends a text frame instead of a binary one.
var ErrTextFrame = errors.New("unexpected text frame")

// Suggestions appended to handshake failures.
const (
	hintCredentials = "check the App ID and Access Token, make sure the resource id is " +
		"volc.service_type.10029 and the TTS v3 service is enabled in the console"
	hintNetwork = "check that openspeech.bytedance.com is reachable and that no " +
		"firewall or proxy blocks WebSocket traffic"
	hintTimeout = "shorten the text or split it into several requests, then try again"
)

// Dialer opens WebSocket connections.
type Dialer struct {
	dialer          *websocket.Dialer
	maxMessageBytes int64
}

// NewDialer creates a Dialer. A zero maxMessageBytes falls back to
// DefaultMaxMessageBytes.
func NewDialer(handshakeTimeout time.Duration, maxMessageBytes int64) *Dialer {
	if maxMessageBytes <= 0 {
		maxMessageBytes = DefaultMaxMessageBytes
	}

	return &Dialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		maxMessageBytes: maxMessageBytes,
	}
}

// Dial connects to endpoint, sending header with the upgrade request.
func (d *Dialer) Dial(ctx context.Context, endpoint string, header http.Header) (core.Conn, error) {
	wsConn, resp, err := d.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			err = fmt.Errorf("%w (HTTP %s)", err, resp.Status)
		}

		return nil, &core.TransportError{Op: "connect", Hint: Suggestion(err.Error()), Err: err}
	}

	wsConn.SetReadLimit(d.maxMessageBytes)

	return &Conn{ws: wsConn}, nil
}

// Suggestion maps a connection failure to an actionable hint, or "" when
// nothing specific applies.
func Suggestion(errText string) string {
	lower := strings.ToLower(errText)

	switch {
	case strings.Contains(lower, "access denied"), strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "401"), strings.Contains(lower, "403"):
		return hintCredentials
	case strings.Contains(lower, "timeout"):
		return hintTimeout
	case strings.Contains(lower, "connect"):
		return hintNetwork
	default:
		return ""
	}
}

// Conn is a WebSocket connection that exchanges whole binary frames.
// Send and Receive must each be used by a single goroutine; Close may be
// called concurrently and more than once.
type Conn struct {
	ws        *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

// Send writes one binary frame.
func (c *Conn) Send(frame []byte) error {
	err := c.ws.WriteMessage(websocket.BinaryMessage, frame)
	if err != nil {
		return &core.TransportError{Op: "send", Err: err}
	}

	return nil
}

// Receive reads the next frame. Text frames are rejected.
func (c *Conn) Receive() ([]byte, error) {
	messageType, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, &core.TransportError{Op: "receive", Err: err}
	}

	if messageType != websocket.BinaryMessage {
		return nil, &core.TransportError{Op: "receive", Err: fmt.Errorf("%w: %q", ErrTextFrame, data)}
	}

	return data, nil
}

// Close sends a normal close frame and releases the connection.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(closeWriteTimeout)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)

		err := c.ws.Close()
		if err != nil {
			c.closeErr = &core.TransportError{Op: "close", Err: err}
		}
	})

	return c.closeErr
}
