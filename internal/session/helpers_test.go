package session_test

import (
	"bytes"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/book-expert/doubao-tts-service/internal/core"
	"github.com/book-expert/doubao-tts-service/internal/protocol"
	"github.com/book-expert/doubao-tts-service/internal/session"
	"github.com/book-expert/doubao-tts-service/internal/tts/audio"
	"github.com/book-expert/logger"
	gzip "github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

const (
	testSessionID = "sess-1"
	testConnectID = "conn-1"
	testText      = "你好，世界"
)

// fakeConn replays scripted server frames and records what the client sends.
type fakeConn struct {
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	sent [][]byte
}

// newScriptedConn returns a conn that yields frames and then reports a
// closed channel.
func newScriptedConn(frames ...[]byte) *fakeConn {
	conn := newBlockingConn()
	for _, frame := range frames {
		conn.inbound <- frame
	}

	close(conn.inbound)

	return conn
}

// newBlockingConn returns a conn whose Receive blocks until Close.
func newBlockingConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) Send(frame []byte) error {
	select {
	case <-c.closed:
		return &core.TransportError{Op: "send", Err: io.ErrClosedPipe}
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent = append(c.sent, frame)

	return nil
}

func (c *fakeConn) Receive() ([]byte, error) {
	select {
	case <-c.closed:
		return nil, &core.TransportError{Op: "receive", Err: io.ErrClosedPipe}
	case frame, ok := <-c.inbound:
		if !ok {
			return nil, &core.TransportError{Op: "receive", Err: io.EOF}
		}

		return frame, nil
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })

	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) sentMessages(t *testing.T) []*protocol.Message {
	t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()

	messages := make([]*protocol.Message, 0, len(c.sent))
	for _, frame := range c.sent {
		msg, err := protocol.Decode(frame)
		require.NoError(t, err)

		messages = append(messages, msg)
	}

	return messages
}

func encode(t *testing.T, msg *protocol.Message) []byte {
	t.Helper()

	data, err := protocol.Encode(msg)
	require.NoError(t, err)

	return data
}

func serverEvent(t *testing.T, event protocol.Event, id string, payload string) []byte {
	t.Helper()

	msg := protocol.NewMessage(protocol.MsgTypeFullServerResponse, protocol.FlagWithEvent)
	msg.Event = event
	msg.Payload = []byte(payload)

	if event.HasConnectID() {
		msg.ConnectID = id
	} else {
		msg.SessionID = id
	}

	return encode(t, msg)
}

func audioFrame(t *testing.T, sessionID string, chunk []byte) []byte {
	t.Helper()

	msg := protocol.NewMessage(protocol.MsgTypeAudioOnlyServer, protocol.FlagWithEvent)
	msg.Event = protocol.EventTTSResponse
	msg.SessionID = sessionID
	msg.Serialization = protocol.SerializationRaw
	msg.Payload = chunk

	return encode(t, msg)
}

func errorFrame(t *testing.T, code uint32, text string) []byte {
	t.Helper()

	msg := protocol.NewMessage(protocol.MsgTypeError, protocol.FlagNoSeq)
	msg.ErrorCode = code
	msg.Payload = []byte(text)

	return encode(t, msg)
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

func gunzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	out, err := io.ReadAll(zr)
	require.NoError(t, err)

	return out
}

// handshake is the server side of a successful start of connection and session.
func handshake(t *testing.T) [][]byte {
	t.Helper()

	return [][]byte{
		serverEvent(t, protocol.EventConnectionStarted, testConnectID, "{}"),
		serverEvent(t, protocol.EventSessionStarted, testSessionID, "{}"),
	}
}

func script(parts ...[][]byte) [][]byte {
	var frames [][]byte
	for _, part := range parts {
		frames = append(frames, part...)
	}

	return frames
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "session-test.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	return log
}

func newRequest(t *testing.T) session.Request {
	t.Helper()

	metadata, err := session.NewMetadata("tester", "zh_female_vv_uranus_bigtts", audio.NewDefaultParams(), session.Additions{
		DisableMarkdownFilter:        true,
		EnableLanguageDetector:       true,
		EnableLatexTN:                true,
		MaxLengthToFilterParenthesis: 100,
	})
	require.NoError(t, err)

	return session.Request{
		SessionID:   testSessionID,
		ConnectID:   "fallback-conn",
		Metadata:    metadata,
		Text:        testText,
		Compression: protocol.CompressionNone,
	}
}

func decodeJSON(t *testing.T, data []byte) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	return out
}
