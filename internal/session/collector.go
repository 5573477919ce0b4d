package session

import (
	"bytes"

	"github.com/book-expert/doubao-tts-service/internal/core"
	"github.com/book-expert/doubao-tts-service/internal/metrics"
	"github.com/book-expert/doubao-tts-service/internal/protocol"
	"github.com/book-expert/logger"
)

// informational events may arrive during streaming and carry no audio.
var informational = map[protocol.Event]bool{
	protocol.EventTTSSentenceStart: true,
	protocol.EventTTSSentenceEnd:   true,
	protocol.EventTTSResponse:      true,
	protocol.EventTTSEnded:         true,
	protocol.EventUsageResponse:    true,
}

// Collector accumulates the audio of one session until it finishes.
type Collector struct {
	conn      core.Conn
	sessionID string
	log       *logger.Logger
	metrics   *metrics.Metrics
	audio     bytes.Buffer
}

// NewCollector creates a Collector for sessionID.
func NewCollector(conn core.Conn, sessionID string, log *logger.Logger, m *metrics.Metrics) *Collector {
	return &Collector{
		conn:      conn,
		sessionID: sessionID,
		log:       log,
		metrics:   m,
		audio:     bytes.Buffer{},
	}
}

// Collect reads frames until SessionFinished and returns the audio payloads
// in arrival order. On failure no partial audio is returned.
func (c *Collector) Collect() ([]byte, error) {
	for {
		msg, err := receiveMessage(c.conn, c.metrics)
		if err != nil {
			return nil, err
		}

		done, err := c.handle(msg)
		if err != nil {
			return nil, err
		}

		if done {
			return c.audio.Bytes(), nil
		}
	}
}

func (c *Collector) handle(msg *protocol.Message) (bool, error) {
	// Error frames fail the session whatever session id they carry.
	if msg.Type == protocol.MsgTypeError {
		return false, protocolError(msg)
	}

	if msg.SessionID != "" && msg.SessionID != c.sessionID {
		c.drop(msg, "foreign session "+msg.SessionID)

		return false, nil
	}

	if msg.Type == protocol.MsgTypeAudioOnlyServer {
		chunk, err := payloadBytes(msg)
		if err != nil {
			return false, err
		}

		c.audio.Write(chunk)
		c.metrics.AudioReceived(len(chunk))

		return false, nil
	}

	if msg.Type == protocol.MsgTypeFullServerResponse {
		switch msg.Event {
		case protocol.EventSessionFinished:
			return true, sessionFinished(msg)
		case protocol.EventSessionFailed, protocol.EventSessionCanceled:
			return false, sessionFailure(msg)
		default:
		}

		if informational[msg.Event] {
			return false, nil
		}
	}

	c.drop(msg, "unexpected frame")

	return false, nil
}

func (c *Collector) drop(msg *protocol.Message, reason string) {
	c.log.Warn("Discarding frame (%s): %s", reason, msg)
	c.metrics.FrameDropped()
}
