// Package session drives one bidirectional TTS exchange over an open
// connection: the connection handshake, the synthesis session, audio
// collection and the orderly close.
package session

import (
	"fmt"

	"github.com/book-expert/doubao-tts-service/internal/core"
	"github.com/book-expert/doubao-tts-service/internal/metrics"
	"github.com/book-expert/doubao-tts-service/internal/protocol"
	"github.com/book-expert/logger"
)

// State is a step in the lifecycle of a connection.
type State int

const (
	StateIdle State = iota
	StateAwaitingConnection
	StateConnectionActive
	StateAwaitingSession
	StateSessionActive
	StateStreaming
	StateSessionDone
	StateAwaitingConnectionClose
	StateClosed
	StateFailed
)

var stateNames = [...]string{
	StateIdle:                    "Idle",
	StateAwaitingConnection:      "AwaitingConnection",
	StateConnectionActive:        "ConnectionActive",
	StateAwaitingSession:         "AwaitingSession",
	StateSessionActive:           "SessionActive",
	StateStreaming:               "Streaming",
	StateSessionDone:             "SessionDone",
	StateAwaitingConnectionClose: "AwaitingConnectionClose",
	StateClosed:                  "Closed",
	StateFailed:                  "Failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// emptyObject is the payload of control events that carry no parameters.
var emptyObject = []byte("{}")

// Request is one synthesis exchange.
type Request struct {
	SessionID string
	// ConnectID is reported when the server does not echo one in
	// ConnectionStarted.
	ConnectID string
	Metadata  Metadata
	Text      string
	// Compression applies to the JSON payloads this client sends.
	Compression protocol.Compression
}

// Result is the outcome of a successful exchange.
type Result struct {
	Audio     []byte
	SessionID string
	ConnectID string
}

// Machine runs the exchange on a single connection. It is not safe for
// concurrent use and must not be reused.
type Machine struct {
	conn        core.Conn
	log         *logger.Logger
	metrics     *metrics.Metrics
	state       State
	compression protocol.Compression
}

// NewMachine creates a Machine in the Idle state. m may be nil.
func NewMachine(conn core.Conn, log *logger.Logger, m *metrics.Metrics) *Machine {
	return &Machine{
		conn:        conn,
		log:         log,
		metrics:     m,
		state:       StateIdle,
		compression: protocol.CompressionNone,
	}
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	return m.state
}

// Run performs the whole exchange and returns the concatenated audio.
// The connection is not closed; that is the caller's responsibility.
func (m *Machine) Run(req Request) (*Result, error) {
	if m.state != StateIdle {
		return nil, fmt.Errorf("%w: machine already ran (state %s)", core.ErrProtocol, m.state)
	}

	m.compression = req.Compression

	result, err := m.run(req)
	if err != nil {
		m.state = StateFailed

		return nil, err
	}

	return result, nil
}

func (m *Machine) run(req Request) (*Result, error) {
	connectID, err := m.openConnection(req.ConnectID)
	if err != nil {
		return nil, err
	}

	err = m.openSession(req)
	if err != nil {
		return nil, err
	}

	audio, err := m.stream(req)
	if err != nil {
		return nil, err
	}

	err = m.closeConnection()
	if err != nil {
		return nil, err
	}

	return &Result{Audio: audio, SessionID: req.SessionID, ConnectID: connectID}, nil
}

func (m *Machine) openConnection(fallbackConnectID string) (string, error) {
	err := m.send(protocol.EventStartConnection, "", emptyObject, StateAwaitingConnection)
	if err != nil {
		return "", err
	}

	started, err := m.WaitForEvent(protocol.MsgTypeFullServerResponse, protocol.EventConnectionStarted)
	if err != nil {
		return "", err
	}

	connectID := started.ConnectID
	if connectID == "" {
		connectID = fallbackConnectID
	}

	m.state = StateConnectionActive
	m.log.Info("Connection started (connect id: %s)", connectID)

	return connectID, nil
}

func (m *Machine) openSession(req Request) error {
	payload, err := req.Metadata.StartSessionPayload()
	if err != nil {
		return err
	}

	err = m.send(protocol.EventStartSession, req.SessionID, payload, StateAwaitingSession)
	if err != nil {
		return err
	}

	_, err = m.WaitForEvent(protocol.MsgTypeFullServerResponse, protocol.EventSessionStarted)
	if err != nil {
		return err
	}

	m.state = StateSessionActive
	m.log.Info("Session started (session id: %s)", req.SessionID)

	return nil
}

func (m *Machine) stream(req Request) ([]byte, error) {
	payload, err := req.Metadata.TaskPayload(req.Text)
	if err != nil {
		return nil, err
	}

	err = m.send(protocol.EventTaskRequest, req.SessionID, payload, StateSessionActive)
	if err != nil {
		return nil, err
	}

	err = m.send(protocol.EventFinishSession, req.SessionID, emptyObject, StateStreaming)
	if err != nil {
		return nil, err
	}

	audio, err := NewCollector(m.conn, req.SessionID, m.log, m.metrics).Collect()
	if err != nil {
		return nil, err
	}

	if len(audio) == 0 {
		return nil, fmt.Errorf("session %s: %w", req.SessionID, core.ErrEmptyStream)
	}

	m.state = StateSessionDone
	m.log.Info("Session finished with %d bytes of audio", len(audio))

	return audio, nil
}

func (m *Machine) closeConnection() error {
	err := m.send(protocol.EventFinishConnection, "", emptyObject, StateAwaitingConnectionClose)
	if err != nil {
		return err
	}

	_, err = m.WaitForEvent(protocol.MsgTypeFullServerResponse, protocol.EventConnectionFinished)
	if err != nil {
		return err
	}

	m.state = StateClosed

	return nil
}

// send encodes and writes a client event, then moves to next.
func (m *Machine) send(event protocol.Event, sessionID string, payload []byte, next State) error {
	msg := protocol.NewEventMessage(event, sessionID, payload)

	if m.compression == protocol.CompressionGzip {
		compressed, err := compressPayload(payload)
		if err != nil {
			return err
		}

		msg.Compression = protocol.CompressionGzip
		msg.Payload = compressed
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	err = m.conn.Send(data)
	if err != nil {
		return err
	}

	m.metrics.FrameSent(event.String())
	m.state = next

	return nil
}

// WaitForEvent reads frames until one matches msgType and event. Error
// frames, ConnectionFailed, SessionFailed and SessionCanceled end the wait
// with an error; every other frame is discarded.
func (m *Machine) WaitForEvent(msgType protocol.MsgType, event protocol.Event) (*protocol.Message, error) {
	for {
		msg, err := receiveMessage(m.conn, m.metrics)
		if err != nil {
			return nil, err
		}

		if msg.Type == protocol.MsgTypeError {
			return nil, protocolError(msg)
		}

		if msg.Type == msgType && msg.Event == event {
			return msg, nil
		}

		switch msg.Event {
		case protocol.EventConnectionFailed:
			return nil, &core.ProtocolError{Code: 0, Message: "connection failed: " + payloadText(msg)}
		case protocol.EventSessionFailed, protocol.EventSessionCanceled:
			return nil, sessionFailure(msg)
		default:
		}

		m.log.Info("Discarding %s while waiting for %s", msg, event)
		m.metrics.FrameDropped()
	}
}

// receiveMessage reads and decodes the next frame.
func receiveMessage(conn core.Conn, m *metrics.Metrics) (*protocol.Message, error) {
	data, err := conn.Receive()
	if err != nil {
		return nil, err
	}

	msg, err := protocol.Decode(data)
	if err != nil {
		return nil, err
	}

	m.FrameReceived(msg.Type.String())

	return msg, nil
}
