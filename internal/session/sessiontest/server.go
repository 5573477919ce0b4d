// Package sessiontest provides an in-process bidirectional TTS endpoint for tests.
package sessiontest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/book-expert/doubao-tts-service/internal/protocol"
	"github.com/gorilla/websocket"
	gzip "github.com/klauspost/compress/gzip"
)

// SuccessPayload is the SessionFinished body of a successful session.
const SuccessPayload = `{"status_code":20000000,"message":"ok"}`

// Server answers each client event the way the real endpoint does and
// streams its chunks as the audio of every session. Handshakes without an
// X-Api-App-Key header are rejected with 401.
type Server struct {
	*httptest.Server

	chunks []string

	mu          sync.Mutex
	header      http.Header
	task        map[string]any
	connections int
}

// NewServer starts a Server that is closed when the test ends.
func NewServer(t testing.TB, chunks ...string) *Server {
	t.Helper()

	srv := &Server{chunks: chunks}
	upgrader := websocket.Upgrader{}

	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-App-Key") == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)

			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		srv.mu.Lock()
		srv.header = r.Header.Clone()
		srv.connections++
		srv.mu.Unlock()

		srv.serve(conn, r.Header.Get("X-Api-Connect-Id"))
	}))
	t.Cleanup(srv.Close)

	return srv
}

// Endpoint is the ws:// URL of the server.
func (s *Server) Endpoint() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

// Header returns the handshake headers of the latest connection.
func (s *Server) Header() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.header.Clone()
}

// Connections counts accepted connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connections
}

// TaskParams returns req_params of the latest TaskRequest, or nil.
func (s *Server) TaskParams() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, _ := s.task["req_params"].(map[string]any)

	return params
}

func (s *Server) serve(conn *websocket.Conn, connectID string) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		request, err := protocol.Decode(data)
		if err != nil {
			return
		}

		if request.Event == protocol.EventTaskRequest {
			s.recordTask(request)
		}

		for _, reply := range s.replies(request, connectID) {
			encoded, encodeErr := protocol.Encode(reply)
			if encodeErr != nil {
				return
			}

			if conn.WriteMessage(websocket.BinaryMessage, encoded) != nil {
				return
			}
		}

		if request.Event == protocol.EventFinishConnection {
			return
		}
	}
}

func (s *Server) recordTask(request *protocol.Message) {
	payload := request.Payload

	if request.Compression == protocol.CompressionGzip {
		zr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return
		}

		payload, err = io.ReadAll(zr)
		if err != nil {
			return
		}
	}

	var task map[string]any
	if json.Unmarshal(payload, &task) != nil {
		return
	}

	s.mu.Lock()
	s.task = task
	s.mu.Unlock()
}

func (s *Server) replies(request *protocol.Message, connectID string) []*protocol.Message {
	response := func(event protocol.Event, payload string) *protocol.Message {
		msg := protocol.NewMessage(protocol.MsgTypeFullServerResponse, protocol.FlagWithEvent)
		msg.Event = event
		msg.Payload = []byte(payload)

		if event.HasConnectID() {
			msg.ConnectID = connectID
		} else {
			msg.SessionID = request.SessionID
		}

		return msg
	}

	switch request.Event {
	case protocol.EventStartConnection:
		return []*protocol.Message{response(protocol.EventConnectionStarted, "{}")}
	case protocol.EventStartSession:
		return []*protocol.Message{response(protocol.EventSessionStarted, "{}")}
	case protocol.EventFinishSession:
		replies := make([]*protocol.Message, 0, len(s.chunks)+2)
		replies = append(replies, response(protocol.EventTTSSentenceStart, "{}"))

		for _, chunk := range s.chunks {
			msg := protocol.NewMessage(protocol.MsgTypeAudioOnlyServer, protocol.FlagWithEvent)
			msg.Event = protocol.EventTTSResponse
			msg.SessionID = request.SessionID
			msg.Serialization = protocol.SerializationRaw
			msg.Payload = []byte(chunk)
			replies = append(replies, msg)
		}

		return append(replies, response(protocol.EventSessionFinished, SuccessPayload))
	case protocol.EventFinishConnection:
		return []*protocol.Message{response(protocol.EventConnectionFinished, "{}")}
	default:
		return nil
	}
}
