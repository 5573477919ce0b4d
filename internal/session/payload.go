package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/book-expert/doubao-tts-service/internal/core"
	"github.com/book-expert/doubao-tts-service/internal/protocol"
	gzip "github.com/klauspost/compress/gzip"
)

// SuccessStatusCode is the status_code of a successfully finished session.
const SuccessStatusCode = 20000000

// statusPayload is the JSON body of session lifecycle responses.
type statusPayload struct {
	StatusCode *int64 `json:"status_code"`
	Message    string `json:"message"`
}

// payloadBytes returns the payload of msg, gunzipped when the frame declares
// gzip compression.
func payloadBytes(msg *protocol.Message) ([]byte, error) {
	if msg.Compression != protocol.CompressionGzip || len(msg.Payload) == 0 {
		return msg.Payload, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(msg.Payload))
	if err != nil {
		return nil, core.NewFrameError("invalid gzip payload: %v", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, core.NewFrameError("invalid gzip payload: %v", err)
	}

	return data, nil
}

// compressPayload gzips a client payload.
func compressPayload(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	zw := gzip.NewWriter(&buf)

	_, err := zw.Write(data)
	if err != nil {
		return nil, fmt.Errorf("failed to gzip payload: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to gzip payload: %w", err)
	}

	return buf.Bytes(), nil
}

// payloadText renders the (decompressed) payload as text.
func payloadText(msg *protocol.Message) string {
	data, err := payloadBytes(msg)
	if err != nil {
		data = msg.Payload
	}

	return protocol.PayloadText(data)
}

// decodeStatus parses a status payload. ok is false when the payload is
// empty or not a JSON object.
func decodeStatus(msg *protocol.Message) (statusPayload, bool) {
	var status statusPayload

	data, err := payloadBytes(msg)
	if err != nil || len(data) == 0 {
		return status, false
	}

	err = json.Unmarshal(data, &status)
	if err != nil {
		return statusPayload{}, false
	}

	return status, true
}

// protocolError converts a server Error frame.
func protocolError(msg *protocol.Message) *core.ProtocolError {
	return &core.ProtocolError{Code: msg.ErrorCode, Message: payloadText(msg)}
}

// sessionFailure converts a SessionFailed or SessionCanceled frame, using
// the decoded message when there is one and the raw payload otherwise.
func sessionFailure(msg *protocol.Message) *core.SessionError {
	failure := &core.SessionError{Event: msg.Event.String(), StatusCode: 0, Message: ""}

	status, ok := decodeStatus(msg)
	if ok && status.StatusCode != nil {
		failure.StatusCode = *status.StatusCode
	}

	if ok && status.Message != "" {
		failure.Message = status.Message
	} else {
		failure.Message = payloadText(msg)
	}

	return failure
}

// sessionFinished checks the status of a SessionFinished frame. A missing
// status code counts as success.
func sessionFinished(msg *protocol.Message) error {
	status, ok := decodeStatus(msg)
	if !ok || status.StatusCode == nil || *status.StatusCode == SuccessStatusCode {
		return nil
	}

	return &core.SessionError{
		Event:      msg.Event.String(),
		StatusCode: *status.StatusCode,
		Message:    status.Message,
	}
}
