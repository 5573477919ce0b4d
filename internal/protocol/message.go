package protocol

import (
	"fmt"
	"strings"
)

// Message is a single protocol frame. Which optional fields are present on
// the wire is derived from Type, Flag and Event; fields that do not apply to
// the combination are ignored on encode and left zero on decode.
type Message struct {
	Version       Version
	HeaderSize    HeaderSize
	Type          MsgType
	Flag          Flag
	Serialization Serialization
	Compression   Compression

	Event     Event
	SessionID string
	ConnectID string
	Sequence  int32
	ErrorCode uint32
	Payload   []byte
}

// NewMessage creates a message with the default header: version 1, a
// four-byte header, JSON serialisation and no compression.
func NewMessage(msgType MsgType, flag Flag) *Message {
	return &Message{
		Version:       Version1,
		HeaderSize:    HeaderSize4,
		Type:          msgType,
		Flag:          flag,
		Serialization: SerializationJSON,
		Compression:   CompressionNone,
	}
}

// NewEventMessage creates a FullClientRequest/WithEvent message.
func NewEventMessage(event Event, sessionID string, payload []byte) *Message {
	msg := NewMessage(MsgTypeFullClientRequest, FlagWithEvent)
	msg.Event = event
	msg.SessionID = sessionID
	msg.Payload = payload

	return msg
}

// String returns a human-readable representation of the message for logs.
func (m *Message) String() string {
	switch {
	case m.Type == MsgTypeAudioOnlyServer || m.Type == MsgTypeAudioOnlyClient:
		if m.Flag.HasSequence() {
			return fmt.Sprintf("MsgType: %s, EventType: %s, Sequence: %d, PayloadSize: %d",
				m.Type, m.Event, m.Sequence, len(m.Payload))
		}

		return fmt.Sprintf("MsgType: %s, EventType: %s, PayloadSize: %d", m.Type, m.Event, len(m.Payload))
	case m.Type == MsgTypeError:
		return fmt.Sprintf("MsgType: %s, EventType: %s, ErrorCode: %d, Payload: %s",
			m.Type, m.Event, m.ErrorCode, PayloadText(m.Payload))
	case m.Flag.HasSequence():
		return fmt.Sprintf("MsgType: %s, EventType: %s, Sequence: %d, Payload: %s",
			m.Type, m.Event, m.Sequence, PayloadText(m.Payload))
	default:
		return fmt.Sprintf("MsgType: %s, EventType: %s, Payload: %s", m.Type, m.Event, PayloadText(m.Payload))
	}
}

// PayloadText renders a payload as text, dropping invalid UTF-8 sequences.
func PayloadText(payload []byte) string {
	return strings.ToValidUTF8(string(payload), "")
}
