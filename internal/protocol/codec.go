package protocol

import (
	"encoding/binary"
	"math"

	"github.com/book-expert/doubao-tts-service/internal/core"
)

const (
	// FixedHeaderSize is the number of meaningful header bytes; the rest of
	// the declared header length is zero padding.
	FixedHeaderSize = 3

	lowNibble = 0x0F
)

// header is the fixed part of a frame, parsed once. Every optional-field
// decision is derived from it.
type header struct {
	version       Version
	size          HeaderSize
	msgType       MsgType
	flag          Flag
	serialization Serialization
	compression   Compression
}

func (h header) hasEvent() bool {
	return h.flag == FlagWithEvent
}

func (h header) hasSequence() bool {
	return h.msgType.IsDataBearing() && h.flag.HasSequence()
}

func (h header) hasErrorCode() bool {
	return h.msgType == MsgTypeError
}

func (h header) validate() error {
	if !h.msgType.IsKnown() {
		return core.NewFrameError("unsupported message type: %s", h.msgType)
	}

	if h.size < HeaderSize4 || h.size > HeaderSize16 {
		return core.NewFrameError("invalid header size: %d", h.size)
	}

	return nil
}

func parseHeader(data []byte) (header, error) {
	if len(data) < FixedHeaderSize {
		return header{}, core.NewFrameError("data too short: expected at least %d bytes, got %d",
			FixedHeaderSize, len(data))
	}

	parsed := header{
		version:       Version(data[0] >> 4),
		size:          HeaderSize(data[0] & lowNibble),
		msgType:       MsgType(data[1] >> 4),
		flag:          Flag(data[1] & lowNibble),
		serialization: Serialization(data[2] >> 4),
		compression:   Compression(data[2] & lowNibble),
	}

	err := parsed.validate()
	if err != nil {
		return header{}, err
	}

	if len(data) < parsed.size.Bytes() {
		return header{}, core.NewFrameError("header truncated: declared %d bytes, got %d",
			parsed.size.Bytes(), len(data))
	}

	return parsed, nil
}

// Encode serialises a message: the fixed header, zero padding up to the
// declared header size, then event, session or connect id, sequence or
// error code, and the length-prefixed payload.
func Encode(msg *Message) ([]byte, error) {
	head := header{
		version:       msg.Version,
		size:          msg.HeaderSize,
		msgType:       msg.Type,
		flag:          msg.Flag,
		serialization: msg.Serialization,
		compression:   msg.Compression,
	}

	err := head.validate()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, head.size.Bytes(), head.size.Bytes()+len(msg.SessionID)+len(msg.Payload)+16)
	buf[0] = byte(head.version)<<4 | byte(head.size)&lowNibble
	buf[1] = byte(head.msgType)<<4 | byte(head.flag)&lowNibble
	buf[2] = byte(head.serialization)<<4 | byte(head.compression)&lowNibble

	if head.hasEvent() {
		buf = binary.BigEndian.AppendUint32(buf, uint32(msg.Event))

		switch {
		case msg.Event.HasSessionID():
			buf, err = appendLenPrefixed(buf, []byte(msg.SessionID), "session id")
		case msg.Event.HasConnectID():
			buf, err = appendLenPrefixed(buf, []byte(msg.ConnectID), "connect id")
		}

		if err != nil {
			return nil, err
		}
	}

	if head.hasSequence() {
		buf = binary.BigEndian.AppendUint32(buf, uint32(msg.Sequence))
	} else if head.hasErrorCode() {
		buf = binary.BigEndian.AppendUint32(buf, msg.ErrorCode)
	}

	return appendLenPrefixed(buf, msg.Payload, "payload")
}

func appendLenPrefixed(buf, field []byte, name string) ([]byte, error) {
	if uint64(len(field)) > math.MaxUint32 {
		return nil, core.NewFrameError("%s too long: %d bytes", name, len(field))
	}

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(field)))

	return append(buf, field...), nil
}

// Decode parses exactly one message from data. Trailing bytes after the
// payload are an error.
func Decode(data []byte) (*Message, error) {
	head, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		Version:       head.version,
		HeaderSize:    head.size,
		Type:          head.msgType,
		Flag:          head.flag,
		Serialization: head.serialization,
		Compression:   head.compression,
	}

	r := &reader{buf: data, pos: head.size.Bytes()}

	if head.hasEvent() {
		event, readErr := r.readUint32("event")
		if readErr != nil {
			return nil, readErr
		}

		msg.Event = Event(int32(event))

		switch {
		case msg.Event.HasSessionID():
			msg.SessionID, err = r.readString("session id")
		case msg.Event.HasConnectID():
			msg.ConnectID, err = r.readString("connect id")
		}

		if err != nil {
			return nil, err
		}
	}

	if head.hasSequence() {
		seq, readErr := r.readUint32("sequence")
		if readErr != nil {
			return nil, readErr
		}

		msg.Sequence = int32(seq)
	} else if head.hasErrorCode() {
		msg.ErrorCode, err = r.readUint32("error code")
		if err != nil {
			return nil, err
		}
	}

	payload, err := r.readLenPrefixed("payload")
	if err != nil {
		return nil, err
	}

	msg.Payload = append([]byte(nil), payload...)

	if rest := r.remaining(); rest > 0 {
		return nil, core.NewFrameError("unexpected trailing data: %d bytes", rest)
	}

	return msg, nil
}

// reader walks a frame buffer; every read is bounds checked.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *reader) next(n uint64, field string) ([]byte, error) {
	if n > uint64(r.remaining()) {
		return nil, core.NewFrameError("truncated %s: need %d bytes, have %d", field, n, r.remaining())
	}

	out := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)

	return out, nil
}

func (r *reader) readUint32(field string) (uint32, error) {
	raw, err := r.next(4, field)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(raw), nil
}

func (r *reader) readLenPrefixed(field string) ([]byte, error) {
	size, err := r.readUint32(field + " length")
	if err != nil {
		return nil, err
	}

	return r.next(uint64(size), field)
}

func (r *reader) readString(field string) (string, error) {
	raw, err := r.readLenPrefixed(field)
	if err != nil {
		return "", err
	}

	return string(raw), nil
}
