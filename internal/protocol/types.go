package protocol

import "fmt"

// MsgType identifies the kind of message carried by a frame.
type MsgType uint8

const (
	MsgTypeInvalid              MsgType = 0x0
	MsgTypeFullClientRequest    MsgType = 0x1
	MsgTypeAudioOnlyClient      MsgType = 0x2
	MsgTypeFullServerResponse   MsgType = 0x9
	MsgTypeAudioOnlyServer      MsgType = 0xB
	MsgTypeFrontEndResultServer MsgType = 0xC
	MsgTypeError                MsgType = 0xF
)

// String returns the string representation of the message type.
func (t MsgType) String() string {
	switch t {
	case MsgTypeInvalid:
		return "Invalid"
	case MsgTypeFullClientRequest:
		return "FullClientRequest"
	case MsgTypeAudioOnlyClient:
		return "AudioOnlyClient"
	case MsgTypeFullServerResponse:
		return "FullServerResponse"
	case MsgTypeAudioOnlyServer:
		return "AudioOnlyServer"
	case MsgTypeFrontEndResultServer:
		return "FrontEndResultServer"
	case MsgTypeError:
		return "Error"
	default:
		return fmt.Sprintf("MsgType(%d)", uint8(t))
	}
}

// IsDataBearing reports whether the type may carry a sequence number.
func (t MsgType) IsDataBearing() bool {
	switch t {
	case MsgTypeFullClientRequest, MsgTypeAudioOnlyClient, MsgTypeFullServerResponse,
		MsgTypeAudioOnlyServer, MsgTypeFrontEndResultServer:
		return true
	default:
		return false
	}
}

// IsKnown reports whether the type is one of the six types this codec accepts.
func (t MsgType) IsKnown() bool {
	return t.IsDataBearing() || t == MsgTypeError
}

// Flag refines the message type: sequencing or event framing.
type Flag uint8

const (
	FlagNoSeq       Flag = 0x0
	FlagPositiveSeq Flag = 0x1
	FlagLastNoSeq   Flag = 0x2
	FlagNegativeSeq Flag = 0x3
	FlagWithEvent   Flag = 0x4
)

// String returns the string representation of the flag.
func (f Flag) String() string {
	switch f {
	case FlagNoSeq:
		return "NoSeq"
	case FlagPositiveSeq:
		return "PositiveSeq"
	case FlagLastNoSeq:
		return "LastNoSeq"
	case FlagNegativeSeq:
		return "NegativeSeq"
	case FlagWithEvent:
		return "WithEvent"
	default:
		return fmt.Sprintf("Flag(%d)", uint8(f))
	}
}

// HasSequence reports whether the flag calls for a sequence field.
func (f Flag) HasSequence() bool {
	return f == FlagPositiveSeq || f == FlagNegativeSeq
}

// Version is the protocol version nibble.
type Version uint8

const (
	Version1 Version = 1
	Version2 Version = 2
	Version3 Version = 3
	Version4 Version = 4
)

// HeaderSize is the header length in units of four bytes.
type HeaderSize uint8

const (
	HeaderSize4  HeaderSize = 1
	HeaderSize8  HeaderSize = 2
	HeaderSize12 HeaderSize = 3
	HeaderSize16 HeaderSize = 4
)

// Bytes returns the header length in bytes.
func (h HeaderSize) Bytes() int {
	return int(h) * 4
}

// Serialization describes how the payload is serialised.
type Serialization uint8

const (
	SerializationRaw    Serialization = 0x0
	SerializationJSON   Serialization = 0x1
	SerializationThrift Serialization = 0x3
	SerializationCustom Serialization = 0xF
)

// Compression describes how the payload is compressed.
type Compression uint8

const (
	CompressionNone   Compression = 0x0
	CompressionGzip   Compression = 0x1
	CompressionCustom Compression = 0xF
)
