// Package protocol implements the binary framing used by the bidirectional
// TTS WebSocket API.
//
// Wire format (all multi-byte integers big-endian):
//
//	┌──────────┬─────────────┬──────────┬──────┬───────────────┬─────────────┐
//	│ version  │ header size │ type     │ flag │ serialization │ compression │
//	│ (4 bits) │ (4 bits)    │ (4 bits) │ (4)  │ (4 bits)      │ (4 bits)    │
//	└──────────┴─────────────┴──────────┴──────┴───────────────┴─────────────┘
//	zero padding up to header size × 4 bytes
//	[event int32]                     flag == WithEvent
//	[session id uint32 len + bytes]   WithEvent and event is session scoped
//	[connect id uint32 len + bytes]   WithEvent and event is a connection reply
//	[sequence int32]                  data-bearing type with Positive/NegativeSeq
//	[error code uint32]               type == Error
//	payload uint32 len + bytes
package protocol
