// Package core defines the core business logic and interfaces for the TTS service.
package core

import (
	"context"
	"net/http"
)

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// TTSConfig holds the configuration for a single TTS processing job.
// This allows for per-request customization of the TTS output.
type TTSConfig struct {
	// Voice is either a catalogue display name or a raw voice_type.
	Voice           string
	Format          string
	SampleRate      int
	SpeechRate      int
	PitchRate       int
	EnableTimestamp bool
}

// TTSProcessor defines the interface for a text-to-speech processing engine.
type TTSProcessor interface {
	Process(ctx context.Context, text []byte, cfg TTSConfig) ([]byte, error)
	GetConfig() TTSConfig
}

// Conn is a message-oriented, ordered, reliable duplex channel carrying whole
// binary frames. Close must be safe to call more than once.
type Conn interface {
	Send(frame []byte) error
	Receive() ([]byte, error)
	Close() error
}

// Dialer opens a Conn to an endpoint with the given handshake headers.
type Dialer interface {
	Dial(ctx context.Context, endpoint string, header http.Header) (Conn, error)
}
