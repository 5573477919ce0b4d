// Package audio provides the audio parameter model sent with every synthesis
// session, and its validation.
package audio

import (
	"errors"
	"fmt"
	"slices"
)

// Defaults used when a request leaves a parameter unset.
const (
	DefaultFormat     = FormatMP3
	DefaultSampleRate = 24000
)

// Limits for the rate adjustments accepted by the service.
const (
	MinSpeechRate = -50
	MaxSpeechRate = 100
	MinPitchRate  = -12
	MaxPitchRate  = 12
)

// Error message formats.
const (
	errFmtUnsupportedFormat     = "%w: unsupported format %q"
	errFmtUnsupportedSampleRate = "%w: unsupported sample rate %d Hz"
	errFmtSpeechRateRange       = "%w: speech rate must be between %d and %d, got %d"
	errFmtPitchRateRange        = "%w: pitch rate must be between %d and %d, got %d"
)

// ErrInvalidParams is wrapped by every validation failure in this package.
var ErrInvalidParams = errors.New("invalid audio parameters")

// Format is an output encoding supported by the service.
type Format string

const (
	FormatMP3     Format = "mp3"
	FormatPCM     Format = "pcm"
	FormatOggOpus Format = "ogg_opus"
)

// Extension returns the file extension, without a dot, for audio in this format.
func (f Format) Extension() string {
	if f == FormatOggOpus {
		return "ogg"
	}

	return string(f)
}

// ContentType returns the MIME type used when storing audio in this format.
func (f Format) ContentType() string {
	switch f {
	case FormatMP3:
		return "audio/mpeg"
	case FormatOggOpus:
		return "audio/ogg"
	case FormatPCM:
		return "audio/L16"
	default:
		return "application/octet-stream"
	}
}

var supportedSampleRates = []int{8000, 16000, 22050, 24000, 32000, 44100, 48000}

// Params is the audio_params object of the session metadata.
type Params struct {
	Format          Format `json:"format"`
	SampleRate      int    `json:"sample_rate"`
	EnableTimestamp bool   `json:"enable_timestamp"`
	SpeechRate      int    `json:"speech_rate"`
	PitchRate       int    `json:"pitch_rate"`
}

// NewDefaultParams returns mp3 at 24 kHz with neutral speech and pitch rates.
func NewDefaultParams() Params {
	return Params{
		Format:          DefaultFormat,
		SampleRate:      DefaultSampleRate,
		EnableTimestamp: false,
		SpeechRate:      0,
		PitchRate:       0,
	}
}

// WithDefaults fills the zero-valued format and sample rate.
func (p Params) WithDefaults() Params {
	if p.Format == "" {
		p.Format = DefaultFormat
	}

	if p.SampleRate == 0 {
		p.SampleRate = DefaultSampleRate
	}

	return p
}

// Validate checks the parameters against what the service accepts.
func (p Params) Validate() error {
	switch p.Format {
	case FormatMP3, FormatPCM, FormatOggOpus:
	default:
		return fmt.Errorf(errFmtUnsupportedFormat, ErrInvalidParams, p.Format)
	}

	if !slices.Contains(supportedSampleRates, p.SampleRate) {
		return fmt.Errorf(errFmtUnsupportedSampleRate, ErrInvalidParams, p.SampleRate)
	}

	if p.SpeechRate < MinSpeechRate || p.SpeechRate > MaxSpeechRate {
		return fmt.Errorf(errFmtSpeechRateRange, ErrInvalidParams, MinSpeechRate, MaxSpeechRate, p.SpeechRate)
	}

	if p.PitchRate < MinPitchRate || p.PitchRate > MaxPitchRate {
		return fmt.Errorf(errFmtPitchRateRange, ErrInvalidParams, MinPitchRate, MaxPitchRate, p.PitchRate)
	}

	return nil
}
