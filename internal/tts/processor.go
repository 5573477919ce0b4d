// Package tts provides the implementation for the TTSProcessor interface on
// top of the bidirectional streaming synthesis API.
package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/book-expert/doubao-tts-service/internal/core"
	"github.com/book-expert/doubao-tts-service/internal/metrics"
	"github.com/book-expert/doubao-tts-service/internal/protocol"
	"github.com/book-expert/doubao-tts-service/internal/session"
	"github.com/book-expert/doubao-tts-service/internal/tts/audio"
	"github.com/book-expert/doubao-tts-service/internal/tts/text"
	"github.com/book-expert/doubao-tts-service/internal/tts/ttsutils"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
)

// Service defaults.
const (
	DefaultEndpoint   = "wss://openspeech.bytedance.com/api/v3/tts/bidirection"
	DefaultResourceID = "volc.service_type.10029"
	APIVersion        = "v3_websocket"
)

// pcmBytesPerSample is the width of the 16-bit mono PCM the service emits.
const pcmBytesPerSample = 2

// OutputOptions control the optional local copy of the audio.
type OutputOptions struct {
	Save     bool
	Dir      string
	Filename string
}

// Options configure a BidiProcessor.
type Options struct {
	Endpoint    string
	ResourceID  string
	AppID       string
	AccessToken string

	// Defaults fill the zero fields of per-request configuration.
	Defaults  core.TTSConfig
	Additions session.Additions
	Output    OutputOptions

	// GzipRequests compresses the JSON payloads sent to the server.
	GzipRequests bool
	// CleanText strips reference markers and stray whitespace before synthesis.
	CleanText bool
}

// Request is one synthesis call.
type Request struct {
	Text     string
	Upstream text.Input
	Config   core.TTSConfig
	// Output overrides the processor's output options when set.
	Output *OutputOptions
}

// Result describes synthesised audio.
type Result struct {
	Audio            []byte  `json:"-"`
	AudioBase64      string  `json:"audio_base64"`
	AudioType        string  `json:"audio_type"`
	SampleRate       int     `json:"sample_rate"`
	Duration         float64 `json:"duration"`
	DurationMS       int64   `json:"duration_ms"`
	Text             string  `json:"text"`
	VoiceDisplayName string  `json:"voice_display_name"`
	VoiceType        string  `json:"voice_type"`
	FilePath         *string `json:"file_path"`
	AudioSize        int     `json:"audio_size"`
	APIVersion       string  `json:"api_version"`
	SessionID        string  `json:"session_id"`
	ConnectID        string  `json:"connect_id"`
	// Warning is set when the optional file write failed.
	Warning string `json:"warning,omitempty"`
}

// BidiProcessor implements the core.TTSProcessor interface. Each call opens
// its own connection, so a BidiProcessor is safe for concurrent use.
type BidiProcessor struct {
	opts    Options
	client  *session.Client
	cleaner *text.Cleaner
	log     *logger.Logger
}

// New creates a new BidiProcessor. m may be nil.
func New(opts Options, dialer core.Dialer, log *logger.Logger, m *metrics.Metrics) *BidiProcessor {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}

	if opts.ResourceID == "" {
		opts.ResourceID = DefaultResourceID
	}

	if opts.Defaults.Voice == "" {
		opts.Defaults.Voice = DefaultVoice
	}

	var cleaner *text.Cleaner
	if opts.CleanText {
		cleaner = text.NewCleaner()
	}

	return &BidiProcessor{
		opts:    opts,
		client:  session.NewClient(dialer, log, m),
		cleaner: cleaner,
		log:     log,
	}
}

// GetConfig returns the default TTS configuration.
func (p *BidiProcessor) GetConfig() core.TTSConfig {
	return p.opts.Defaults
}

// Process synthesises text and returns the raw audio.
func (p *BidiProcessor) Process(ctx context.Context, textData []byte, cfg core.TTSConfig) ([]byte, error) {
	result, err := p.Synthesize(ctx, Request{
		Text:     "",
		Upstream: text.Bytes(textData),
		Config:   cfg,
		Output:   nil,
	})
	if err != nil {
		return nil, err
	}

	return result.Audio, nil
}

// Synthesize validates the request, runs one synthesis session and assembles
// the result. A failed file write is reported in Result.Warning, not as an error.
func (p *BidiProcessor) Synthesize(ctx context.Context, req Request) (*Result, error) {
	merged, err := p.prepareText(req)
	if err != nil {
		return nil, err
	}

	appID, accessToken, err := validateCredentials(p.opts.AppID, p.opts.AccessToken)
	if err != nil {
		return nil, err
	}

	cfg := p.resolveConfig(req.Config)

	params, err := audioParams(cfg)
	if err != nil {
		return nil, err
	}

	voice := ResolveVoice(cfg.Voice)

	metadata, err := session.NewMetadata(uuid.NewString(), voice.VoiceType, params, p.opts.Additions)
	if err != nil {
		return nil, err
	}

	connectID := uuid.NewString()
	credentials := session.Credentials{AppID: appID, AccessToken: accessToken, ResourceID: p.opts.ResourceID}

	compression := protocol.CompressionNone
	if p.opts.GzipRequests {
		compression = protocol.CompressionGzip
	}

	p.log.Info("Synthesising %d characters with voice %s", len([]rune(merged)), voice.VoiceType)

	exchange, err := p.client.Synthesize(ctx, session.Target{
		Endpoint: p.opts.Endpoint,
		Header:   credentials.Header(connectID),
	}, session.Request{
		SessionID:   uuid.NewString(),
		ConnectID:   connectID,
		Metadata:    metadata,
		Text:        merged,
		Compression: compression,
	})
	if err != nil {
		p.log.Error("Synthesis failed: %v", err)

		return nil, fmt.Errorf("failed to synthesise speech: %w", err)
	}

	result := newResult(exchange, merged, voice, params)

	output := p.opts.Output
	if req.Output != nil {
		output = *req.Output
	}

	if output.Save {
		p.saveAudio(result, output, params.Format)
	}

	return result, nil
}

func (p *BidiProcessor) prepareText(req Request) (string, error) {
	merged, err := text.Merge(req.Text, req.Upstream)
	if err != nil {
		return "", &core.ValidationError{Field: "text", Message: err.Error()}
	}

	if p.cleaner != nil {
		merged = p.cleaner.Clean(merged)
	}

	if merged == "" {
		return "", &core.ValidationError{Field: "text", Message: "text to synthesise is empty"}
	}

	return merged, nil
}

// resolveConfig fills the zero fields of cfg from the processor defaults.
func (p *BidiProcessor) resolveConfig(cfg core.TTSConfig) core.TTSConfig {
	defaults := p.opts.Defaults

	if strings.TrimSpace(cfg.Voice) == "" {
		cfg.Voice = defaults.Voice
	}

	if cfg.Format == "" {
		cfg.Format = defaults.Format
	}

	if cfg.SampleRate == 0 {
		cfg.SampleRate = defaults.SampleRate
	}

	if cfg.SpeechRate == 0 {
		cfg.SpeechRate = defaults.SpeechRate
	}

	if cfg.PitchRate == 0 {
		cfg.PitchRate = defaults.PitchRate
	}

	cfg.EnableTimestamp = cfg.EnableTimestamp || defaults.EnableTimestamp

	return cfg
}

func (p *BidiProcessor) saveAudio(result *Result, output OutputOptions, format audio.Format) {
	path := ttsutils.OutputPath(output.Dir, output.Filename, format.Extension())

	err := ttsutils.WriteFile(path, result.Audio)
	if err != nil {
		result.Warning = fmt.Sprintf("audio synthesised but not saved: %v", err)
		p.log.Warn("Failed to save audio to '%s': %v", path, err)

		return
	}

	result.FilePath = &path
	p.log.Info("Audio saved to %s (%s)", path, ttsutils.FormatFileSize(int64(len(result.Audio))))
}

func audioParams(cfg core.TTSConfig) (audio.Params, error) {
	params := audio.Params{
		Format:          audio.Format(cfg.Format),
		SampleRate:      cfg.SampleRate,
		EnableTimestamp: cfg.EnableTimestamp,
		SpeechRate:      cfg.SpeechRate,
		PitchRate:       cfg.PitchRate,
	}.WithDefaults()

	err := params.Validate()
	if err != nil {
		return audio.Params{}, &core.ValidationError{Field: "audio_params", Message: err.Error()}
	}

	return params, nil
}

// validateCredentials trims both credentials, requires a numeric app id and
// reports every missing credential at once.
func validateCredentials(appID, accessToken string) (string, string, error) {
	appID = strings.TrimSpace(appID)
	accessToken = strings.TrimSpace(accessToken)

	if appID != "" && !isDigits(appID) {
		return "", "", &core.ValidationError{
			Field:   "app_id",
			Message: "must contain only digits (for example 4942118390)",
		}
	}

	var missing []string
	if appID == "" {
		missing = append(missing, "App ID")
	}

	if accessToken == "" {
		missing = append(missing, "Access Token")
	}

	if len(missing) > 0 {
		return "", "", &core.ValidationError{
			Field:   "credentials",
			Message: "missing " + strings.Join(missing, ", ") + "; set them in the configuration or TTS_APP_ID/TTS_TOKEN",
		}
	}

	return appID, accessToken, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func newResult(exchange *session.Result, merged string, voice Voice, params audio.Params) *Result {
	duration := 0.0
	if params.Format == audio.FormatPCM && params.SampleRate > 0 {
		duration = float64(len(exchange.Audio)) / float64(params.SampleRate*pcmBytesPerSample)
	}

	return &Result{
		Audio:            exchange.Audio,
		AudioBase64:      base64.StdEncoding.EncodeToString(exchange.Audio),
		AudioType:        string(params.Format),
		SampleRate:       params.SampleRate,
		Duration:         duration,
		DurationMS:       int64(duration * 1000),
		Text:             merged,
		VoiceDisplayName: voice.DisplayName,
		VoiceType:        voice.VoiceType,
		FilePath:         nil,
		AudioSize:        len(exchange.Audio),
		APIVersion:       APIVersion,
		SessionID:        exchange.SessionID,
		ConnectID:        exchange.ConnectID,
		Warning:          "",
	}
}
