// Package config provides the configuration structure for the tts-service.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/doubao-tts-service/internal/core"
	"github.com/book-expert/logger"
)

// Environment variables consulted when credentials are not configured.
const (
	EnvAppID       = "TTS_APP_ID"
	EnvAccessToken = "TTS_TOKEN"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultEndpoint        = "wss://openspeech.bytedance.com/api/v3/tts/bidirection"
	DefaultResourceID      = "volc.service_type.10029"
	DefaultVoice           = "vivi (通用场景，可配英语)"
	DefaultFormat          = "mp3"
	DefaultSampleRate      = 24000
	DefaultTimeoutSeconds  = 60
	DefaultMaxMessageBytes = 10 * 1024 * 1024
	DefaultOutputFilename  = "output"
	DefaultTextBucket      = "TEXT_FILES"
	DefaultAudioBucket     = "AUDIO_FILES"
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                      string `toml:"url"`
	TTSConsumerName          string `toml:"tts_consumer_name"`
	TextProcessedSubject     string `toml:"text_processed_subject"`
	AudioChunkCreatedSubject string `toml:"audio_chunk_created_subject"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
	TextObjectStoreBucket    string `toml:"text_object_store_bucket"`
}

// TTSServiceConfig holds the specific configuration for the TTS service.
type TTSServiceConfig struct {
	Endpoint        string `toml:"endpoint"`
	ResourceID      string `toml:"resource_id"`
	AppID           string `toml:"app_id"`
	AccessToken     string `toml:"access_token"`
	Voice           string `toml:"voice"`
	Format          string `toml:"format"`
	SampleRate      int    `toml:"sample_rate"`
	SpeechRate      int    `toml:"speech_rate"`
	PitchRate       int    `toml:"pitch_rate"`
	EnableTimestamp bool   `toml:"enable_timestamp"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	MaxMessageBytes int64  `toml:"max_message_bytes"`
	GzipRequests    bool   `toml:"gzip_requests"`
	CleanText       bool   `toml:"clean_text"`
}

// OutputConfig controls the optional local copy of synthesised audio.
type OutputConfig struct {
	SaveAudio bool   `toml:"save_audio"`
	Dir       string `toml:"dir"`
	Filename  string `toml:"filename"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// ListenAddress is empty to disable the endpoint.
	ListenAddress string `toml:"listen_address"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS    NATSConfig       `toml:"nats"`
	TTS     TTSServiceConfig `toml:"tts_service"`
	Output  OutputConfig     `toml:"output"`
	Metrics MetricsConfig    `toml:"metrics"`
	Paths   PathsConfig      `toml:"paths"`
}

// Load loads the configuration for the tts-service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyDefaults()

	return &cfg, nil
}

// ApplyEnv fills empty credentials from TTS_APP_ID and TTS_TOKEN.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if strings.TrimSpace(c.TTS.AppID) == "" {
		c.TTS.AppID = strings.TrimSpace(getenv(EnvAppID))
	}

	if strings.TrimSpace(c.TTS.AccessToken) == "" {
		c.TTS.AccessToken = strings.TrimSpace(getenv(EnvAccessToken))
	}
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	setDefault(&c.TTS.Endpoint, DefaultEndpoint)
	setDefault(&c.TTS.ResourceID, DefaultResourceID)
	setDefault(&c.TTS.Voice, DefaultVoice)
	setDefault(&c.TTS.Format, DefaultFormat)
	setDefault(&c.Output.Filename, DefaultOutputFilename)
	setDefault(&c.NATS.TextObjectStoreBucket, DefaultTextBucket)
	setDefault(&c.NATS.AudioObjectStoreBucket, DefaultAudioBucket)
	setDefault(&c.Paths.BaseLogsDir, os.TempDir())

	if c.TTS.SampleRate == 0 {
		c.TTS.SampleRate = DefaultSampleRate
	}

	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if c.TTS.MaxMessageBytes <= 0 {
		c.TTS.MaxMessageBytes = DefaultMaxMessageBytes
	}
}

// Timeout is the deadline surrounding one synthesis request.
func (c *TTSServiceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Defaults converts the synthesis section to per-request defaults.
func (c *TTSServiceConfig) Defaults() core.TTSConfig {
	return core.TTSConfig{
		Voice:           c.Voice,
		Format:          c.Format,
		SampleRate:      c.SampleRate,
		SpeechRate:      c.SpeechRate,
		PitchRate:       c.PitchRate,
		EnableTimestamp: c.EnableTimestamp,
	}
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}
