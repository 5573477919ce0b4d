// Package config_test tests the configuration loading for the tts-service.
package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/book-expert/doubao-tts-service/internal/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tomlData := `
[nats]
url = "nats://127.0.0.1:4222"
tts_consumer_name = "tts-workers"
text_processed_subject = "text.processed"
audio_chunk_created_subject = "audio.chunk.created"
audio_object_store_bucket = "AUDIO_FILES"
text_object_store_bucket = "TEXT_FILES"

[tts_service]
app_id = "4942118390"
access_token = "secret"
voice = "大壹 (视频配音-男声)"
format = "ogg_opus"
sample_rate = 48000
speech_rate = 20
pitch_rate = -3
enable_timestamp = true
timeout_seconds = 300
gzip_requests = true
clean_text = true

[output]
save_audio = true
dir = "/var/lib/tts"
filename = "page"

[metrics]
listen_address = ":9102"

[paths]
base_logs_dir = "/var/log/tts"
`

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "tts-workers", cfg.NATS.TTSConsumerName)
	assert.Equal(t, "text.processed", cfg.NATS.TextProcessedSubject)
	assert.Equal(t, "audio.chunk.created", cfg.NATS.AudioChunkCreatedSubject)
	assert.Equal(t, "AUDIO_FILES", cfg.NATS.AudioObjectStoreBucket)
	assert.Equal(t, "TEXT_FILES", cfg.NATS.TextObjectStoreBucket)
	assert.Equal(t, "4942118390", cfg.TTS.AppID)
	assert.Equal(t, "secret", cfg.TTS.AccessToken)
	assert.Equal(t, "大壹 (视频配音-男声)", cfg.TTS.Voice)
	assert.Equal(t, 48000, cfg.TTS.SampleRate)
	assert.Equal(t, -3, cfg.TTS.PitchRate)
	assert.True(t, cfg.TTS.EnableTimestamp)
	assert.True(t, cfg.TTS.GzipRequests)
	assert.True(t, cfg.TTS.CleanText)
	assert.Equal(t, 300, cfg.TTS.TimeoutSeconds)
	assert.True(t, cfg.Output.SaveAudio)
	assert.Equal(t, "page", cfg.Output.Filename)
	assert.Equal(t, ":9102", cfg.Metrics.ListenAddress)
	assert.Equal(t, "/var/log/tts", cfg.Paths.BaseLogsDir)

	cfg.ApplyDefaults()

	assert.Equal(t, 5*time.Minute, cfg.TTS.Timeout())

	defaults := cfg.TTS.Defaults()
	assert.Equal(t, "ogg_opus", defaults.Format)
	assert.Equal(t, 20, defaults.SpeechRate)
	assert.True(t, defaults.EnableTimestamp)
}

func TestConfig_ApplyDefaults(t *testing.T) {
	t.Parallel()

	var cfg config.Config
	cfg.ApplyDefaults()

	assert.Equal(t, config.DefaultEndpoint, cfg.TTS.Endpoint)
	assert.Equal(t, config.DefaultResourceID, cfg.TTS.ResourceID)
	assert.Equal(t, config.DefaultVoice, cfg.TTS.Voice)
	assert.Equal(t, "mp3", cfg.TTS.Format)
	assert.Equal(t, 24000, cfg.TTS.SampleRate)
	assert.Equal(t, 60*time.Second, cfg.TTS.Timeout())
	assert.Equal(t, int64(10*1024*1024), cfg.TTS.MaxMessageBytes)
	assert.Equal(t, "output", cfg.Output.Filename)
	assert.Equal(t, config.DefaultTextBucket, cfg.NATS.TextObjectStoreBucket)
	assert.Equal(t, config.DefaultAudioBucket, cfg.NATS.AudioObjectStoreBucket)
	assert.Equal(t, os.TempDir(), cfg.Paths.BaseLogsDir)
	assert.Empty(t, cfg.Metrics.ListenAddress)
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		config.EnvAppID:       " 123456 ",
		config.EnvAccessToken: "from-env",
	}
	getenv := func(key string) string { return env[key] }

	var empty config.Config
	empty.ApplyEnv(getenv)
	assert.Equal(t, "123456", empty.TTS.AppID)
	assert.Equal(t, "from-env", empty.TTS.AccessToken)

	configured := config.Config{TTS: config.TTSServiceConfig{AppID: "999", AccessToken: "file-token"}}
	configured.ApplyEnv(getenv)
	assert.Equal(t, "999", configured.TTS.AppID)
	assert.Equal(t, "file-token", configured.TTS.AccessToken)
}
