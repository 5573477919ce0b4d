// Package worker provides a NATS worker that processes TTS jobs.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/doubao-tts-service/internal/core"
	"github.com/book-expert/doubao-tts-service/internal/tts"
	"github.com/book-expert/doubao-tts-service/internal/tts/audio"
	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const defaultHandleMessageTimeout = 60 * time.Second

var (
	// ErrTextKeyEmpty indicates an event without a text object key.
	ErrTextKeyEmpty = errors.New("text key cannot be empty")
	// ErrSubjectEmpty indicates a worker configured without a subject.
	ErrSubjectEmpty = errors.New("subject cannot be empty")
)

// Options configure a NatsWorker.
type Options struct {
	Subject string
	// Queue, when set, load-balances jobs across workers in the same group.
	Queue string
	// ReplySubject receives the reply event for jobs published without a reply inbox.
	ReplySubject string
	// Timeout bounds the handling of one job.
	Timeout time.Duration
}

// NatsWorker listens for TTS jobs on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection *nats.Conn
	textStore      core.ObjectStore
	audioStore     core.ObjectStore
	processor      core.TTSProcessor
	log            *logger.Logger
	opts           Options
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	textStore core.ObjectStore,
	audioStore core.ObjectStore,
	processor core.TTSProcessor,
	log *logger.Logger,
	opts Options,
) (*NatsWorker, error) {
	if opts.Subject == "" {
		return nil, ErrSubjectEmpty
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultHandleMessageTimeout
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		textStore:      textStore,
		audioStore:     audioStore,
		processor:      processor,
		log:            log,
		opts:           opts,
	}, nil
}

// Run starts the worker and blocks until ctx is cancelled, then drains the
// subscription.
func (w *NatsWorker) Run(ctx context.Context) error {
	var (
		sub *nats.Subscription
		err error
	)

	if w.opts.Queue != "" {
		sub, err = w.natsConnection.QueueSubscribe(w.opts.Subject, w.opts.Queue, w.handleMessage)
	} else {
		sub, err = w.natsConnection.Subscribe(w.opts.Subject, w.handleMessage)
	}

	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.opts.Subject, err)
	}

	w.log.Info("Listening for jobs on subject: %s", w.opts.Subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), w.opts.Timeout)
	defer cancel()

	event, err := w.parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate event: %v", err)

		return
	}

	audioKey, processErr := w.processTTSJob(ctx, event)
	if processErr != nil {
		w.log.Error("Failed to process TTS job for event %s: %v", event.Header.WorkflowID, processErr)

		return
	}

	replyEvent := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	err = w.publishReplyEvent(msg, replyEvent)
	if err != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v", event.Header.WorkflowID, err)

		return
	}

	w.log.Info("Page %d/%d of workflow %s stored as %s",
		event.PageNumber, event.TotalPages, event.Header.WorkflowID, audioKey)
}

// processTTSJob downloads the text, synthesises it and uploads the audio.
func (w *NatsWorker) processTTSJob(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	textData, err := w.textStore.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf("failed to download text data for key '%s': %w", event.TextKey, err)
	}

	defaults := w.processor.GetConfig()

	ttsCfg := core.TTSConfig{
		Voice:           event.Voice,
		Format:          defaults.Format,
		SampleRate:      defaults.SampleRate,
		SpeechRate:      defaults.SpeechRate,
		PitchRate:       defaults.PitchRate,
		EnableTimestamp: defaults.EnableTimestamp,
	}

	validationErr := w.validateTTSConfig(ttsCfg)
	if validationErr != nil {
		return "", validationErr
	}

	audioData, err := w.processor.Process(ctx, textData, ttsCfg)
	if err != nil {
		return "", fmt.Errorf("failed to process text to speech: %w", err)
	}

	format := audio.Format(ttsCfg.Format)
	if format == "" {
		format = audio.DefaultFormat
	}

	audioKey := uuid.NewString() + "." + format.Extension()

	err = w.audioStore.Upload(ctx, audioKey, audioData, format.ContentType())
	if err != nil {
		return "", fmt.Errorf("failed to upload audio data for key '%s': %w", audioKey, err)
	}

	return audioKey, nil
}

// publishReplyEvent responds on the message's reply inbox, or publishes to
// the configured reply subject when the job was sent without one.
func (w *NatsWorker) publishReplyEvent(msg *nats.Msg, replyEvent *events.AudioChunkCreatedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	if msg.Reply == "" {
		if w.opts.ReplySubject == "" {
			return nil
		}

		err = w.natsConnection.Publish(w.opts.ReplySubject, replyData)
		if err != nil {
			return fmt.Errorf("failed to publish reply event to %s: %w", w.opts.ReplySubject, err)
		}

		return nil
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func (w *NatsWorker) parseAndValidateEvent(msg *nats.Msg) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.TextKey == "" {
		return nil, ErrTextKeyEmpty
	}

	return &event, nil
}

// validateTTSConfig checks the per-job settings. An empty voice selects the
// processor default.
func (w *NatsWorker) validateTTSConfig(cfg core.TTSConfig) error {
	if cfg.Voice != "" {
		err := tts.ValidateVoice(cfg.Voice)
		if err != nil {
			return err
		}
	}

	params := audio.Params{
		Format:          audio.Format(cfg.Format),
		SampleRate:      cfg.SampleRate,
		EnableTimestamp: cfg.EnableTimestamp,
		SpeechRate:      cfg.SpeechRate,
		PitchRate:       cfg.PitchRate,
	}.WithDefaults()

	return params.Validate()
}
