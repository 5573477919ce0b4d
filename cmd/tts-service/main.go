// main package for the tts-service
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/doubao-tts-service/internal/config"
	"github.com/book-expert/doubao-tts-service/internal/metrics"
	"github.com/book-expert/doubao-tts-service/internal/objectstore"
	"github.com/book-expert/doubao-tts-service/internal/session"
	"github.com/book-expert/doubao-tts-service/internal/transport"
	"github.com/book-expert/doubao-tts-service/internal/tts"
	"github.com/book-expert/doubao-tts-service/internal/worker"
	"github.com/book-expert/logger"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
)

const (
	handshakeTimeout       = 15 * time.Second
	metricsShutdownTimeout = 5 * time.Second
	metricsReadTimeout     = 10 * time.Second
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir(), "tts-service-bootstrap.log")
	if err != nil {
		// If bootstrap logger fails, we can only print to stderr
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, "tts-service.log")
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, finalLog)
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL, nats.Name("doubao-tts-service"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	textStore, err := objectstore.New(jetstreamContext, cfg.NATS.TextObjectStoreBucket)
	if err != nil {
		return err
	}

	audioStore, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return err
	}

	recorder := metrics.New()

	stopMetrics := startMetricsServer(cfg.Metrics.ListenAddress, recorder, log)
	defer stopMetrics()

	processor := tts.New(tts.Options{
		Endpoint:    cfg.TTS.Endpoint,
		ResourceID:  cfg.TTS.ResourceID,
		AppID:       cfg.TTS.AppID,
		AccessToken: cfg.TTS.AccessToken,
		Defaults:    cfg.TTS.Defaults(),
		Additions:   session.Additions{},
		Output: tts.OutputOptions{
			Save:     cfg.Output.SaveAudio,
			Dir:      cfg.Output.Dir,
			Filename: cfg.Output.Filename,
		},
		GzipRequests: cfg.TTS.GzipRequests,
		CleanText:    cfg.TTS.CleanText,
	}, transport.NewDialer(handshakeTimeout, cfg.TTS.MaxMessageBytes), log, recorder)

	ttsWorker, err := worker.NewNatsWorker(natsConnection, textStore, audioStore, processor, log, worker.Options{
		Subject:      cfg.NATS.TextProcessedSubject,
		Queue:        cfg.NATS.TTSConsumerName,
		ReplySubject: cfg.NATS.AudioChunkCreatedSubject,
		Timeout:      cfg.TTS.Timeout(),
	})
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	logMessage := "TTS-Service successfully initialized. Listening for jobs on subject: %s"
	log.System(logMessage, cfg.NATS.TextProcessedSubject)

	err = ttsWorker.Run(ctx)
	if err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}

	log.System("TTS-Service shut down.")

	return nil
}

// startMetricsServer serves /metrics on addr. An empty addr disables it.
func startMetricsServer(addr string, recorder *metrics.Metrics, log *logger.Logger) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadTimeout,
	}

	go func() {
		log.Info("Serving metrics on %s/metrics", addr)

		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()

		err := server.Shutdown(ctx)
		if err != nil {
			log.Warn("Failed to stop metrics server: %v", err)
		}
	}
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
