// Command tts-client synthesises speech from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/book-expert/doubao-tts-service/internal/config"
	"github.com/book-expert/doubao-tts-service/internal/core"
	"github.com/book-expert/doubao-tts-service/internal/session"
	"github.com/book-expert/doubao-tts-service/internal/transport"
	"github.com/book-expert/doubao-tts-service/internal/tts"
	"github.com/book-expert/doubao-tts-service/internal/tts/text"
	"github.com/book-expert/doubao-tts-service/internal/tts/ttsutils"
	"github.com/book-expert/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Flag names.
const (
	flagText       = "text"
	flagTextFile   = "text-file"
	flagVoice      = "voice"
	flagOutput     = "output"
	flagFormat     = "format"
	flagSampleRate = "sample-rate"
	flagSpeechRate = "speech-rate"
	flagPitchRate  = "pitch-rate"
	flagEndpoint   = "endpoint"
	flagResourceID = "resource-id"
	flagAppID      = "app-id"
	flagToken      = "token"
	flagGzip       = "gzip"
	flagClean      = "clean"
	flagJSON       = "json"
	flagTimeout    = "timeout"
	flagLogDir     = "log-dir"
)

// Flag descriptions.
const (
	flagTextDesc       = "Text to convert to speech"
	flagTextFileDesc   = "File with the text; a .json file is read as a record with a \"text\" field"
	flagVoiceDesc      = "Voice display name or voice_type (see the voices command)"
	flagOutputDesc     = "Output file; the extension follows --format"
	flagFormatDesc     = "Audio format: mp3, ogg_opus or pcm"
	flagSampleRateDesc = "Sample rate in Hz"
	flagSpeechRateDesc = "Speech rate in [-50, 100]"
	flagPitchRateDesc  = "Pitch rate in [-12, 12]"
	flagEndpointDesc   = "WebSocket endpoint"
	flagResourceIDDesc = "Resource id sent as X-Api-Resource-Id"
	flagAppIDDesc      = "App id (defaults to $" + config.EnvAppID + ")"
	flagTokenDesc      = "Access token (defaults to $" + config.EnvAccessToken + ")"
	flagGzipDesc       = "Gzip request payloads"
	flagCleanDesc      = "Strip reference markers and stray whitespace before synthesis"
	flagJSONDesc       = "Print the full result as JSON"
	flagTimeoutDesc    = "Deadline for the whole synthesis"
	flagLogDirDesc     = "Directory for the client log"
)

const (
	logFileName      = "tts-client.log"
	handshakeTimeout = 15 * time.Second
)

var errNoText = errors.New("either --text or --text-file must be provided")

// synthesizeFlags holds the parsed flag values of the synthesize command.
type synthesizeFlags struct {
	text       string
	textFile   string
	voice      string
	output     string
	format     string
	sampleRate int
	speechRate int
	pitchRate  int
	endpoint   string
	resourceID string
	appID      string
	token      string
	gzip       bool
	clean      bool
	asJSON     bool
	timeout    time.Duration
	logDir     string
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tts-client",
		Short: "Synthesise speech over the bidirectional TTS WebSocket API",
		Long: `tts-client sends text to the bidirectional TTS service and writes
the returned audio to a file.

Credentials are read from --app-id/--token, or from TTS_APP_ID and
TTS_TOKEN (a .env file in the working directory is loaded first).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		synthesizeCmd(),
		voicesCmd(),
	)

	return rootCmd
}

func synthesizeCmd() *cobra.Command {
	var flags synthesizeFlags

	cmd := &cobra.Command{
		Use:     "synthesize",
		Aliases: []string{"say"},
		Short:   "Convert text to speech",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSynthesize(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.text, flagText, "t", "", flagTextDesc)
	cmd.Flags().StringVarP(&flags.textFile, flagTextFile, "f", "", flagTextFileDesc)
	cmd.Flags().StringVarP(&flags.voice, flagVoice, "v", "", flagVoiceDesc)
	cmd.Flags().StringVarP(&flags.output, flagOutput, "o", config.DefaultOutputFilename, flagOutputDesc)
	cmd.Flags().StringVar(&flags.format, flagFormat, "", flagFormatDesc)
	cmd.Flags().IntVar(&flags.sampleRate, flagSampleRate, 0, flagSampleRateDesc)
	cmd.Flags().IntVar(&flags.speechRate, flagSpeechRate, 0, flagSpeechRateDesc)
	cmd.Flags().IntVar(&flags.pitchRate, flagPitchRate, 0, flagPitchRateDesc)
	cmd.Flags().StringVar(&flags.endpoint, flagEndpoint, "", flagEndpointDesc)
	cmd.Flags().StringVar(&flags.resourceID, flagResourceID, "", flagResourceIDDesc)
	cmd.Flags().StringVar(&flags.appID, flagAppID, "", flagAppIDDesc)
	cmd.Flags().StringVar(&flags.token, flagToken, "", flagTokenDesc)
	cmd.Flags().BoolVar(&flags.gzip, flagGzip, false, flagGzipDesc)
	cmd.Flags().BoolVar(&flags.clean, flagClean, false, flagCleanDesc)
	cmd.Flags().BoolVar(&flags.asJSON, flagJSON, false, flagJSONDesc)
	cmd.Flags().DurationVar(&flags.timeout, flagTimeout, config.DefaultTimeoutSeconds*time.Second, flagTimeoutDesc)
	cmd.Flags().StringVar(&flags.logDir, flagLogDir, os.TempDir(), flagLogDirDesc)

	cmd.MarkFlagsMutuallyExclusive(flagText, flagTextFile)

	return cmd
}

func voicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the built-in voices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "DISPLAY NAME\tVOICE TYPE")

			for _, voice := range tts.Voices() {
				fmt.Fprintf(writer, "%s\t%s\n", voice.DisplayName, voice.VoiceType)
			}

			return writer.Flush()
		},
	}
}

func runSynthesize(ctx context.Context, out io.Writer, flags synthesizeFlags) error {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	request, err := buildRequest(flags)
	if err != nil {
		return err
	}

	cfg := &config.Config{}
	cfg.TTS.Endpoint = flags.endpoint
	cfg.TTS.ResourceID = flags.resourceID
	cfg.TTS.AppID = flags.appID
	cfg.TTS.AccessToken = flags.token
	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyDefaults()

	log, err := logger.New(flags.logDir, logFileName)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		_ = log.Close()
	}()

	processor := tts.New(tts.Options{
		Endpoint:     cfg.TTS.Endpoint,
		ResourceID:   cfg.TTS.ResourceID,
		AppID:        cfg.TTS.AppID,
		AccessToken:  cfg.TTS.AccessToken,
		Defaults:     cfg.TTS.Defaults(),
		Additions:    session.Additions{},
		Output:       tts.OutputOptions{},
		GzipRequests: flags.gzip,
		CleanText:    flags.clean,
	}, transport.NewDialer(handshakeTimeout, cfg.TTS.MaxMessageBytes), log, nil)

	ctx, cancel := context.WithTimeout(ctx, flags.timeout)
	defer cancel()

	result, err := processor.Synthesize(ctx, request)
	if err != nil {
		return err
	}

	if flags.asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "  ")

		return encoder.Encode(result)
	}

	printSummary(out, result)

	return nil
}

// buildRequest turns the flags into a synthesis request that always saves
// the audio next to the --output path.
func buildRequest(flags synthesizeFlags) (tts.Request, error) {
	request := tts.Request{
		Text: flags.text,
		Config: core.TTSConfig{
			Voice:      flags.voice,
			Format:     flags.format,
			SampleRate: flags.sampleRate,
			SpeechRate: flags.speechRate,
			PitchRate:  flags.pitchRate,
		},
		Output: outputOptions(flags.output),
	}

	switch {
	case flags.textFile != "":
		upstream, err := readTextFile(flags.textFile)
		if err != nil {
			return tts.Request{}, err
		}

		request.Upstream = upstream
	case strings.TrimSpace(flags.text) == "":
		return tts.Request{}, errNoText
	}

	return request, nil
}

func outputOptions(output string) *tts.OutputOptions {
	base := filepath.Base(output)

	return &tts.OutputOptions{
		Save:     true,
		Dir:      filepath.Dir(output),
		Filename: strings.TrimSuffix(base, filepath.Ext(base)),
	}
}

func readTextFile(path string) (text.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}

	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return text.Bytes(data), nil
	}

	var record text.Record

	err = json.Unmarshal(data, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return record, nil
}

func printSummary(out io.Writer, result *tts.Result) {
	fmt.Fprintf(out, "Voice:    %s (%s)\n", result.VoiceDisplayName, result.VoiceType)
	fmt.Fprintf(out, "Format:   %s @ %d Hz\n", result.AudioType, result.SampleRate)
	fmt.Fprintf(out, "Size:     %s\n", ttsutils.FormatFileSize(int64(result.AudioSize)))

	if result.Duration > 0 {
		fmt.Fprintf(out, "Duration: %s\n", ttsutils.FormatDuration(result.Duration))
	}

	if result.FilePath != nil {
		fmt.Fprintf(out, "Saved:    %s\n", *result.FilePath)
	}

	if result.Warning != "" {
		fmt.Fprintf(out, "Warning:  %s\n", result.Warning)
	}
}
