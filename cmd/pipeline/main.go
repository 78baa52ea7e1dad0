package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fankto/EchoQuest-sub000/internal/config"
	"github.com/fankto/EchoQuest-sub000/internal/metrics"
	"github.com/fankto/EchoQuest-sub000/internal/pipeline"
	"github.com/fankto/EchoQuest-sub000/internal/transcription"
)

const (
	serviceName    = "audio-pipeline"
	serviceVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	inputPath := flag.String("in", "", "Input audio file (wav, mp3, ogg, flac, m4a)")
	audioOut := flag.String("out-audio", "", "Output path for the processed WAV (optional)")
	transcriptOut := flag.String("out-transcript", "", "Output path for the transcript text (optional)")
	skipTranscribe := flag.Bool("skip-transcription", false, "Only run the DSP chain")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "missing required -in flag")
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("input", *inputPath),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	appMetrics := metrics.NewMetrics()

	processor, err := pipeline.NewAudioProcessor(cfg.PipelineConfig(), cfg.DSPProcessorConfig(), logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create audio processor", slog.String("error", err.Error()))
		os.Exit(1)
	}

	waveform, info, err := processor.Process(ctx, *inputPath)
	if err != nil {
		logger.Error("Audio processing failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Audio processing complete",
		slog.String("file", info.Name),
		slog.Float64("original_duration", info.OriginalDuration),
		slog.Float64("processed_duration", info.ProcessedDuration),
	)

	if *audioOut != "" {
		if err := processor.SaveProcessedAudio(waveform, *audioOut); err != nil {
			logger.Error("Failed to save processed audio", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if *skipTranscribe {
		return
	}

	client, err := transcription.NewClient(cfg.ClientConfig(), appMetrics)
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	models, err := transcription.NewRemoteModelManager(cfg.Transcription.Endpoint, cfg.Transcription.APIKey, cfg.GetTranscriptionTimeout())
	if err != nil {
		logger.Error("Failed to create model manager", slog.String("error", err.Error()))
		os.Exit(1)
	}

	transcriber, err := transcription.NewTranscriber(client, client, models, cfg.TranscriberConfig(), logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create transcriber", slog.String("error", err.Error()))
		os.Exit(1)
	}

	result, err := transcriber.Transcribe(ctx, waveform, cfg.TranscriptionOptions())
	if err != nil {
		logger.Error("Transcription failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Transcription complete", slog.Int("segments", len(result.Segments)))

	outPath := *transcriptOut
	if outPath == "" {
		base := strings.TrimSuffix(filepath.Base(*inputPath), filepath.Ext(*inputPath))
		outPath = base + ".transcript.txt"
	}

	if err := os.WriteFile(outPath, []byte(result.Text), 0o644); err != nil {
		logger.Error("Failed to write transcript", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Transcript written", slog.String("path", outPath))
}

// initLogger creates a structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
