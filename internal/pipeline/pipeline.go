// Package pipeline orchestrates the audio processing chain over a full file:
// load, resample/downmix, run the fixed processor order, normalize, save.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fankto/EchoQuest-sub000/internal/audio"
	"github.com/fankto/EchoQuest-sub000/internal/chunker"
	"github.com/fankto/EchoQuest-sub000/internal/dsp"
	"github.com/fankto/EchoQuest-sub000/internal/metrics"
)

// ProcessingError indicates a DSP stage failed outside the chunk processor's
// tolerated-substitution path. It aborts the whole file.
type ProcessingError struct {
	File  string
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("audio processing failed for %s at stage %s: %v", e.File, e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Config contains pipeline parameters.
type Config struct {
	// TargetSampleRate is the canonical rate every waveform is converted to.
	TargetSampleRate int
	// NormalizeTarget is the final peak amplitude, as a fraction of full scale.
	NormalizeTarget float64
	// ChunkSeconds is the window length used when the waveform is too long
	// for single-pass processing; OverlapSeconds is the crossfade overlap.
	ChunkSeconds   float64
	OverlapSeconds float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		TargetSampleRate: 48000,
		NormalizeTarget:  0.99,
		ChunkSeconds:     900,
		OverlapSeconds:   1,
	}
}

// AudioProcessor runs the full DSP chain over audio files.
type AudioProcessor struct {
	config  Config
	chain   *dsp.Chain
	chunks  *chunker.Processor
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewAudioProcessor builds the processor chain in its fixed order:
// noise suppression, silence gating, dynamics compression, spectral
// equalization, multiband compression. The spectral stage runs the equalizer
// only; de-essing and excitation stay available for standalone use of the
// shaper.
func NewAudioProcessor(config Config, dspConfig DSPConfig, logger *slog.Logger, m *metrics.Metrics) (*AudioProcessor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.TargetSampleRate <= 0 {
		return nil, fmt.Errorf("target sample rate must be positive, got %d", config.TargetSampleRate)
	}
	if config.NormalizeTarget <= 0 || config.NormalizeTarget > 1 {
		return nil, fmt.Errorf("normalize target must be in (0, 1], got %f", config.NormalizeTarget)
	}

	rate := config.TargetSampleRate

	compressor, err := dsp.NewCompressor(dspConfig.Compressor, rate)
	if err != nil {
		return nil, fmt.Errorf("build compressor: %w", err)
	}
	multiband, err := dsp.NewMultibandCompressor(dspConfig.Multiband, rate)
	if err != nil {
		return nil, fmt.Errorf("build multiband compressor: %w", err)
	}

	chain := dsp.NewChain(logger, m,
		dsp.NewNoiseSuppressor(dspConfig.Noise),
		dsp.NewSilenceGate(dspConfig.Silence),
		compressor,
		dsp.NewSpectralShaper(dspConfig.Spectral.EqualizerOnly(), rate),
		multiband,
	)

	chunkProc, err := chunker.NewProcessor(chunker.Config{
		ChunkSamples:   int(config.ChunkSeconds * float64(rate)),
		OverlapSamples: int(config.OverlapSeconds * float64(rate)),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build chunk processor: %w", err)
	}

	return &AudioProcessor{
		config:  config,
		chain:   chain,
		chunks:  chunkProc,
		logger:  logger,
		metrics: m,
	}, nil
}

// DSPConfig bundles the per-processor configurations.
type DSPConfig struct {
	Noise      dsp.NoiseSuppressorConfig
	Silence    dsp.SilenceGateConfig
	Compressor dsp.CompressorConfig
	Spectral   dsp.SpectralShaperConfig
	Multiband  dsp.MultibandConfig
}

// DefaultDSPConfig returns the documented defaults for every processor.
func DefaultDSPConfig() DSPConfig {
	return DSPConfig{
		Noise:      dsp.DefaultNoiseSuppressorConfig(),
		Silence:    dsp.DefaultSilenceGateConfig(),
		Compressor: dsp.DefaultCompressorConfig(),
		Spectral:   dsp.DefaultSpectralShaperConfig(),
		Multiband:  dsp.DefaultMultibandConfig(),
	}
}

// Process loads the file, runs the processor chain, and normalizes the final
// peak. No partial state is returned on failure. Waveforms longer than the
// configured chunk duration are processed in overlapping windows with
// crossfade reassembly.
func (p *AudioProcessor) Process(ctx context.Context, path string) (*audio.Waveform, *audio.FileInfo, error) {
	w, info, err := audio.Load(path, p.config.TargetSampleRate)
	if err != nil {
		if p.metrics != nil {
			p.metrics.FilesFailed.Inc()
		}
		return nil, nil, err
	}

	p.logger.Info("audio loaded",
		slog.String("file", info.Name),
		slog.Float64("duration_seconds", info.OriginalDuration),
		slog.Int("sample_rate", w.SampleRate),
	)

	chunkSamples := int(p.config.ChunkSeconds * float64(p.config.TargetSampleRate))

	var processed []float64
	if len(w.Samples) > chunkSamples {
		before := p.chunks.GetStats()
		processed, err = p.chunks.Process(ctx, w.Samples, func(_ context.Context, segment []float64) ([]float64, error) {
			return p.chain.Process(segment)
		})
		if p.metrics != nil {
			after := p.chunks.GetStats()
			p.metrics.ChunksProcessed.Add(float64(after.ChunksProcessed - before.ChunksProcessed))
			p.metrics.ChunksSubstituted.Add(float64(after.ChunksSubstituted - before.ChunksSubstituted))
		}
	} else {
		processed, err = p.chain.Process(w.Samples)
	}
	if err != nil {
		if p.metrics != nil {
			p.metrics.FilesFailed.Inc()
		}
		return nil, nil, &ProcessingError{File: info.Name, Stage: "dsp", Err: err}
	}

	w.Samples = processed
	w.Normalize(p.config.NormalizeTarget)
	info.ProcessedDuration = w.Seconds()

	if p.metrics != nil {
		p.metrics.FilesProcessed.Inc()
		p.metrics.FileDuration.Observe(info.ProcessedDuration)
	}

	return w, info, nil
}

// SaveProcessedAudio writes the waveform as canonical 16-bit PCM WAV
// regardless of the input's original format, creating parent directories as
// needed.
func (p *AudioProcessor) SaveProcessedAudio(w *audio.Waveform, path string) error {
	data, err := audio.EncodeWAV(w)
	if err != nil {
		return fmt.Errorf("encode processed audio: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write processed audio: %w", err)
	}

	p.logger.Info("processed audio saved",
		slog.String("path", path),
		slog.Int("bytes", len(data)),
	)
	return nil
}
