package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fankto/EchoQuest-sub000/internal/dsp"
	"github.com/fankto/EchoQuest-sub000/internal/pipeline"
	"github.com/fankto/EchoQuest-sub000/internal/transcription"
)

// Config represents the complete pipeline configuration
type Config struct {
	Audio         AudioConfig         `yaml:"audio"`
	DSP           DSPConfig           `yaml:"dsp"`
	Chunking      ChunkingConfig      `yaml:"chunking"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// AudioConfig contains waveform ingestion parameters
type AudioConfig struct {
	TargetSampleRate int     `yaml:"target_sample_rate"`
	NormalizeTarget  float64 `yaml:"normalize_target"`
}

// DSPConfig contains signal processor parameters
type DSPConfig struct {
	NoiseSubtractionFactor float64      `yaml:"noise_subtraction_factor"`
	NoiseFrames            int          `yaml:"noise_frames"`
	SilencePercentile      float64      `yaml:"silence_percentile"`
	SilenceSmoothingKernel int          `yaml:"silence_smoothing_kernel"`
	CompressorThreshold    float64      `yaml:"compressor_threshold"`
	CompressorRatio        float64      `yaml:"compressor_ratio"`
	CompressorAttackMs     float64      `yaml:"compressor_attack_ms"`
	CompressorReleaseMs    float64      `yaml:"compressor_release_ms"`
	EQBands                []dsp.EQBand `yaml:"eq_bands"`
	DeessThreshold         float64      `yaml:"deess_threshold"`
	DeessRatio             float64      `yaml:"deess_ratio"`
	ExciterAmount          float64      `yaml:"exciter_amount"`
	MultibandChunkSeconds  float64      `yaml:"multiband_chunk_seconds"`
	FrameSize              int          `yaml:"frame_size"`
	HopSize                int          `yaml:"hop_size"`
}

// ChunkingConfig contains memory-bounded chunked processing parameters
type ChunkingConfig struct {
	ChunkDuration   float64 `yaml:"chunk_duration"`   // seconds
	OverlapDuration float64 `yaml:"overlap_duration"` // seconds
}

// TranscriptionConfig contains transcription backend and reconciliation
// parameters
type TranscriptionConfig struct {
	Endpoint       string  `yaml:"endpoint"`
	APIKey         string  `yaml:"api_key"`
	Timeout        int     `yaml:"timeout"` // seconds
	MaxRetries     int     `yaml:"max_retries"`
	MaxConcurrent  int     `yaml:"max_concurrent"`
	WindowDuration float64 `yaml:"window_duration"`  // seconds
	WindowOverlap  float64 `yaml:"window_overlap"`   // seconds
	MaxChunkBytes  int64   `yaml:"max_chunk_bytes"`  // bytes
	MergeGap       float64 `yaml:"merge_gap"`        // seconds
	Language       string  `yaml:"language"`
	MinSpeakers    int     `yaml:"min_speakers"`
	MaxSpeakers    int     `yaml:"max_speakers"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the documented default configuration, usable without a
// config file.
func Default() *Config {
	dspDefaults := pipeline.DefaultDSPConfig()
	return &Config{
		Audio: AudioConfig{
			TargetSampleRate: 48000,
			NormalizeTarget:  0.99,
		},
		DSP: DSPConfig{
			NoiseSubtractionFactor: dspDefaults.Noise.SubtractionFactor,
			NoiseFrames:            dspDefaults.Noise.NoiseFrames,
			SilencePercentile:      dspDefaults.Silence.Percentile,
			SilenceSmoothingKernel: dspDefaults.Silence.SmoothingKernel,
			CompressorThreshold:    dspDefaults.Compressor.Threshold,
			CompressorRatio:        dspDefaults.Compressor.Ratio,
			CompressorAttackMs:     dspDefaults.Compressor.AttackMs,
			CompressorReleaseMs:    dspDefaults.Compressor.ReleaseMs,
			EQBands:                dspDefaults.Spectral.Bands,
			DeessThreshold:         dspDefaults.Spectral.DeessThreshold,
			DeessRatio:             dspDefaults.Spectral.DeessRatio,
			ExciterAmount:          dspDefaults.Spectral.ExciterAmount,
			MultibandChunkSeconds:  dspDefaults.Multiband.ChunkSeconds,
			FrameSize:              dspDefaults.Noise.FrameSize,
			HopSize:                dspDefaults.Noise.HopSize,
		},
		Chunking: ChunkingConfig{
			ChunkDuration:   900,
			OverlapDuration: 1,
		},
		Transcription: TranscriptionConfig{
			Endpoint:       "http://localhost:9090",
			Timeout:        120,
			MaxRetries:     3,
			MaxConcurrent:  4,
			WindowDuration: 180,
			WindowOverlap:  2,
			MaxChunkBytes:  100 * 1024 * 1024,
			MergeGap:       1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file. Missing fields keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.DSP.Validate(); err != nil {
		return fmt.Errorf("dsp config: %w", err)
	}

	if err := c.Chunking.Validate(); err != nil {
		return fmt.Errorf("chunking config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.TargetSampleRate < 8000 || a.TargetSampleRate > 192000 {
		return fmt.Errorf("target_sample_rate must be between 8000 and 192000 Hz, got %d", a.TargetSampleRate)
	}

	if a.NormalizeTarget <= 0 || a.NormalizeTarget > 1 {
		return fmt.Errorf("normalize_target must be in (0, 1], got %f", a.NormalizeTarget)
	}

	return nil
}

// Validate validates DSP configuration
func (d *DSPConfig) Validate() error {
	if d.NoiseSubtractionFactor < 0 {
		return fmt.Errorf("noise_subtraction_factor cannot be negative, got %f", d.NoiseSubtractionFactor)
	}

	if d.NoiseFrames < 1 {
		return fmt.Errorf("noise_frames must be at least 1, got %d", d.NoiseFrames)
	}

	if d.SilencePercentile < 0 || d.SilencePercentile > 1 {
		return fmt.Errorf("silence_percentile must be between 0 and 1, got %f", d.SilencePercentile)
	}

	if d.CompressorRatio < 1 {
		return fmt.Errorf("compressor_ratio must be at least 1, got %f", d.CompressorRatio)
	}

	if d.CompressorThreshold <= 0 {
		return fmt.Errorf("compressor_threshold must be positive, got %f", d.CompressorThreshold)
	}

	if d.CompressorAttackMs <= 0 || d.CompressorReleaseMs <= 0 {
		return fmt.Errorf("compressor attack/release must be positive, got %f/%f", d.CompressorAttackMs, d.CompressorReleaseMs)
	}

	if d.MultibandChunkSeconds <= 0 {
		return fmt.Errorf("multiband_chunk_seconds must be positive, got %f", d.MultibandChunkSeconds)
	}

	if d.FrameSize < 64 || d.FrameSize > 8192 {
		return fmt.Errorf("frame_size must be between 64 and 8192 samples, got %d", d.FrameSize)
	}

	if d.HopSize < 1 || d.HopSize > d.FrameSize {
		return fmt.Errorf("hop_size must be between 1 and frame_size (%d), got %d", d.FrameSize, d.HopSize)
	}

	return nil
}

// Validate validates chunking configuration
func (c *ChunkingConfig) Validate() error {
	if c.ChunkDuration <= 0 {
		return fmt.Errorf("chunk_duration must be positive, got %f", c.ChunkDuration)
	}

	if c.OverlapDuration < 0 || c.OverlapDuration >= c.ChunkDuration {
		return fmt.Errorf("overlap_duration (%f) must be in [0, chunk_duration %f)", c.OverlapDuration, c.ChunkDuration)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	if t.WindowDuration <= 0 {
		return fmt.Errorf("window_duration must be positive, got %f", t.WindowDuration)
	}

	if t.WindowOverlap < 0 || t.WindowOverlap >= t.WindowDuration {
		return fmt.Errorf("window_overlap (%f) must be in [0, window_duration %f)", t.WindowOverlap, t.WindowDuration)
	}

	if t.MergeGap <= 0 {
		return fmt.Errorf("merge_gap must be positive, got %f", t.MergeGap)
	}

	if t.MinSpeakers < 0 || t.MaxSpeakers < 0 {
		return fmt.Errorf("speaker counts cannot be negative, got %d/%d", t.MinSpeakers, t.MaxSpeakers)
	}

	if t.MaxSpeakers > 0 && t.MinSpeakers > t.MaxSpeakers {
		return fmt.Errorf("min_speakers (%d) cannot exceed max_speakers (%d)", t.MinSpeakers, t.MaxSpeakers)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// PipelineConfig maps the audio and chunking sections onto the pipeline's
// configuration.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		TargetSampleRate: c.Audio.TargetSampleRate,
		NormalizeTarget:  c.Audio.NormalizeTarget,
		ChunkSeconds:     c.Chunking.ChunkDuration,
		OverlapSeconds:   c.Chunking.OverlapDuration,
	}
}

// DSPProcessorConfig maps the dsp section onto per-processor configurations.
func (c *Config) DSPProcessorConfig() pipeline.DSPConfig {
	defaults := pipeline.DefaultDSPConfig()

	defaults.Noise.SubtractionFactor = c.DSP.NoiseSubtractionFactor
	defaults.Noise.NoiseFrames = c.DSP.NoiseFrames
	defaults.Noise.FrameSize = c.DSP.FrameSize
	defaults.Noise.HopSize = c.DSP.HopSize

	defaults.Silence.Percentile = c.DSP.SilencePercentile
	defaults.Silence.SmoothingKernel = c.DSP.SilenceSmoothingKernel
	defaults.Silence.FrameSize = c.DSP.FrameSize
	defaults.Silence.HopSize = c.DSP.HopSize

	defaults.Compressor.Threshold = c.DSP.CompressorThreshold
	defaults.Compressor.Ratio = c.DSP.CompressorRatio
	defaults.Compressor.AttackMs = c.DSP.CompressorAttackMs
	defaults.Compressor.ReleaseMs = c.DSP.CompressorReleaseMs

	if len(c.DSP.EQBands) > 0 {
		defaults.Spectral.Bands = c.DSP.EQBands
	}
	defaults.Spectral.DeessThreshold = c.DSP.DeessThreshold
	defaults.Spectral.DeessRatio = c.DSP.DeessRatio
	defaults.Spectral.ExciterAmount = c.DSP.ExciterAmount
	defaults.Spectral.FrameSize = c.DSP.FrameSize
	defaults.Spectral.HopSize = c.DSP.HopSize

	defaults.Multiband.ChunkSeconds = c.DSP.MultibandChunkSeconds

	return defaults
}

// TranscriberConfig maps the transcription section onto the transcriber's
// configuration.
func (c *Config) TranscriberConfig() transcription.Config {
	return transcription.Config{
		MergeGapSeconds:      c.Transcription.MergeGap,
		WindowSeconds:        c.Transcription.WindowDuration,
		WindowOverlapSeconds: c.Transcription.WindowOverlap,
		MaxChunkBytes:        c.Transcription.MaxChunkBytes,
	}
}

// ClientConfig maps the transcription section onto the backend client's
// configuration.
func (c *Config) ClientConfig() transcription.ClientConfig {
	return transcription.ClientConfig{
		Endpoint:      c.Transcription.Endpoint,
		APIKey:        c.Transcription.APIKey,
		Timeout:       c.GetTranscriptionTimeout(),
		MaxRetries:    c.Transcription.MaxRetries,
		MaxConcurrent: c.Transcription.MaxConcurrent,
	}
}

// TranscriptionOptions returns the caller hints forwarded to the backends.
func (c *Config) TranscriptionOptions() transcription.Options {
	return transcription.Options{
		Language:    c.Transcription.Language,
		MinSpeakers: c.Transcription.MinSpeakers,
		MaxSpeakers: c.Transcription.MaxSpeakers,
	}
}

// GetTranscriptionTimeout returns the backend timeout as a time.Duration
func (c *Config) GetTranscriptionTimeout() time.Duration {
	return time.Duration(c.Transcription.Timeout) * time.Second
}
