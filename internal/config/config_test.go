package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := Default()
	if err := config.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	yaml := `
audio:
  target_sample_rate: 16000
transcription:
  endpoint: "http://asr.internal:9090"
  api_key: "secret"
  language: "de"
logging:
  level: "debug"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.Audio.TargetSampleRate != 16000 {
		t.Errorf("override lost: target_sample_rate = %d", config.Audio.TargetSampleRate)
	}
	if config.Transcription.Endpoint != "http://asr.internal:9090" {
		t.Errorf("override lost: endpoint = %q", config.Transcription.Endpoint)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("override lost: level = %q", config.Logging.Level)
	}

	// Untouched fields keep their defaults.
	if config.Audio.NormalizeTarget != 0.99 {
		t.Errorf("default lost: normalize_target = %f", config.Audio.NormalizeTarget)
	}
	if config.Chunking.ChunkDuration != 900 {
		t.Errorf("default lost: chunk_duration = %f", config.Chunking.ChunkDuration)
	}
	if config.Transcription.MaxRetries != 3 {
		t.Errorf("default lost: max_retries = %d", config.Transcription.MaxRetries)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	yaml := `
audio:
  target_sample_rate: 100
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for absurd sample rate")
	}
	if !strings.Contains(err.Error(), "target_sample_rate") {
		t.Errorf("error should name the field, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("audio: [not a map"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidateCatchesBadSections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad normalize target", func(c *Config) { c.Audio.NormalizeTarget = 1.5 }, "normalize_target"},
		{"bad compressor ratio", func(c *Config) { c.DSP.CompressorRatio = 0.5 }, "compressor_ratio"},
		{"bad hop size", func(c *Config) { c.DSP.HopSize = c.DSP.FrameSize * 2 }, "hop_size"},
		{"overlap exceeds chunk", func(c *Config) { c.Chunking.OverlapDuration = 1000 }, "overlap_duration"},
		{"empty endpoint", func(c *Config) { c.Transcription.Endpoint = "" }, "endpoint"},
		{"speaker bounds inverted", func(c *Config) {
			c.Transcription.MinSpeakers = 5
			c.Transcription.MaxSpeakers = 2
		}, "min_speakers"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			err := config.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %q, got %v", tt.want, err)
			}
		})
	}
}

func TestConfigMappings(t *testing.T) {
	config := Default()
	config.Transcription.Timeout = 30
	config.Transcription.Language = "en"
	config.Transcription.MinSpeakers = 2

	if got := config.GetTranscriptionTimeout(); got != 30*time.Second {
		t.Errorf("timeout = %v", got)
	}

	pc := config.PipelineConfig()
	if pc.TargetSampleRate != 48000 || pc.ChunkSeconds != 900 {
		t.Errorf("unexpected pipeline config: %+v", pc)
	}

	tc := config.TranscriberConfig()
	if tc.WindowSeconds != 180 || tc.MergeGapSeconds != 1.0 {
		t.Errorf("unexpected transcriber config: %+v", tc)
	}

	cc := config.ClientConfig()
	if cc.Endpoint != config.Transcription.Endpoint || cc.Timeout != 30*time.Second {
		t.Errorf("unexpected client config: %+v", cc)
	}

	opts := config.TranscriptionOptions()
	if opts.Language != "en" || opts.MinSpeakers != 2 {
		t.Errorf("unexpected options: %+v", opts)
	}

	dc := config.DSPProcessorConfig()
	if dc.Noise.SubtractionFactor != config.DSP.NoiseSubtractionFactor {
		t.Errorf("dsp mapping lost subtraction factor: %+v", dc.Noise)
	}
	if dc.Silence.FrameSize != config.DSP.FrameSize {
		t.Errorf("dsp mapping lost frame size: %+v", dc.Silence)
	}
}
