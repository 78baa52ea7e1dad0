package dsp

import (
	"fmt"
	"math"
)

// CompressorConfig contains feedback compressor parameters.
type CompressorConfig struct {
	Threshold float64 // envelope level above which gain reduction starts
	Ratio     float64 // compression ratio, >= 1
	AttackMs  float64 // envelope attack time constant in milliseconds
	ReleaseMs float64 // envelope release time constant in milliseconds
}

// DefaultCompressorConfig returns the documented defaults.
func DefaultCompressorConfig() CompressorConfig {
	return CompressorConfig{
		Threshold: 0.5,
		Ratio:     4.0,
		AttackMs:  5.0,
		ReleaseMs: 50.0,
	}
}

// Compressor is a classic feedback compressor with an asymmetric
// attack/release envelope follower.
type Compressor struct {
	config     CompressorConfig
	sampleRate int
}

// NewCompressor creates a compressor for the given sample rate.
func NewCompressor(config CompressorConfig, sampleRate int) (*Compressor, error) {
	if config.Ratio < 1 {
		return nil, fmt.Errorf("ratio must be >= 1, got %f", config.Ratio)
	}
	if config.Threshold <= 0 {
		return nil, fmt.Errorf("threshold must be positive, got %f", config.Threshold)
	}
	if config.AttackMs <= 0 || config.ReleaseMs <= 0 {
		return nil, fmt.Errorf("attack and release times must be positive, got %f/%f", config.AttackMs, config.ReleaseMs)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	return &Compressor{config: config, sampleRate: sampleRate}, nil
}

// Name implements Processor.
func (c *Compressor) Name() string { return "dynamics" }

// Process applies gain reduction driven by a smoothed envelope. The envelope
// follower is a genuine per-sample feedback loop: each smoothed value depends
// on the previous one, so this stays an explicit sequential scan.
func (c *Compressor) Process(samples []float64) ([]float64, error) {
	attack := math.Exp(-1.0 / (float64(c.sampleRate) * c.config.AttackMs / 1000.0))
	release := math.Exp(-1.0 / (float64(c.sampleRate) * c.config.ReleaseMs / 1000.0))

	out := make([]float64, len(samples))
	env := 0.0
	for i, s := range samples {
		level := math.Abs(s)

		coeff := release
		if level > env {
			coeff = attack
		}
		env = coeff*env + (1-coeff)*level

		gain := 1.0
		if env > c.config.Threshold {
			gain = math.Pow(c.config.Threshold/env, c.config.Ratio-1)
		}
		out[i] = s * gain
	}
	return out, nil
}
