package dsp

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// silenceFloorRatio gates frames whose energy sits below this fraction of the
// loudest frame, independent of the percentile threshold. 1e-3 is roughly
// 60dB down, far below any real speech.
const silenceFloorRatio = 1e-3

// SilenceGateConfig contains adaptive silence gating parameters.
type SilenceGateConfig struct {
	// Percentile of frame energies used as the gate threshold. The gate is
	// content-relative rather than a fixed dB level, so quiet recordings are
	// not wiped out.
	Percentile float64
	// SmoothingKernel is the moving-average width applied to the frame mask
	// to avoid abrupt gating artifacts.
	SmoothingKernel int
	FrameSize       int
	HopSize         int
}

// DefaultSilenceGateConfig returns the documented defaults.
func DefaultSilenceGateConfig() SilenceGateConfig {
	return SilenceGateConfig{
		Percentile:      0.10,
		SmoothingKernel: 5,
		FrameSize:       1024,
		HopSize:         256,
	}
}

// SilenceGate suppresses frames whose spectral energy falls below an adaptive
// percentile threshold.
type SilenceGate struct {
	config SilenceGateConfig
	stft   *STFT
}

// NewSilenceGate creates a silence gate.
func NewSilenceGate(config SilenceGateConfig) *SilenceGate {
	return &SilenceGate{
		config: config,
		stft:   NewSTFT(config.FrameSize, config.HopSize),
	}
}

// Name implements Processor.
func (g *SilenceGate) Name() string { return "silence" }

// Process computes per-frame energies, derives the percentile threshold,
// builds a smoothed keep/suppress mask, interpolates it to sample-rate
// resolution, and multiplies the waveform by it.
func (g *SilenceGate) Process(samples []float64) ([]float64, error) {
	if len(samples) == 0 {
		return samples, nil
	}

	frames := g.stft.Analyze(samples)

	energies := make([]float64, len(frames))
	for f, frame := range frames {
		sum := 0.0
		for _, m := range Magnitudes(frame) {
			sum += m
		}
		energies[f] = sum / float64(len(frame))
	}

	threshold := percentile(energies, g.config.Percentile)

	peak := 0.0
	for _, e := range energies {
		if e > peak {
			peak = e
		}
	}

	// Strictly above the percentile, and above a small fraction of the
	// loudest frame. The second term matters for recordings where silence
	// makes up more than the percentile's share: the percentile then lands
	// inside the silent population, but those frames are still orders of
	// magnitude below any speech and must gate closed.
	mask := make([]float64, len(frames))
	for i, e := range energies {
		if e > threshold && e > peak*silenceFloorRatio {
			mask[i] = 1
		}
	}

	mask = smoothMask(mask, g.config.SmoothingKernel)
	sampleMask := upsampleMask(mask, g.stft.HopSize(), len(samples))

	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s * sampleMask[i]
	}
	return out, nil
}

// percentile returns the p-quantile (0..1) of values.
func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// smoothMask applies a centered moving average of the given kernel width.
func smoothMask(mask []float64, kernel int) []float64 {
	if kernel <= 1 {
		return mask
	}
	half := kernel / 2
	out := make([]float64, len(mask))
	for i := range mask {
		sum := 0.0
		count := 0
		for j := i - half; j <= i+half; j++ {
			if j >= 0 && j < len(mask) {
				sum += mask[j]
				count++
			}
		}
		out[i] = sum / float64(count)
	}
	return out
}

// upsampleMask linearly interpolates a frame-rate mask to sample resolution.
// Frame f covers samples around f*hop.
func upsampleMask(mask []float64, hop, length int) []float64 {
	out := make([]float64, length)
	if len(mask) == 0 {
		return out
	}
	if len(mask) == 1 {
		for i := range out {
			out[i] = mask[0]
		}
		return out
	}
	for i := 0; i < length; i++ {
		pos := float64(i) / float64(hop)
		f := int(pos)
		if f >= len(mask)-1 {
			out[i] = mask[len(mask)-1]
			continue
		}
		frac := pos - float64(f)
		out[i] = mask[f]*(1-frac) + mask[f+1]*frac
	}
	return out
}
