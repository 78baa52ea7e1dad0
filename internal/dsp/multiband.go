package dsp

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// MultibandConfig contains multiband compression parameters.
type MultibandConfig struct {
	// ChunkSeconds is the fixed duration of independently processed chunks.
	ChunkSeconds float64
	// MinBands and MaxBands bound the adaptively chosen band count.
	MinBands int
	MaxBands int
	// Compressor applied independently per band.
	Compressor CompressorConfig
}

// DefaultMultibandConfig returns the documented defaults.
func DefaultMultibandConfig() MultibandConfig {
	return MultibandConfig{
		ChunkSeconds: 5.0,
		MinBands:     4,
		MaxBands:     10,
		Compressor: CompressorConfig{
			Threshold: 0.4,
			Ratio:     3.0,
			AttackMs:  10.0,
			ReleaseMs: 80.0,
		},
	}
}

// MultibandCompressor splits each chunk into equal-energy frequency bands and
// compresses each band independently. Band edges follow cumulative-energy
// quantiles, so compression aggressiveness adapts to spectral content without
// manual band configuration.
type MultibandCompressor struct {
	config     MultibandConfig
	sampleRate int
	compressor *Compressor
}

// NewMultibandCompressor creates a multiband compressor for the given sample
// rate.
func NewMultibandCompressor(config MultibandConfig, sampleRate int) (*MultibandCompressor, error) {
	if config.MinBands < 1 || config.MaxBands < config.MinBands {
		return nil, fmt.Errorf("invalid band bounds [%d, %d]", config.MinBands, config.MaxBands)
	}
	if config.ChunkSeconds <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %f", config.ChunkSeconds)
	}
	comp, err := NewCompressor(config.Compressor, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("band compressor: %w", err)
	}
	return &MultibandCompressor{
		config:     config,
		sampleRate: sampleRate,
		compressor: comp,
	}, nil
}

// Name implements Processor.
func (m *MultibandCompressor) Name() string { return "multiband" }

// Process compresses fixed-duration chunks band by band and clamps the summed
// result to [-1, 1].
func (m *MultibandCompressor) Process(samples []float64) ([]float64, error) {
	if len(samples) == 0 {
		return samples, nil
	}

	chunkSamples := int(m.config.ChunkSeconds * float64(m.sampleRate))
	if chunkSamples < 1 {
		chunkSamples = 1
	}

	out := make([]float64, len(samples))
	for start := 0; start < len(samples); start += chunkSamples {
		end := start + chunkSamples
		if end > len(samples) {
			end = len(samples)
		}
		processed, err := m.processChunk(samples[start:end])
		if err != nil {
			return nil, err
		}
		copy(out[start:end], processed)
	}

	for i, s := range out {
		if s > 1 {
			out[i] = 1
		} else if s < -1 {
			out[i] = -1
		}
	}
	return out, nil
}

// processChunk runs the adaptive band split and per-band compression over one
// chunk.
func (m *MultibandCompressor) processChunk(chunk []float64) ([]float64, error) {
	if len(chunk) < 2 {
		out := make([]float64, len(chunk))
		copy(out, chunk)
		return out, nil
	}

	fft := fourier.NewFFT(len(chunk))
	coeffs := fft.Coefficients(nil, chunk)

	energies := make([]float64, len(coeffs))
	total := 0.0
	for i, c := range coeffs {
		e := cmplx.Abs(c)
		energies[i] = e * e
		total += energies[i]
	}

	if total == 0 {
		out := make([]float64, len(chunk))
		return out, nil
	}

	bands := m.bandCount(total)
	edges := energyQuantileEdges(energies, total, bands)

	sum := make([]float64, len(chunk))
	bandCoeffs := make([]complex128, len(coeffs))
	seq := make([]float64, len(chunk))
	for b := 0; b < bands; b++ {
		lo, hi := edges[b], edges[b+1]
		if lo >= hi {
			continue
		}
		for i := range bandCoeffs {
			if i >= lo && i < hi {
				bandCoeffs[i] = coeffs[i]
			} else {
				bandCoeffs[i] = 0
			}
		}
		fft.Sequence(seq, bandCoeffs)

		bandSignal := make([]float64, len(chunk))
		for i, v := range seq {
			bandSignal[i] = v / float64(len(chunk))
		}

		compressed, err := m.compressor.Process(bandSignal)
		if err != nil {
			return nil, err
		}
		for i, v := range compressed {
			sum[i] += v
		}
	}
	return sum, nil
}

// bandCount picks the number of bands from the log of total spectral energy,
// clamped to the configured bounds.
func (m *MultibandCompressor) bandCount(totalEnergy float64) int {
	bands := m.config.MinBands + int(math.Log10(totalEnergy+1))
	if bands < m.config.MinBands {
		bands = m.config.MinBands
	}
	if bands > m.config.MaxBands {
		bands = m.config.MaxBands
	}
	return bands
}

// energyQuantileEdges returns bands+1 bin indices whose spans hold roughly
// equal spectral energy.
func energyQuantileEdges(energies []float64, total float64, bands int) []int {
	edges := make([]int, bands+1)
	edges[bands] = len(energies)

	cum := 0.0
	next := 1
	for i, e := range energies {
		cum += e
		for next < bands && cum >= total*float64(next)/float64(bands) {
			edges[next] = i + 1
			next++
		}
	}
	for ; next < bands; next++ {
		edges[next] = len(energies)
	}
	return edges
}
