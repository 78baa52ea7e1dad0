// Package chunker splits long waveforms into overlapping windows to bound
// memory use and reassembles processed windows with a linear crossfade. The
// same window plan drives both the DSP chunk processor and the file-level
// transcription windowing.
package chunker

import (
	"context"
	"fmt"
	"log/slog"
)

// Window is a half-open sample range [Start, End) within a larger buffer.
type Window struct {
	Start int
	End   int
}

// Len returns the window length in samples.
func (w Window) Len() int { return w.End - w.Start }

// Plan produces ordered overlapping windows covering exactly totalSamples.
// Consecutive windows overlap by overlapSamples; the final window may be
// shorter. overlapSamples must be smaller than chunkSamples.
func Plan(totalSamples, chunkSamples, overlapSamples int) ([]Window, error) {
	if totalSamples < 0 {
		return nil, fmt.Errorf("total samples cannot be negative, got %d", totalSamples)
	}
	if chunkSamples < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSamples)
	}
	if overlapSamples < 0 || overlapSamples >= chunkSamples {
		return nil, fmt.Errorf("overlap %d must be in [0, chunk size %d)", overlapSamples, chunkSamples)
	}
	if totalSamples == 0 {
		return nil, nil
	}

	stride := chunkSamples - overlapSamples
	var windows []Window
	for start := 0; ; start += stride {
		end := start + chunkSamples
		if end >= totalSamples {
			windows = append(windows, Window{Start: start, End: totalSamples})
			break
		}
		windows = append(windows, Window{Start: start, End: end})
	}
	return windows, nil
}

// ProcessFunc transforms one window's samples. It must return a buffer of the
// same length; a shorter or longer result is treated as a failure.
type ProcessFunc func(ctx context.Context, samples []float64) ([]float64, error)

// Config contains chunked processing parameters.
type Config struct {
	ChunkSamples   int
	OverlapSamples int
}

// Processor applies a per-window transform over a long buffer and crossfades
// the results back together.
type Processor struct {
	config Config
	logger *slog.Logger

	chunksProcessed   uint64
	chunksSubstituted uint64
}

// NewProcessor creates a chunked processor.
func NewProcessor(config Config, logger *slog.Logger) (*Processor, error) {
	if config.ChunkSamples < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", config.ChunkSamples)
	}
	if config.OverlapSamples < 0 || config.OverlapSamples >= config.ChunkSamples {
		return nil, fmt.Errorf("overlap %d must be in [0, chunk size %d)", config.OverlapSamples, config.ChunkSamples)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{config: config, logger: logger}, nil
}

// Stats reports chunked processing counters.
type Stats struct {
	ChunksProcessed   uint64 `json:"chunks_processed"`
	ChunksSubstituted uint64 `json:"chunks_substituted"`
}

// GetStats returns processing counters.
func (p *Processor) GetStats() Stats {
	return Stats{
		ChunksProcessed:   p.chunksProcessed,
		ChunksSubstituted: p.chunksSubstituted,
	}
}

// Process runs fn over each window independently and overlays the results
// into a buffer of exactly the input length, crossfading overlap regions with
// linear fades. A window whose processing fails keeps its original samples;
// partial-failure tolerance is deliberate, since transcribing one slightly
// unprocessed stretch beats losing the whole file. The output is returned
// unnormalized; callers apply a single final peak normalization.
func (p *Processor) Process(ctx context.Context, samples []float64, fn ProcessFunc) ([]float64, error) {
	windows, err := Plan(len(samples), p.config.ChunkSamples, p.config.OverlapSamples)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(samples))
	overlap := p.config.OverlapSamples

	for i, win := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Each window works on its own copy so a failing transform cannot
		// corrupt the source buffer.
		segment := make([]float64, win.Len())
		copy(segment, samples[win.Start:win.End])

		processed, err := fn(ctx, segment)
		if err != nil || len(processed) != win.Len() {
			if err != nil {
				p.logger.Warn("chunk processing failed, substituting original audio",
					slog.Int("chunk", i),
					slog.Int("start", win.Start),
					slog.Int("end", win.End),
					slog.String("error", err.Error()),
				)
			} else {
				p.logger.Warn("chunk processing changed length, substituting original audio",
					slog.Int("chunk", i),
					slog.Int("got", len(processed)),
					slog.Int("want", win.Len()),
				)
			}
			processed = samples[win.Start:win.End]
			p.chunksSubstituted++
		}

		fadeIn := i > 0
		fadeOut := i < len(windows)-1
		overlay(out[win.Start:win.End], processed, overlap, fadeIn, fadeOut)
		p.chunksProcessed++
	}

	return out, nil
}

// overlay adds src into dst, applying a linear fade-in over the leading
// overlap region and a fade-out over the trailing one. Fade weights at offset
// j are j/overlap and 1-j/overlap, so overlapping contributions sum to one.
func overlay(dst, src []float64, overlap int, fadeIn, fadeOut bool) {
	n := len(src)
	for j := 0; j < n; j++ {
		w := 1.0
		if fadeIn && j < overlap {
			w *= float64(j) / float64(overlap)
		}
		if fadeOut && j >= n-overlap {
			w *= float64(n-j) / float64(overlap)
		}
		dst[j] += src[j] * w
	}
}
