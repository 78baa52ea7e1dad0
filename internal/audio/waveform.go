package audio

import (
	"math"
	"time"
)

// Waveform holds a mono audio buffer at a fixed sample rate. All DSP stages
// operate on this representation; multi-channel input is downmixed during load.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// NewWaveform allocates a silent waveform of the given length.
func NewWaveform(numSamples, sampleRate int) *Waveform {
	return &Waveform{
		Samples:    make([]float64, numSamples),
		SampleRate: sampleRate,
	}
}

// Duration returns the waveform duration.
func (w *Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / float64(w.SampleRate) * float64(time.Second))
}

// Seconds returns the waveform duration in seconds.
func (w *Waveform) Seconds() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Peak returns the maximum absolute sample value.
func (w *Waveform) Peak() float64 {
	peak := 0.0
	for _, s := range w.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// Normalize scales the waveform so its peak equals target. A silent waveform
// is left untouched. Normalizing an already-normalized waveform is a no-op,
// which makes the final pipeline normalization idempotent.
func (w *Waveform) Normalize(target float64) {
	peak := w.Peak()
	if peak == 0 {
		return
	}
	gain := target / peak
	for i := range w.Samples {
		w.Samples[i] *= gain
	}
}

// Clamp limits all samples to the [-1, 1] range.
func (w *Waveform) Clamp() {
	for i, s := range w.Samples {
		if s > 1 {
			w.Samples[i] = 1
		} else if s < -1 {
			w.Samples[i] = -1
		}
	}
}

// Clone returns a deep copy of the waveform.
func (w *Waveform) Clone() *Waveform {
	samples := make([]float64, len(w.Samples))
	copy(samples, w.Samples)
	return &Waveform{Samples: samples, SampleRate: w.SampleRate}
}

// Slice returns a copied sub-range [start, end) of the waveform.
func (w *Waveform) Slice(start, end int) *Waveform {
	if start < 0 {
		start = 0
	}
	if end > len(w.Samples) {
		end = len(w.Samples)
	}
	if start >= end {
		return &Waveform{SampleRate: w.SampleRate}
	}
	samples := make([]float64, end-start)
	copy(samples, w.Samples[start:end])
	return &Waveform{Samples: samples, SampleRate: w.SampleRate}
}

// DownmixMono averages interleaved multi-channel samples into a mono buffer.
func DownmixMono(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(interleaved))
		copy(out, interleaved)
		return out
	}
	numFrames := len(interleaved) / channels
	out := make([]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}
