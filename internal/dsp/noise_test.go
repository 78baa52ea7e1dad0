package dsp

import (
	"math"
	"math/rand"
	"testing"
)

func TestNoiseSuppressorReducesStationaryNoise(t *testing.T) {
	sampleRate := 8000
	rng := rand.New(rand.NewSource(42))

	// Leading room noise only, then noise plus a strong tone.
	signal := make([]float64, sampleRate*2)
	for i := range signal {
		signal[i] = 0.05 * (rng.Float64()*2 - 1)
		if i >= sampleRate {
			signal[i] += 0.8 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate))
		}
	}

	sup := NewNoiseSuppressor(DefaultNoiseSuppressorConfig())
	out, err := sup.Process(signal)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(out) != len(signal) {
		t.Fatalf("expected %d samples, got %d", len(signal), len(out))
	}

	rms := func(x []float64) float64 {
		sum := 0.0
		for _, s := range x {
			sum += s * s
		}
		return math.Sqrt(sum / float64(len(x)))
	}

	// Noise-only region shrinks, tonal region survives.
	noiseBefore := rms(signal[sampleRate/4 : sampleRate/2])
	noiseAfter := rms(out[sampleRate/4 : sampleRate/2])
	if noiseAfter > noiseBefore*0.5 {
		t.Errorf("noise region not reduced: %g -> %g", noiseBefore, noiseAfter)
	}

	toneAfter := rms(out[sampleRate+sampleRate/4 : sampleRate+sampleRate/2])
	if toneAfter < 0.2 {
		t.Errorf("tone over-suppressed, rms %g", toneAfter)
	}
}

func TestNoiseSuppressorSilentInput(t *testing.T) {
	sup := NewNoiseSuppressor(DefaultNoiseSuppressorConfig())

	signal := make([]float64, 8000)
	out, err := sup.Process(signal)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	for i, s := range out {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			t.Fatalf("non-finite sample at %d: %g", i, s)
		}
	}
}

func TestNoiseSuppressorEmptyInput(t *testing.T) {
	sup := NewNoiseSuppressor(DefaultNoiseSuppressorConfig())

	out, err := sup.Process(nil)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty output, got %d samples", len(out))
	}
}

func TestNoiseSuppressorFewerFramesThanEstimate(t *testing.T) {
	// Input shorter than the noise estimation window must not panic.
	sup := NewNoiseSuppressor(DefaultNoiseSuppressorConfig())

	signal := makeSine(440, 8000, 512)
	out, err := sup.Process(signal)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(out) != len(signal) {
		t.Errorf("expected %d samples, got %d", len(signal), len(out))
	}
}
