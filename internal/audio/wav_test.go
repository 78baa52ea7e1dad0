package audio

import (
	"math"
	"testing"
)

func sineWaveform(freq float64, rate, n int) *Waveform {
	w := NewWaveform(n, rate)
	for i := range w.Samples {
		w.Samples[i] = 0.8 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return w
}

func TestEncodeDecodeWAVRoundTrip(t *testing.T) {
	original := sineWaveform(440, 16000, 16000)

	data, err := EncodeWAV(original)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if len(data) != 44+len(original.Samples)*2 {
		t.Errorf("unexpected encoded size %d", len(data))
	}

	samples, channels, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if channels != 1 {
		t.Errorf("expected mono output, got %d channels", channels)
	}
	if rate != 16000 {
		t.Errorf("expected rate 16000, got %d", rate)
	}
	if len(samples) != len(original.Samples) {
		t.Fatalf("expected %d samples, got %d", len(original.Samples), len(samples))
	}

	// 16-bit quantization bounds the round-trip error.
	for i := range samples {
		if math.Abs(samples[i]-original.Samples[i]) > 1.0/32768.0 {
			t.Fatalf("sample %d diverged: %g vs %g", i, samples[i], original.Samples[i])
		}
	}
}

func TestEncodeWAVClampsOutOfRange(t *testing.T) {
	w := &Waveform{Samples: []float64{2.0, -2.0, 0.0}, SampleRate: 8000}

	data, err := EncodeWAV(w)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	samples, _, _, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if samples[0] < 0.99 || samples[1] > -0.99 {
		t.Errorf("out-of-range samples must clamp to full scale, got %v", samples)
	}
}

func TestEncodeWAVRejectsBadInput(t *testing.T) {
	if _, err := EncodeWAV(&Waveform{SampleRate: 8000}); err == nil {
		t.Error("expected error for empty waveform")
	}
	if _, err := EncodeWAV(&Waveform{Samples: []float64{0}, SampleRate: 0}); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, _, _, err := DecodeWAV([]byte("short")); err == nil {
		t.Error("expected error for truncated data")
	}
	bad := make([]byte, 64)
	copy(bad, "JUNK")
	if _, _, _, err := DecodeWAV(bad); err == nil {
		t.Error("expected error for missing RIFF marker")
	}
}

func TestValidateWAV(t *testing.T) {
	data, err := EncodeWAV(sineWaveform(100, 8000, 800))
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if err := ValidateWAV(data); err != nil {
		t.Errorf("ValidateWAV rejected valid data: %v", err)
	}
	if err := ValidateWAV(data[:20]); err == nil {
		t.Error("expected error for truncated data")
	}
}

func TestGetWAVDuration(t *testing.T) {
	data, err := EncodeWAV(sineWaveform(100, 8000, 4000))
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	d, err := GetWAVDuration(data)
	if err != nil {
		t.Fatalf("GetWAVDuration failed: %v", err)
	}
	if math.Abs(d-0.5) > 1e-9 {
		t.Errorf("expected 0.5s, got %g", d)
	}
}

func TestGetWAVInfo(t *testing.T) {
	data, err := EncodeWAV(sineWaveform(100, 44100, 44100))
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	info, err := GetWAVInfo(data)
	if err != nil {
		t.Fatalf("GetWAVInfo failed: %v", err)
	}
	if info.SampleRate != 44100 || info.Channels != 1 || info.BitsPerSample != 16 {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.NumSamples != 44100 {
		t.Errorf("expected 44100 samples, got %d", info.NumSamples)
	}
	if math.Abs(info.Duration-1.0) > 1e-9 {
		t.Errorf("expected 1s duration, got %g", info.Duration)
	}
}
