package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// epsilon guards divisions by near-zero magnitudes during phase
// reconstruction.
const epsilon = 1e-10

// STFT performs short-time Fourier analysis and synthesis with a Hann window.
// Synthesis uses windowed overlap-add normalized by the accumulated squared
// window, so Analyze followed by Synthesize reconstructs the input up to
// float rounding.
type STFT struct {
	frameSize int
	hopSize   int
	window    []float64
	fft       *fourier.FFT
}

// NewSTFT creates an STFT with the given frame and hop sizes.
// frameSize must be positive and hopSize in (0, frameSize].
func NewSTFT(frameSize, hopSize int) *STFT {
	window := make([]float64, frameSize)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(frameSize)))
	}
	return &STFT{
		frameSize: frameSize,
		hopSize:   hopSize,
		window:    window,
		fft:       fourier.NewFFT(frameSize),
	}
}

// FrameSize returns the analysis frame length in samples.
func (s *STFT) FrameSize() int { return s.frameSize }

// HopSize returns the hop length in samples.
func (s *STFT) HopSize() int { return s.hopSize }

// Bins returns the number of frequency bins per frame.
func (s *STFT) Bins() int { return s.frameSize/2 + 1 }

// BinFrequency returns the center frequency in Hz of bin k at sampleRate.
func (s *STFT) BinFrequency(k, sampleRate int) float64 {
	return float64(k) * float64(sampleRate) / float64(s.frameSize)
}

// NumFrames returns how many frames Analyze produces for an input of the
// given length.
func (s *STFT) NumFrames(length int) int {
	if length <= 0 {
		return 0
	}
	if length <= s.frameSize {
		return 1
	}
	return 1 + (length-s.frameSize+s.hopSize-1)/s.hopSize
}

// Analyze splits x into windowed overlapping frames and returns the complex
// spectrum of each (frameSize/2+1 bins). The tail frame is zero-padded.
func (s *STFT) Analyze(x []float64) [][]complex128 {
	numFrames := s.NumFrames(len(x))
	frames := make([][]complex128, numFrames)

	buf := make([]float64, s.frameSize)
	for f := 0; f < numFrames; f++ {
		start := f * s.hopSize
		for i := 0; i < s.frameSize; i++ {
			if start+i < len(x) {
				buf[i] = x[start+i] * s.window[i]
			} else {
				buf[i] = 0
			}
		}
		frames[f] = s.fft.Coefficients(nil, buf)
	}
	return frames
}

// Synthesize reconstructs a signal of the given length from spectral frames
// via windowed overlap-add.
func (s *STFT) Synthesize(frames [][]complex128, length int) []float64 {
	out := make([]float64, length)
	norm := make([]float64, length)

	seq := make([]float64, s.frameSize)
	for f, frame := range frames {
		start := f * s.hopSize
		// gonum's inverse transform is unnormalized: scale by 1/frameSize.
		s.fft.Sequence(seq, frame)
		for i := 0; i < s.frameSize; i++ {
			idx := start + i
			if idx >= length {
				break
			}
			out[idx] += seq[i] / float64(s.frameSize) * s.window[i]
			norm[idx] += s.window[i] * s.window[i]
		}
	}

	for i := range out {
		if norm[i] > epsilon {
			out[i] /= norm[i]
		}
	}
	return out
}

// Magnitudes returns the per-bin magnitude of a spectral frame.
func Magnitudes(frame []complex128) []float64 {
	mags := make([]float64, len(frame))
	for i, c := range frame {
		mags[i] = cmplx.Abs(c)
	}
	return mags
}

// ApplyMagnitudes rewrites a spectral frame with new magnitudes while keeping
// the original phase: c' = mag * c / (|c| + eps).
func ApplyMagnitudes(frame []complex128, mags []float64) {
	for i, c := range frame {
		a := cmplx.Abs(c)
		frame[i] = complex(mags[i], 0) * c / complex(a+epsilon, 0)
	}
}
