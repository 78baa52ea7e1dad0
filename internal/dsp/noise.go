package dsp

// NoiseSuppressorConfig contains spectral subtraction parameters.
type NoiseSuppressorConfig struct {
	// SubtractionFactor scales the estimated noise floor before subtraction.
	SubtractionFactor float64
	// NoiseFrames is how many leading STFT frames estimate the noise floor.
	// Interview recordings start with a short stretch of room tone, so the
	// opening frames are a usable stationary noise reference.
	NoiseFrames int
	FrameSize   int
	HopSize     int
}

// DefaultNoiseSuppressorConfig returns the documented defaults.
func DefaultNoiseSuppressorConfig() NoiseSuppressorConfig {
	return NoiseSuppressorConfig{
		SubtractionFactor: 1.5,
		NoiseFrames:       10,
		FrameSize:         1024,
		HopSize:           256,
	}
}

// NoiseSuppressor removes stationary background noise via spectral
// subtraction with the original phase reapplied.
type NoiseSuppressor struct {
	config NoiseSuppressorConfig
	stft   *STFT
}

// NewNoiseSuppressor creates a noise suppressor.
func NewNoiseSuppressor(config NoiseSuppressorConfig) *NoiseSuppressor {
	return &NoiseSuppressor{
		config: config,
		stft:   NewSTFT(config.FrameSize, config.HopSize),
	}
}

// Name implements Processor.
func (n *NoiseSuppressor) Name() string { return "noise" }

// Process estimates the noise floor from the leading frames, subtracts the
// scaled estimate from every frame's magnitude (clamped at zero), and
// resynthesizes with the original phase.
func (n *NoiseSuppressor) Process(samples []float64) ([]float64, error) {
	if len(samples) == 0 {
		return samples, nil
	}

	frames := n.stft.Analyze(samples)

	estFrames := n.config.NoiseFrames
	if estFrames > len(frames) {
		estFrames = len(frames)
	}

	bins := n.stft.Bins()
	noiseFloor := make([]float64, bins)
	for f := 0; f < estFrames; f++ {
		for i, m := range Magnitudes(frames[f]) {
			noiseFloor[i] += m
		}
	}
	for i := range noiseFloor {
		noiseFloor[i] /= float64(estFrames)
	}

	for _, frame := range frames {
		mags := Magnitudes(frame)
		for i := range mags {
			cleaned := mags[i] - n.config.SubtractionFactor*noiseFloor[i]
			if cleaned < 0 {
				cleaned = 0
			}
			mags[i] = cleaned
		}
		ApplyMagnitudes(frame, mags)
	}

	return n.stft.Synthesize(frames, len(samples)), nil
}
