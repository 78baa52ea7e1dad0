package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
)

// FileInfo carries bookkeeping about a loaded file for downstream stages.
type FileInfo struct {
	Name              string  `json:"name"`
	OriginalDuration  float64 `json:"original_duration_seconds"`
	ProcessedDuration float64 `json:"processed_duration_seconds"`
	SampleRate        int     `json:"sample_rate"`
}

// resampleQuality balances speed against interpolation accuracy; 4 is the
// usual choice for non-realtime conversion.
const resampleQuality = 4

// Load decodes an audio file into a mono waveform at targetRate.
// Supported formats: wav, mp3, ogg, flac natively; m4a via an ffmpeg
// transcode. Multi-channel audio is downmixed by channel averaging and the
// sample rate is converted once, up front. All failures wrap *LoadError.
func Load(path string, targetRate int) (*Waveform, *FileInfo, error) {
	if targetRate <= 0 {
		return nil, nil, &LoadError{Path: path, Err: fmt.Errorf("target sample rate must be positive, got %d", targetRate)}
	}

	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".m4a" {
		w, origDur, err := decodeWithFFmpeg(path, targetRate)
		if err != nil {
			return nil, nil, &LoadError{Path: path, Err: err}
		}
		return w, &FileInfo{
			Name:             filepath.Base(path),
			OriginalDuration: origDur,
			SampleRate:       targetRate,
		}, nil
	}

	// A header or frame-walk probe answers the original duration before any
	// decoding happens. Formats the probe cannot read fall back to the
	// decoder's stream length below.
	var probed float64
	if d, probeErr := ProbeDuration(path); probeErr == nil {
		probed = d.Seconds()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)

	switch ext {
	case ".wav":
		stream, format, err = wav.Decode(f)
	case ".mp3":
		stream, format, err = mp3.Decode(f)
	case ".ogg":
		stream, format, err = vorbis.Decode(f)
	case ".flac":
		stream, format, err = flac.Decode(f)
	default:
		return nil, nil, &LoadError{Path: path, Err: fmt.Errorf("unsupported audio format %q", ext)}
	}
	if err != nil {
		return nil, nil, &LoadError{Path: path, Err: fmt.Errorf("decode %s: %w", ext, err)}
	}
	defer stream.Close()

	origDuration := float64(stream.Len()) / float64(format.SampleRate)
	if probed > 0 {
		origDuration = probed
	}

	var src beep.Streamer = stream
	if int(format.SampleRate) != targetRate {
		src = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(targetRate), stream)
	}

	samples, err := drainMono(src, stream)
	if err != nil {
		return nil, nil, &LoadError{Path: path, Err: err}
	}
	if len(samples) == 0 {
		return nil, nil, &LoadError{Path: path, Err: fmt.Errorf("no audio data decoded")}
	}

	info := &FileInfo{
		Name:             filepath.Base(path),
		OriginalDuration: origDuration,
		SampleRate:       targetRate,
	}

	return &Waveform{Samples: samples, SampleRate: targetRate}, info, nil
}

// drainMono pulls the entire stream and averages the stereo pair into mono.
// Mono sources come out of the decoders duplicated into both channels, so the
// average is exact for them.
func drainMono(src beep.Streamer, origin beep.StreamSeekCloser) ([]float64, error) {
	buf := make([][2]float64, 4096)
	samples := make([]float64, 0, 1<<16)

	for {
		n, ok := src.Stream(buf)
		for i := 0; i < n; i++ {
			samples = append(samples, (buf[i][0]+buf[i][1])/2)
		}
		if !ok {
			break
		}
	}

	if err := origin.Err(); err != nil {
		return nil, fmt.Errorf("stream audio: %w", err)
	}

	return samples, nil
}
