package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
)

// ffmpegBinary can be overridden in tests.
var ffmpegBinary = "ffmpeg"

// decodeWithFFmpeg transcodes formats without a native Go decoder (m4a) to
// mono 16-bit PCM WAV on stdout and decodes that. Resampling and downmix are
// delegated to ffmpeg in the same pass.
func decodeWithFFmpeg(path string, targetRate int) (*Waveform, float64, error) {
	cmd := exec.Command(ffmpegBinary,
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-f", "wav",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(targetRate),
		"-bitexact",
		"pipe:1",
	)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, 0, fmt.Errorf("ffmpeg transcode failed: %w: %s", err, stderr.String())
	}

	samples, channels, rate, err := DecodeWAV(fixPipedSizes(out.Bytes()))
	if err != nil {
		return nil, 0, fmt.Errorf("decode ffmpeg output: %w", err)
	}

	mono := DownmixMono(samples, channels)
	duration := float64(len(mono)) / float64(rate)

	return &Waveform{Samples: mono, SampleRate: rate}, duration, nil
}

// fixPipedSizes rewrites the RIFF and data chunk sizes that ffmpeg leaves as
// placeholders when it cannot seek (writing to a pipe).
func fixPipedSizes(data []byte) []byte {
	if len(data) < 44 {
		return data
	}
	riffSize := uint32(len(data) - 8)
	dataSize := uint32(len(data) - 44)
	if binary.LittleEndian.Uint32(data[4:8]) != riffSize {
		binary.LittleEndian.PutUint32(data[4:8], riffSize)
	}
	if uint32(len(data))-44 < binary.LittleEndian.Uint32(data[40:44]) {
		binary.LittleEndian.PutUint32(data[40:44], dataSize)
	}
	return data
}
