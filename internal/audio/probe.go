package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tcolgate/mp3"
)

// ErrProbeUnsupported marks formats the prober cannot answer without a full
// decode; callers fall back to decoding.
var ErrProbeUnsupported = fmt.Errorf("probe: unsupported format")

// ProbeDuration reports the duration of an audio file without a full decode.
// mp3 files are frame-walked, wav files are answered from the header. Other
// formats return ErrProbeUnsupported.
func ProbeDuration(path string) (time.Duration, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3DurationByFrames(path)
	case ".wav":
		return wavDuration(path)
	default:
		return 0, ErrProbeUnsupported
	}
}

func mp3DurationByFrames(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := mp3.NewDecoder(f)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
	)
	for {
		if err := d.Decode(&frame, &skipped); err != nil {
			if err == io.EOF {
				break
			}
			return 0, fmt.Errorf("walk mp3 frames: %w", err)
		}
		total += frame.Duration()
	}
	return total, nil
}

func wavDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	header := make([]byte, 44)
	if _, err := io.ReadFull(f, header); err != nil {
		return 0, fmt.Errorf("read wav header: %w", err)
	}

	seconds, err := GetWAVDuration(header)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
