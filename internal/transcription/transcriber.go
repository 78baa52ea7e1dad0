package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fankto/EchoQuest-sub000/internal/audio"
	"github.com/fankto/EchoQuest-sub000/internal/chunker"
	"github.com/fankto/EchoQuest-sub000/internal/metrics"
)

// State tracks a transcription job's progress. failed is terminal and
// reachable from every stage.
type State int

const (
	StateIdle State = iota
	StateLoadingModels
	StateTranscribing
	StateDiarizing
	StateReconciling
	StateMerging
	StateDone
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingModels:
		return "loading_models"
	case StateTranscribing:
		return "transcribing"
	case StateDiarizing:
		return "diarizing"
	case StateReconciling:
		return "reconciling"
	case StateMerging:
		return "merging"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config contains transcription job parameters.
type Config struct {
	// MergeGapSeconds is the maximum silence between same-speaker segments
	// that still merges them into one speaker turn.
	MergeGapSeconds float64
	// WindowSeconds splits oversized audio into independently transcribed
	// time windows; WindowOverlapSeconds keeps boundary words in at least
	// one window.
	WindowSeconds        float64
	WindowOverlapSeconds float64
	// MaxChunkBytes forces windowing for files above this size regardless
	// of duration.
	MaxChunkBytes int64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MergeGapSeconds:      1.0,
		WindowSeconds:        180,
		WindowOverlapSeconds: 2,
		MaxChunkBytes:        100 * 1024 * 1024,
	}
}

// Transcriber runs ASR and diarization over processed waveforms and
// assembles the speaker-attributed transcript.
type Transcriber struct {
	recognizer Recognizer
	diarizer   Diarizer
	models     ModelManager
	config     Config
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu    sync.RWMutex
	state State
}

// NewTranscriber creates a transcriber. The model manager is injected so the
// caller decides whether models are cached across jobs.
func NewTranscriber(recognizer Recognizer, diarizer Diarizer, models ModelManager, config Config, logger *slog.Logger, m *metrics.Metrics) (*Transcriber, error) {
	if recognizer == nil {
		return nil, fmt.Errorf("recognizer cannot be nil")
	}
	if diarizer == nil {
		return nil, fmt.Errorf("diarizer cannot be nil")
	}
	if models == nil {
		models = NoopModelManager{}
	}
	if config.MergeGapSeconds <= 0 {
		config.MergeGapSeconds = 1.0
	}
	if config.WindowSeconds <= 0 {
		config.WindowSeconds = 180
	}
	if config.WindowOverlapSeconds < 0 || config.WindowOverlapSeconds >= config.WindowSeconds {
		return nil, fmt.Errorf("window overlap %f must be in [0, window %f)", config.WindowOverlapSeconds, config.WindowSeconds)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcriber{
		recognizer: recognizer,
		diarizer:   diarizer,
		models:     models,
		config:     config,
		logger:     logger,
		metrics:    m,
		state:      StateIdle,
	}, nil
}

// State returns the current job state.
func (t *Transcriber) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Transcriber) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
	t.logger.Debug("transcription state change", slog.String("state", s.String()))
}

// TranscribeFile loads an audio file at targetRate and transcribes it. Files
// larger than MaxChunkBytes are windowed regardless of duration.
func (t *Transcriber) TranscribeFile(ctx context.Context, path string, targetRate int, opts Options) (*Result, error) {
	w, _, err := audio.Load(path, targetRate)
	if err != nil {
		return nil, err
	}

	var sizeBytes int64
	if fi, err := os.Stat(path); err == nil {
		sizeBytes = fi.Size()
	}

	return t.transcribe(ctx, w, opts, sizeBytes)
}

// Transcribe runs the full job over an in-memory waveform.
func (t *Transcriber) Transcribe(ctx context.Context, w *audio.Waveform, opts Options) (*Result, error) {
	return t.transcribe(ctx, w, opts, 0)
}

func (t *Transcriber) transcribe(ctx context.Context, w *audio.Waveform, opts Options, sizeBytes int64) (result *Result, err error) {
	// Models are released on every path, success or failure. The failed
	// state is set here too so a panic-free error exit always lands in a
	// terminal state.
	defer func() {
		t.models.Unload()
		if err != nil {
			t.setState(StateFailed)
		}
	}()

	if len(w.Samples) == 0 {
		return nil, &Error{Stage: "load", Err: fmt.Errorf("empty waveform")}
	}

	t.setState(StateLoadingModels)
	if err := t.models.Load(ctx); err != nil {
		return nil, &Error{Stage: "load_models", Err: err}
	}

	windows, err := t.planWindows(w, sizeBytes)
	if err != nil {
		return nil, &Error{Stage: "plan", Err: err}
	}

	t.logger.Info("transcription started",
		slog.Float64("duration_seconds", w.Seconds()),
		slog.Int("windows", len(windows)),
	)

	var segments []TranscriptSegment
	for i, win := range windows {
		windowSegments, err := t.transcribeWindow(ctx, w, win, opts)
		if err != nil {
			return nil, err
		}

		// Offset window-relative timestamps to file time before they join
		// the global list.
		offset := float64(win.Start) / float64(w.SampleRate)
		for j := range windowSegments {
			windowSegments[j].Start += offset
			windowSegments[j].End += offset
		}
		segments = append(segments, windowSegments...)

		if t.metrics != nil {
			t.metrics.WindowsTranscribed.Inc()
		}
		t.logger.Debug("window transcribed",
			slog.Int("window", i),
			slog.Int("segments", len(windowSegments)),
		)
	}

	if len(segments) == 0 {
		return nil, &Error{Stage: "transcribe", Err: fmt.Errorf("recognizer produced no usable output")}
	}

	// Overlap regions can leave adjacent windows slightly out of order, so
	// sort globally by start time rather than trusting window order.
	SortSegments(segments)

	t.setState(StateMerging)
	merged := MergeSegments(segments, t.config.MergeGapSeconds)

	if t.metrics != nil {
		t.metrics.SegmentsProduced.Add(float64(len(merged)))
		t.metrics.SegmentsMerged.Add(float64(len(segments) - len(merged)))
	}

	t.setState(StateDone)
	t.logger.Info("transcription complete",
		slog.Int("raw_segments", len(segments)),
		slog.Int("merged_segments", len(merged)),
	)

	return &Result{
		Segments: merged,
		Text:     FormatTranscript(merged),
	}, nil
}

// planWindows returns one window per transcription unit. Short, small files
// get a single window covering the whole waveform.
func (t *Transcriber) planWindows(w *audio.Waveform, sizeBytes int64) ([]chunker.Window, error) {
	windowed := w.Seconds() > t.config.WindowSeconds ||
		(t.config.MaxChunkBytes > 0 && sizeBytes > t.config.MaxChunkBytes)
	if !windowed {
		return []chunker.Window{{Start: 0, End: len(w.Samples)}}, nil
	}

	windowSamples := int(t.config.WindowSeconds * float64(w.SampleRate))
	overlapSamples := int(t.config.WindowOverlapSeconds * float64(w.SampleRate))
	return chunker.Plan(len(w.Samples), windowSamples, overlapSamples)
}

// transcribeWindow runs ASR, diarization, and speaker attribution for one
// window. Returned timestamps are window-relative.
func (t *Transcriber) transcribeWindow(ctx context.Context, w *audio.Waveform, win chunker.Window, opts Options) ([]TranscriptSegment, error) {
	segment := w.Slice(win.Start, win.End)
	wavData, err := audio.EncodeWAV(segment)
	if err != nil {
		return nil, &Error{Stage: "encode", Err: err}
	}

	t.setState(StateTranscribing)
	chunks, err := t.recognizer.Transcribe(ctx, wavData, opts)
	if err != nil {
		return nil, &Error{Stage: "transcribe", Err: err}
	}
	if len(chunks) == 0 {
		// A silent window is fine; the job fails only if every window is
		// empty.
		return nil, nil
	}

	t.setState(StateDiarizing)
	spans, err := t.diarizer.Diarize(ctx, wavData, opts)
	if err != nil {
		return nil, &Error{Stage: "diarize", Err: err}
	}

	t.setState(StateReconciling)
	attributed := AttributeSpeakers(chunks, spans)

	if t.metrics != nil {
		for _, seg := range attributed {
			if seg.Speaker == UnknownSpeaker {
				t.metrics.UnknownSpeakers.Inc()
			}
		}
	}

	return attributed, nil
}
