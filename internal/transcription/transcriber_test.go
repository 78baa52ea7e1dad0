package transcription

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fankto/EchoQuest-sub000/internal/audio"
)

type fakeRecognizer struct {
	chunks [][]ASRChunk
	err    error
	calls  int
}

func (f *fakeRecognizer) Transcribe(ctx context.Context, wav []byte, opts Options) ([]ASRChunk, error) {
	defer func() { f.calls++ }()
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.chunks) {
		return nil, nil
	}
	return f.chunks[f.calls], nil
}

type fakeDiarizer struct {
	spans [][]DiarizationSpan
	err   error
	calls int
}

func (f *fakeDiarizer) Diarize(ctx context.Context, wav []byte, opts Options) ([]DiarizationSpan, error) {
	defer func() { f.calls++ }()
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.spans) {
		return nil, nil
	}
	return f.spans[f.calls], nil
}

type fakeModels struct {
	loadErr error
	loads   int
	unloads int
}

func (f *fakeModels) Load(ctx context.Context) error {
	f.loads++
	return f.loadErr
}

func (f *fakeModels) Unload() { f.unloads++ }

func testWaveform(seconds float64, rate int) *audio.Waveform {
	return &audio.Waveform{
		Samples:    make([]float64, int(seconds*float64(rate))),
		SampleRate: rate,
	}
}

func TestTranscribeEndToEnd(t *testing.T) {
	rec := &fakeRecognizer{chunks: [][]ASRChunk{{
		{Text: "hello", Start: 0.0, End: 1.0},
		{Text: "world", Start: 1.2, End: 2.0},
		{Text: "goodbye", Start: 5.0, End: 6.0},
	}}}
	dia := &fakeDiarizer{spans: [][]DiarizationSpan{{
		{Speaker: "A", Start: 0.0, End: 2.5},
		{Speaker: "B", Start: 4.5, End: 6.5},
	}}}
	models := &fakeModels{}

	tr, err := NewTranscriber(rec, dia, models, DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewTranscriber failed: %v", err)
	}

	result, err := tr.Transcribe(context.Background(), testWaveform(10, 16000), Options{})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	// hello+world merge (same speaker, 0.2s gap); goodbye stays separate.
	if len(result.Segments) != 2 {
		t.Fatalf("expected 2 merged segments, got %d: %+v", len(result.Segments), result.Segments)
	}
	if result.Segments[0].Speaker != "A" || result.Segments[0].Text != "hello world" {
		t.Errorf("first segment wrong: %+v", result.Segments[0])
	}
	if result.Segments[1].Speaker != "B" || result.Segments[1].Text != "goodbye" {
		t.Errorf("second segment wrong: %+v", result.Segments[1])
	}
	if !strings.Contains(result.Text, "A (0.0, 2.0) hello world") {
		t.Errorf("formatted text wrong:\n%s", result.Text)
	}

	if tr.State() != StateDone {
		t.Errorf("expected done state, got %s", tr.State())
	}
	if models.loads != 1 || models.unloads != 1 {
		t.Errorf("models loaded %d times, unloaded %d times", models.loads, models.unloads)
	}
}

func TestTranscribeEmptyRecognizerOutput(t *testing.T) {
	rec := &fakeRecognizer{}
	dia := &fakeDiarizer{}

	tr, err := NewTranscriber(rec, dia, nil, DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewTranscriber failed: %v", err)
	}

	_, err = tr.Transcribe(context.Background(), testWaveform(10, 16000), Options{})
	if err == nil {
		t.Fatal("expected error when every window is empty")
	}
	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if terr.Stage != "transcribe" {
		t.Errorf("expected stage transcribe, got %q", terr.Stage)
	}
	if tr.State() != StateFailed {
		t.Errorf("expected failed state, got %s", tr.State())
	}
}

func TestTranscribeUnloadsModelsOnFailure(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("backend down")}
	dia := &fakeDiarizer{}
	models := &fakeModels{}

	tr, err := NewTranscriber(rec, dia, models, DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewTranscriber failed: %v", err)
	}

	_, err = tr.Transcribe(context.Background(), testWaveform(5, 16000), Options{})
	if err == nil {
		t.Fatal("expected error from failing recognizer")
	}
	if models.unloads != 1 {
		t.Errorf("models must unload on failure, unloads=%d", models.unloads)
	}
	if tr.State() != StateFailed {
		t.Errorf("expected failed state, got %s", tr.State())
	}
}

func TestTranscribeModelLoadFailure(t *testing.T) {
	models := &fakeModels{loadErr: errors.New("no gpu")}

	tr, err := NewTranscriber(&fakeRecognizer{}, &fakeDiarizer{}, models, DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewTranscriber failed: %v", err)
	}

	_, err = tr.Transcribe(context.Background(), testWaveform(5, 16000), Options{})
	var terr *Error
	if !errors.As(err, &terr) || terr.Stage != "load_models" {
		t.Fatalf("expected load_models stage error, got %v", err)
	}
}

func TestTranscribeEmptyWaveform(t *testing.T) {
	tr, err := NewTranscriber(&fakeRecognizer{}, &fakeDiarizer{}, nil, DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewTranscriber failed: %v", err)
	}

	_, err = tr.Transcribe(context.Background(), &audio.Waveform{SampleRate: 16000}, Options{})
	var terr *Error
	if !errors.As(err, &terr) || terr.Stage != "load" {
		t.Fatalf("expected load stage error, got %v", err)
	}
}

func TestTranscribeWindowedOffsetsTimestamps(t *testing.T) {
	const rate = 1000
	config := Config{
		MergeGapSeconds:      1.0,
		WindowSeconds:        10,
		WindowOverlapSeconds: 1,
		MaxChunkBytes:        100 * 1024 * 1024,
	}

	// 19s of audio at 10s windows with 1s overlap: windows [0,10s) and
	// [9s,19s). Window-relative chunks must land at file time.
	rec := &fakeRecognizer{chunks: [][]ASRChunk{
		{{Text: "first", Start: 1.0, End: 2.0}},
		{{Text: "second", Start: 3.0, End: 4.0}},
	}}
	dia := &fakeDiarizer{spans: [][]DiarizationSpan{
		{{Speaker: "A", Start: 0.0, End: 10.0}},
		{{Speaker: "B", Start: 0.0, End: 10.0}},
	}}

	tr, err := NewTranscriber(rec, dia, nil, config, nil, nil)
	if err != nil {
		t.Fatalf("NewTranscriber failed: %v", err)
	}

	result, err := tr.Transcribe(context.Background(), testWaveform(19, rate), Options{})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if rec.calls != 2 {
		t.Fatalf("expected 2 windows, recognizer called %d times", rec.calls)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %+v", result.Segments)
	}
	if result.Segments[0].Start != 1.0 || result.Segments[0].End != 2.0 {
		t.Errorf("first window segment misplaced: %+v", result.Segments[0])
	}
	// Second window starts at sample 9000 = 9.0s, so 3.0 becomes 12.0.
	if result.Segments[1].Start != 12.0 || result.Segments[1].End != 13.0 {
		t.Errorf("second window segment misplaced: %+v", result.Segments[1])
	}
}

func TestTranscribeWindowedSortsAcrossWindows(t *testing.T) {
	const rate = 1000
	config := Config{
		MergeGapSeconds:      0.5,
		WindowSeconds:        10,
		WindowOverlapSeconds: 2,
		MaxChunkBytes:        100 * 1024 * 1024,
	}

	// The second window's first chunk lands earlier in file time than the
	// first window's last chunk; the global sort must fix the order.
	rec := &fakeRecognizer{chunks: [][]ASRChunk{
		{{Text: "tail", Start: 9.5, End: 9.9}},
		{{Text: "head", Start: 0.2, End: 0.6}},
	}}
	dia := &fakeDiarizer{spans: [][]DiarizationSpan{
		{{Speaker: "A", Start: 0.0, End: 10.0}},
		{{Speaker: "B", Start: 0.0, End: 10.0}},
	}}

	tr, err := NewTranscriber(rec, dia, nil, config, nil, nil)
	if err != nil {
		t.Fatalf("NewTranscriber failed: %v", err)
	}

	result, err := tr.Transcribe(context.Background(), testWaveform(17, rate), Options{})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	// Second window offset is 8.0s, so "head" sits at 8.2s, before "tail"
	// at 9.5s.
	if len(result.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %+v", result.Segments)
	}
	if result.Segments[0].Text != "head" || result.Segments[1].Text != "tail" {
		t.Errorf("segments out of order: %+v", result.Segments)
	}
}

func TestNewTranscriberValidation(t *testing.T) {
	if _, err := NewTranscriber(nil, &fakeDiarizer{}, nil, DefaultConfig(), nil, nil); err == nil {
		t.Error("expected error for nil recognizer")
	}
	if _, err := NewTranscriber(&fakeRecognizer{}, nil, nil, DefaultConfig(), nil, nil); err == nil {
		t.Error("expected error for nil diarizer")
	}
	bad := DefaultConfig()
	bad.WindowOverlapSeconds = bad.WindowSeconds
	if _, err := NewTranscriber(&fakeRecognizer{}, &fakeDiarizer{}, nil, bad, nil, nil); err == nil {
		t.Error("expected error for overlap equal to window")
	}
}

func TestStateString(t *testing.T) {
	states := map[State]string{
		StateIdle:          "idle",
		StateLoadingModels: "loading_models",
		StateTranscribing:  "transcribing",
		StateDiarizing:     "diarizing",
		StateReconciling:   "reconciling",
		StateMerging:       "merging",
		StateDone:          "done",
		StateFailed:        "failed",
		State(99):          "unknown",
	}
	for s, want := range states {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
