package transcription

import "fmt"

// UnknownSpeaker labels ASR chunks with no diarization overlap.
const UnknownSpeaker = "Unknown"

// ASRChunk is word- or phrase-level recognizer output before speaker
// attribution.
type ASRChunk struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// DiarizationSpan is a labeled time interval from the diarization model.
// Spans from different speakers do not overlap, but ASR chunks may straddle
// several spans.
type DiarizationSpan struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// TranscriptSegment is a speaker-attributed stretch of transcribed text.
type TranscriptSegment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start_time"`
	End     float64 `json:"end_time"`
	Text    string  `json:"text"`
}

// Options carries caller hints forwarded to the ASR and diarization backends.
type Options struct {
	Language    string `json:"language,omitempty"`
	MinSpeakers int    `json:"min_speakers,omitempty"`
	MaxSpeakers int    `json:"max_speakers,omitempty"`
}

// Result is the durable output of a transcription job: the merged segment
// list and its formatted rendering.
type Result struct {
	Segments []TranscriptSegment `json:"segments"`
	Text     string              `json:"text"`
}

// Error is a typed, message-bearing transcription failure. Stage names which
// part of the job failed.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcription failed at stage %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
