// Package transcription drives ASR and speaker diarization over processed
// waveforms and reconciles the two model outputs into a single
// speaker-attributed transcript: interval-overlap speaker voting, adjacent
// same-speaker merging, and large-file windowed orchestration.
package transcription
