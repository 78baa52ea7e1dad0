// Package audio handles waveform representation, multi-format decoding, and
// WAV encoding. It converts every input to mono float samples at the target
// sample rate so the DSP and transcription stages never branch on format.
package audio
