// Package dsp implements the signal processing chain that cleans interview
// audio before transcription: spectral noise subtraction, adaptive silence
// gating, dynamics compression, spectral shaping, and multiband compression.
// All processors are length-preserving transforms over mono float samples.
package dsp
