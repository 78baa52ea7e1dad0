// Package metrics defines Prometheus instrumentation for the audio
// processing and transcription pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the pipeline
type Metrics struct {
	// File-level metrics
	FilesProcessed prometheus.Counter
	FilesFailed    prometheus.Counter
	FileDuration   prometheus.Histogram

	// DSP stage metrics
	StageDuration *prometheus.HistogramVec
	StageErrors   *prometheus.CounterVec

	// Chunked processing metrics
	ChunksProcessed   prometheus.Counter
	ChunksSubstituted prometheus.Counter

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionRetries   prometheus.Counter
	TranscriptionDuration  prometheus.Histogram
	WindowsTranscribed     prometheus.Counter

	// Reconciliation metrics
	SegmentsProduced prometheus.Counter
	SegmentsMerged   prometheus.Counter
	UnknownSpeakers  prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		FilesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_files_processed_total",
			Help: "Total number of audio files fully processed",
		}),
		FilesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_files_failed_total",
			Help: "Total number of audio files that failed processing",
		}),
		FileDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_file_duration_seconds",
			Help:    "Duration of processed audio files in seconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10s to ~3 hours
		}),

		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Wall time spent in each DSP stage",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"stage"}),
		StageErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_stage_errors_total",
			Help: "Total number of DSP stage failures",
		}, []string{"stage"}),

		ChunksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_chunks_processed_total",
			Help: "Total number of audio chunks processed",
		}),
		ChunksSubstituted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_chunks_substituted_total",
			Help: "Total number of failed chunks substituted with original audio",
		}),

		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_transcription_requests_total",
			Help: "Total number of transcription backend requests",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_transcription_retries_total",
			Help: "Total number of transcription request retries",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_transcription_duration_seconds",
			Help:    "Wall time of transcription backend requests",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~8 minutes
		}),
		WindowsTranscribed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_windows_transcribed_total",
			Help: "Total number of large-file time windows transcribed",
		}),

		SegmentsProduced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_segments_produced_total",
			Help: "Total number of speaker-attributed transcript segments produced",
		}),
		SegmentsMerged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_segments_merged_total",
			Help: "Total number of adjacent same-speaker segments merged",
		}),
		UnknownSpeakers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_unknown_speakers_total",
			Help: "Total number of ASR chunks with no diarization overlap",
		}),
	}
}
