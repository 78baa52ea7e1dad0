package transcription

import (
	"fmt"
	"sort"
	"strings"
)

// AttributeSpeakers assigns each ASR chunk the speaker whose diarization
// spans overlap it for the longest total duration. Chunks with no
// intersecting span get the UnknownSpeaker label. Ties on total overlap
// resolve to the lexicographically smallest speaker label, so attribution is
// deterministic regardless of map iteration order.
func AttributeSpeakers(chunks []ASRChunk, spans []DiarizationSpan) []TranscriptSegment {
	segments := make([]TranscriptSegment, 0, len(chunks))
	for _, chunk := range chunks {
		overlaps := make(map[string]float64)
		for _, span := range spans {
			d := overlapDuration(chunk.Start, chunk.End, span.Start, span.End)
			if d > 0 {
				overlaps[span.Speaker] += d
			}
		}

		speaker := UnknownSpeaker
		if len(overlaps) > 0 {
			labels := make([]string, 0, len(overlaps))
			for label := range overlaps {
				labels = append(labels, label)
			}
			sort.Strings(labels)

			best := labels[0]
			for _, label := range labels[1:] {
				if overlaps[label] > overlaps[best] {
					best = label
				}
			}
			speaker = best
		}

		segments = append(segments, TranscriptSegment{
			Speaker: speaker,
			Start:   chunk.Start,
			End:     chunk.End,
			Text:    chunk.Text,
		})
	}
	return segments
}

// overlapDuration returns the length of the intersection of [aStart, aEnd]
// and [bStart, bEnd], or zero when they do not intersect.
func overlapDuration(aStart, aEnd, bStart, bEnd float64) float64 {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end <= start {
		return 0
	}
	return end - start
}

// MergeSegments walks segments in time order and merges a segment into the
// running one when the speaker matches and the gap between them is below
// gapThreshold seconds. Text joins with a single space; the end time extends.
// Merging an already-merged list is a no-op.
func MergeSegments(segments []TranscriptSegment, gapThreshold float64) []TranscriptSegment {
	if len(segments) == 0 {
		return nil
	}

	merged := make([]TranscriptSegment, 0, len(segments))
	current := segments[0]
	for _, seg := range segments[1:] {
		if seg.Speaker == current.Speaker && seg.Start-current.End < gapThreshold {
			current.Text = current.Text + " " + seg.Text
			if seg.End > current.End {
				current.End = seg.End
			}
			continue
		}
		merged = append(merged, current)
		current = seg
	}
	merged = append(merged, current)
	return merged
}

// SortSegments orders segments by start time. Windowed transcription can
// produce slightly out-of-order timestamps across window boundaries, so the
// global list is sorted before merging.
func SortSegments(segments []TranscriptSegment) {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
}

// FormatTranscript renders segments as "{speaker} ({start}, {end}) {text}"
// with one-decimal timestamps, separated by blank lines.
func FormatTranscript(segments []TranscriptSegment) string {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = fmt.Sprintf("%s (%.1f, %.1f) %s", seg.Speaker, seg.Start, seg.End, seg.Text)
	}
	return strings.Join(parts, "\n\n")
}
