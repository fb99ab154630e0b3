package speaker

import (
	"fmt"

	"hoover/internal/herr"
)

const enrollmentSegmentSecs = 3

// Enroll splits an enrollment recording into 3-second segments,
// embeds each, means the embeddings, L2-normalises, and persists the
// result under name, per spec.md §4.6.
func Enroll(encoder *Encoder, store *Store, name string, samples []float32, sampleRate int) error {
	segmentLen := enrollmentSegmentSecs * sampleRate
	if len(samples) < segmentLen {
		return fmt.Errorf("enrollment recording too short: %w", herr.ErrMissingAudio)
	}

	var sum Embedding
	var count int
	for start := 0; start+segmentLen <= len(samples); start += segmentLen {
		segment := samples[start : start+segmentLen]
		e, err := encoder.Embed(segment)
		if err != nil {
			return fmt.Errorf("embed enrollment segment: %w", err)
		}
		if sum == nil {
			sum = make(Embedding, len(e))
		}
		for i, v := range e {
			sum[i] += v
		}
		count++
	}

	if count == 0 {
		return fmt.Errorf("enrollment produced no segments: %w", herr.ErrMissingAudio)
	}
	for i := range sum {
		sum[i] /= float32(count)
	}

	return store.Add(name, sum.Normalise())
}
