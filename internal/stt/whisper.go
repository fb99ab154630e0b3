package stt

import (
	"context"
	"fmt"

	"hoover/ai"
	"hoover/internal/herr"
)

// WhisperProvider wraps the teacher's whisper.cpp-backed ai.Engine as
// the Whisper-local backend named in spec.md §4.4.
type WhisperProvider struct {
	engine *ai.Engine
}

func NewWhisperProvider(modelPath string) (*WhisperProvider, error) {
	engine, err := ai.NewEngine(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load whisper model: %v", herr.ErrSttFatal, err)
	}
	return &WhisperProvider{engine: engine}, nil
}

// Transcribe returns one utterance per whisper.cpp segment. The
// underlying binding does not surface a no_speech_prob per segment, so
// it is reported as 0; callers relying on the Hallucination Filter's
// no_speech_prob threshold should combine this backend with the text
// blacklist rules, which do not depend on it.
func (w *WhisperProvider) Transcribe(ctx context.Context, samples []float32) ([]Utterance, error) {
	segments, err := w.engine.TranscribeWithSegments(samples)
	if err != nil {
		return nil, fmt.Errorf("whisper transcription: %w", err)
	}

	out := make([]Utterance, 0, len(segments))
	for _, seg := range segments {
		out = append(out, Utterance{
			Text:   seg.Text,
			TStart: float64(seg.Start) / 1000.0,
			TEnd:   float64(seg.End) / 1000.0,
		})
	}
	return out, nil
}

func (w *WhisperProvider) Close() error {
	w.engine.Close()
	return nil
}
