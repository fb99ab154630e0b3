package stt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	vosk "github.com/alphacep/vosk-api/go"

	"hoover/internal/herr"
)

// VoskProvider is the Vosk-local backend named in spec.md §4.4: real
// time on CPU, text only, no_speech_prob always 0.
type VoskProvider struct {
	model      *vosk.VoskModel
	sampleRate float64
}

func NewVoskProvider(modelPath string, sampleRate int) (*VoskProvider, error) {
	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load vosk model: %v", herr.ErrSttFatal, err)
	}
	return &VoskProvider{model: model, sampleRate: float64(sampleRate)}, nil
}

type voskResult struct {
	Text string `json:"text"`
}

// Transcribe feeds an entire chunk to a fresh recognizer and returns
// its final result as a single utterance, matching spec.md's "text
// only; no_speech_prob = 0" contract for this backend.
func (v *VoskProvider) Transcribe(ctx context.Context, samples []float32) ([]Utterance, error) {
	rec, err := vosk.NewRecognizer(v.model, v.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: create vosk recognizer: %v", herr.ErrSttFatal, err)
	}
	defer rec.Free()

	pcm := floatToPCM16(samples)
	rec.AcceptWaveform(pcm)

	var result voskResult
	if err := json.Unmarshal([]byte(rec.FinalResult()), &result); err != nil {
		return nil, fmt.Errorf("parse vosk result: %w", err)
	}

	if result.Text == "" {
		return nil, nil
	}
	return []Utterance{{
		Text:   result.Text,
		TStart: 0,
		TEnd:   float64(len(samples)) / v.sampleRate,
	}}, nil
}

func (v *VoskProvider) Close() error {
	v.model.Free()
	return nil
}

func floatToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
