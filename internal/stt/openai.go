package stt

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	openAIRequestTimeout = 60 * time.Second
	defaultOpenAIModel   = "whisper-1"
)

// OpenAIProvider is the OpenAI-remote backend named in spec.md §4.4:
// network-bound, text only, no_speech_prob = 0, 60s request timeout
// with one retry on connect/5xx failures (spec.md §5).
type OpenAIProvider struct {
	client     openai.Client
	model      string
	sampleRate int
}

func NewOpenAIProvider(apiKey, model string, sampleRate int) *OpenAIProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: openAIRequestTimeout}),
		option.WithMaxRetries(0),
	)
	return &OpenAIProvider{client: client, model: model, sampleRate: sampleRate}
}

func (o *OpenAIProvider) Transcribe(ctx context.Context, samples []float32) ([]Utterance, error) {
	wav := wrapWav(samples, o.sampleRate)

	text, err := o.transcribeOnce(ctx, wav)
	var apiErr *openai.Error
	if err != nil && !(errors.As(err, &apiErr) && apiErr.StatusCode < 500) {
		slog.Warn("openai transcription failed, retrying once", "error", err)
		text, err = o.transcribeOnce(ctx, wav)
	}
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}
	if text == "" {
		return nil, nil
	}

	return []Utterance{{
		Text:   text,
		TStart: 0,
		TEnd:   float64(len(samples)) / float64(o.sampleRate),
	}}, nil
}

func (o *OpenAIProvider) transcribeOnce(ctx context.Context, wav []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, openAIRequestTimeout)
	defer cancel()

	resp, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: o.model,
		File:  bytes.NewReader(wav),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (o *OpenAIProvider) Close() error { return nil }

// wrapWav wraps raw f32 PCM in a minimal 16-bit PCM WAV container, the
// format the transcription endpoint expects as file input.
func wrapWav(samples []float32, sampleRate int) []byte {
	buf := &bytes.Buffer{}
	dataSize := len(samples) * 2
	byteRate := sampleRate * 2

	buf.WriteString("RIFF")
	writeUint32(buf, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	writeUint32(buf, 16)
	writeUint16(buf, 1) // PCM
	writeUint16(buf, 1) // mono
	writeUint32(buf, uint32(sampleRate))
	writeUint32(buf, uint32(byteRate))
	writeUint16(buf, 2) // block align
	writeUint16(buf, 16)

	buf.WriteString("data")
	writeUint32(buf, uint32(dataSize))
	for _, s := range samples {
		v := int16(s * 32767)
		writeUint16(buf, uint16(v))
	}

	return buf.Bytes()
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}
