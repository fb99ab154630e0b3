// Package ai wraps the teacher's whisper.cpp cgo binding as the Engine
// used by the Whisper-local STT backend (spec.md §4.4). Trimmed down
// from the teacher's multi-engine, multi-backend ai package: hoover has
// exactly one whisper.cpp engine and no GigaAM/faster-whisper fallback,
// so the TranscriptionEngine interface, EngineType/EngineConfig
// scaffolding and the Python subprocess path are gone; what remains is
// the part of the teacher's Engine that actually talks to whisper.cpp.
package ai

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"

	whisper "hoover/ai/binding"
)

// TranscriptSegment is one whisper.cpp segment with millisecond
// timestamps, as consumed by internal/stt's WhisperProvider.
type TranscriptSegment struct {
	Start int64
	End   int64
	Text  string
}

// Engine owns a loaded whisper.cpp model and serialises access to it;
// whisper.cpp contexts are not safe for concurrent use.
type Engine struct {
	model     whisper.Model
	modelPath string
	language  string
	mu        sync.Mutex
}

// NewEngine loads the ggml model at modelPath. language is read from
// WHISPER_LANG, defaulting to "auto" so both Russian and English are
// picked up without configuration.
func NewEngine(modelPath string) (*Engine, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, err
	}

	lang := strings.TrimSpace(os.Getenv("WHISPER_LANG"))
	if lang == "" {
		lang = "auto"
	}

	slog.Info("whisper engine loaded", "model", modelPath, "language", lang)

	return &Engine{model: model, modelPath: modelPath, language: lang}, nil
}

// TranscribeWithSegments runs one whisper.cpp pass over samples (16kHz
// mono f32) and returns its segments. Audio below the RMS/amplitude
// floor is skipped without invoking the model, since whisper.cpp tends
// to hallucinate filler text on near-silent input.
func (e *Engine) TranscribeWithSegments(samples []float32) ([]TranscriptSegment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !hasSignificantAudio(samples) {
		return nil, nil
	}

	ctx, err := e.model.NewContext()
	if err != nil {
		return nil, err
	}

	if err := ctx.SetLanguage(e.language); err != nil {
		slog.Warn("whisper: unsupported language, falling back to auto", "language", e.language, "error", err)
		_ = ctx.SetLanguage("auto")
	} else {
		ctx.SetTranslate(false)
	}

	// Low-hallucination settings: decoding starts at temperature 0 and
	// only steps up by 0.2 when a decode fails whisper.cpp's fallback
	// thresholds; no conditioning on prior segments.
	ctx.SetBeamSize(5)
	ctx.SetTemperature(0.0)
	ctx.SetTemperatureFallback(0.2)
	ctx.SetMaxTokensPerSegment(128)
	ctx.SetSplitOnWord(true)
	ctx.SetEntropyThold(2.4)
	ctx.SetMaxContext(-1)

	if err := ctx.Process(normalize(samples), nil, nil, nil); err != nil {
		return nil, err
	}

	var segments []TranscriptSegment
	for {
		segment, err := ctx.NextSegment()
		if err != nil {
			break
		}
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		segments = append(segments, TranscriptSegment{
			Start: segment.Start.Milliseconds(),
			End:   segment.End.Milliseconds(),
			Text:  text,
		})
	}

	return segments, nil
}

func (e *Engine) Close() {
	e.model.Close()
}

// hasSignificantAudio filters near-silent chunks before they reach
// whisper.cpp, per spec.md §4.4's hallucination-avoidance intent.
func hasSignificantAudio(samples []float32) bool {
	if len(samples) < 1600 { // under 0.1s at 16kHz
		return false
	}

	var sumSq float64
	var maxAbs float32
	for _, s := range samples {
		sumSq += float64(s * s)
		if abs := float32(math.Abs(float64(s))); abs > maxAbs {
			maxAbs = abs
		}
	}
	rms := math.Sqrt(sumSq / float64(len(samples)))

	const minRMS = 0.005
	const minAmplitude = 0.01
	return rms >= minRMS && maxAbs >= minAmplitude
}

// normalize scales samples to a target RMS so quiet microphone input
// doesn't starve whisper.cpp's beam search, clamping to avoid clipping.
func normalize(in []float32) []float32 {
	const targetRMS = 0.03
	if len(in) == 0 {
		return in
	}

	var sumSq float64
	for _, s := range in {
		sumSq += float64(s * s)
	}
	rms := math.Sqrt(sumSq / float64(len(in)))
	scale := targetRMS / (rms + 1e-6)
	if scale > 5.0 {
		scale = 5.0
	}

	out := make([]float32, len(in))
	for i, v := range in {
		x := float64(v) * scale
		if x > 1 {
			x = 1
		} else if x < -1 {
			x = -1
		}
		out[i] = float32(x)
	}
	return out
}
