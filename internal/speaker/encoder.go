// Package speaker implements the Speaker Engine of spec.md §4.6: an
// ONNX embedding extractor plus a profile store with cosine-similarity
// matching and EMA refinement. The embedding extraction is adapted
// from the teacher's ai.SpeakerEncoder, swapped onto melfrontend's
// spec-compliant mel frontend.
package speaker

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"hoover/internal/melfrontend"
)

// EncoderConfig configures the ONNX embedding model and the mel
// frontend that feeds it.
type EncoderConfig struct {
	ModelPath string
	Mel       melfrontend.Config
}

func DefaultEncoderConfig(modelPath string, sampleRate int) EncoderConfig {
	return EncoderConfig{
		ModelPath: modelPath,
		Mel:       melfrontend.DefaultConfig(sampleRate),
	}
}

// Encoder wraps a single-threaded ONNX inference session behind a
// mutex, per spec.md §4.6: "holds a single-threaded inference session
// guarded by a mutex".
type Encoder struct {
	cfg          EncoderConfig
	session      *ort.DynamicAdvancedSession
	mel          *melfrontend.Processor
	mu           sync.Mutex
	initialized  bool
	rank3Input   bool // true if the model declares a rank-3 (1, frames, mels) input
}

// NewEncoder loads the ONNX model once and auto-detects whether it
// expects a rank-2 (frames, mels) or rank-3 (1, frames, mels) input
// tensor by inspecting its declared input shape, per spec.md §4.3.
func NewEncoder(cfg EncoderConfig) (*Encoder, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("speaker model not found: %w", err)
	}

	e := &Encoder{cfg: cfg, mel: melfrontend.New(cfg.Mel)}

	if err := initONNXRuntime(); err != nil {
		return nil, err
	}

	inputInfo, outputInfo, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect speaker model: %w", err)
	}
	inputNames := make([]string, len(inputInfo))
	for i, info := range inputInfo {
		inputNames[i] = info.Name
		if len(info.Dimensions) == 3 {
			e.rank3Input = true
		}
	}
	outputNames := make([]string, len(outputInfo))
	for i, info := range outputInfo {
		outputNames[i] = info.Name
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, outputNames, options)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	e.session = session
	e.initialized = true
	slog.Info("speaker encoder loaded", "model", cfg.ModelPath, "rank3_input", e.rank3Input)
	return e, nil
}

// Embed computes an L2-normalised Embedding for a chunk of audio.
// Invariant (spec.md §8 property 5): |‖e‖₂ − 1| < 1e-5.
func (e *Encoder) Embed(samples []float32) (Embedding, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil, fmt.Errorf("speaker encoder not initialized")
	}

	melSpec, numFrames := e.mel.Compute(samples)
	nMels := e.cfg.Mel.NMels

	flatInput := make([]float32, numFrames*nMels)
	for t := 0; t < numFrames; t++ {
		copy(flatInput[t*nMels:(t+1)*nMels], melSpec[t])
	}

	var shape ort.Shape
	if e.rank3Input {
		shape = ort.NewShape(1, int64(numFrames), int64(nMels))
	} else {
		shape = ort.NewShape(int64(numFrames), int64(nMels))
	}

	inputTensor, err := ort.NewTensor(shape, flatInput)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("speaker model inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected speaker model output type")
	}

	pooled := meanPoolIfNeeded(outputTensor.GetData(), numFrames)
	result := make(Embedding, len(pooled))
	copy(result, pooled)
	return result.Normalise(), nil
}

// meanPoolIfNeeded mean-pools a (frames, dim) flattened output down to
// a single embedding vector when the model emits per-frame embeddings
// rather than a single pooled one.
func meanPoolIfNeeded(data []float32, numFrames int) []float32 {
	if numFrames <= 1 || len(data)%numFrames != 0 {
		return data
	}
	dim := len(data) / numFrames
	if dim == 0 {
		return data
	}
	pooled := make([]float32, dim)
	for t := 0; t < numFrames; t++ {
		for d := 0; d < dim; d++ {
			pooled[d] += data[t*dim+d]
		}
	}
	for d := range pooled {
		pooled[d] /= float32(numFrames)
	}
	return pooled
}

func (e *Encoder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	e.initialized = false
}
