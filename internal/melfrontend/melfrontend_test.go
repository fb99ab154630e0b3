package melfrontend

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeShape(t *testing.T) {
	p := New(DefaultConfig(16000))
	samples := make([]float32, 16000) // 1s of silence
	melSpec, numFrames := p.Compute(samples)

	require.Equal(t, numFrames, len(melSpec))
	require.Greater(t, numFrames, 0)
	for _, frame := range melSpec {
		require.Len(t, frame, 80)
	}
}

func TestMeanNormalisedOutput(t *testing.T) {
	p := New(DefaultConfig(16000))
	samples := make([]float32, 16000)
	for i := range samples {
		samples[i] = float32(math.Sin(float64(i) * 0.05))
	}
	melSpec, _ := p.Compute(samples)

	nMels := len(melSpec[0])
	for m := 0; m < nMels; m++ {
		var sum float64
		for _, frame := range melSpec {
			sum += float64(frame[m])
		}
		mean := sum / float64(len(melSpec))
		require.InDelta(t, 0, mean, 1e-3)
	}
}
