package chunker

import (
	"testing"

	"github.com/stretchr/testify/require"
	"hoover/internal/ringbuffer"
)

func cfg() Config {
	return Config{
		SampleRate:   1000,
		ChunkLenSecs: 1,   // 1000 samples
		OverlapSecs:  0.2, // 200 samples
		MinFlushSecs: 0.1, // 100 samples
	}
}

func TestChunkOverlapContinuity(t *testing.T) {
	c := cfg()
	rb := ringbuffer.New(10000)

	samples := make([]float32, 2800)
	for i := range samples {
		samples[i] = float32(i)
	}
	rb.Push(samples)

	ch := New(rb, c)
	go func() {
		ch.Run()
	}()

	var chunks []Chunk
	go func() {
		rb.Close()
	}()
	for chunk := range ch.Chunks() {
		chunks = append(chunks, chunk)
	}

	require.GreaterOrEqual(t, len(chunks), 2)
	overlapN := c.overlapSamples()
	for i := 0; i+1 < len(chunks); i++ {
		a := chunks[i].Samples
		b := chunks[i+1].Samples
		require.Equal(t, a[len(a)-overlapN:], b[:overlapN])
	}
}

func TestChunkSequenceMonotonic(t *testing.T) {
	c := cfg()
	rb := ringbuffer.New(10000)
	rb.Push(make([]float32, 2500))

	ch := New(rb, c)
	go rb.Close()
	go ch.Run()

	var last uint64
	first := true
	for chunk := range ch.Chunks() {
		if !first {
			require.Equal(t, last+1, chunk.Sequence)
		}
		last = chunk.Sequence
		first = false
	}
}
