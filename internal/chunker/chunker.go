// Package chunker turns a ring buffer's sample stream into overlapping
// fixed-duration chunks, per spec.md §4.2. Adapted from the teacher's
// session.ChunkBuffer shutdown-drain idiom, restructured for fixed
// chunk length with bit-identical overlap carry-over instead of
// silence-gap based variable-length splitting.
package chunker

import (
	"fmt"
	"log/slog"
	"time"

	"hoover/internal/herr"
	"hoover/internal/ringbuffer"
)

// Chunk is one overlapping window of audio handed downstream to the
// STT and Speaker engines.
type Chunk struct {
	Sequence  uint64
	StartTime time.Time
	Samples   []float32
}

// Config controls chunk geometry. All durations are in seconds.
type Config struct {
	SampleRate   int
	ChunkLenSecs float64
	OverlapSecs  float64
	MinFlushSecs float64
}

func (c Config) chunkLenSamples() int {
	return int(c.ChunkLenSecs * float64(c.SampleRate))
}

func (c Config) overlapSamples() int {
	return int(c.OverlapSecs * float64(c.SampleRate))
}

func (c Config) minFlushSamples() int {
	return int(c.MinFlushSecs * float64(c.SampleRate))
}

// Chunker reads from a RingBuffer and emits Chunk values on Chunks().
type Chunker struct {
	cfg Config
	rb  *ringbuffer.RingBuffer

	out chan Chunk

	carry    []float32 // last overlap_samples of the previous chunk
	sequence uint64

	lastLoggedOverflow uint64
}

// New constructs a Chunker reading from rb with the given geometry.
func New(rb *ringbuffer.RingBuffer, cfg Config) *Chunker {
	return &Chunker{
		cfg: cfg,
		rb:  rb,
		out: make(chan Chunk, 4),
	}
}

// Chunks returns the channel chunks are emitted on. Closed once Run
// returns.
func (c *Chunker) Chunks() <-chan Chunk {
	return c.out
}

// Run pops fixed-size windows from the ring buffer, prepending the
// carried-over overlap from the previous chunk, until the ring buffer
// closes (shutdown). On shutdown it drains whatever remains: if at
// least min_flush_secs of genuinely new samples remain it emits one
// final short chunk, otherwise the tail is discarded.
func (c *Chunker) Run() {
	defer close(c.out)

	stepSamples := c.cfg.chunkLenSamples() - c.cfg.overlapSamples()
	if stepSamples <= 0 {
		stepSamples = c.cfg.chunkLenSamples()
	}

	first := true
	for {
		want := stepSamples
		if first {
			// The first chunk has no carried-over overlap, so it needs
			// a full chunk_len worth of fresh samples to reach the same
			// length as every subsequent chunk.
			want = c.cfg.chunkLenSamples()
		}

		fresh, ok := c.rb.PopExact(want)
		c.logOverflow()
		if !ok {
			c.flushTail(fresh)
			return
		}

		samples := append(append([]float32{}, c.carry...), fresh...)
		c.emit(samples)
		c.carry = c.lastOverlap(samples)
		first = false
	}
}

// logOverflow surfaces the ring buffer's dropped-sample counter per
// spec.md §7's RingOverflow policy: "log counter; never fatal." Only
// logs when the counter has moved since the last check, so a healthy
// run stays quiet.
func (c *Chunker) logOverflow() {
	n := c.rb.OverflowCount()
	if n == c.lastLoggedOverflow {
		return
	}
	slog.Warn("ring buffer overflow, oldest samples dropped",
		"error", fmt.Errorf("%w: %d samples dropped since last log", herr.ErrRingOverflow, n-c.lastLoggedOverflow),
		"total_dropped", n)
	c.lastLoggedOverflow = n
}

func (c *Chunker) flushTail(fresh []float32) {
	c.logOverflow()
	remaining := c.rb.Drain()
	tail := append(append(append([]float32{}, c.carry...), fresh...), remaining...)

	// Only the genuinely new samples (excluding carried-over overlap)
	// count toward the min-flush threshold; the carry alone was already
	// accounted for in the previous chunk.
	newSampleCount := len(tail) - len(c.carry)
	if newSampleCount < 0 {
		newSampleCount = len(tail)
	}
	if newSampleCount >= c.cfg.minFlushSamples() && len(tail) > 0 {
		c.emit(tail)
	}
}

func (c *Chunker) emit(samples []float32) {
	chunk := Chunk{
		Sequence:  c.sequence,
		StartTime: time.Now(),
		Samples:   samples,
	}
	c.sequence++
	c.out <- chunk
}

func (c *Chunker) lastOverlap(samples []float32) []float32 {
	n := c.cfg.overlapSamples()
	if n <= 0 || n >= len(samples) {
		return append([]float32{}, samples...)
	}
	return append([]float32{}, samples[len(samples)-n:]...)
}
