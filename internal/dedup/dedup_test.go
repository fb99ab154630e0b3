package dedup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScenarioS3OverlapDedup(t *testing.T) {
	d := New()

	first, suppressed := d.Dedup("the quick brown fox jumps")
	require.False(t, suppressed)
	require.Equal(t, "the quick brown fox jumps", first)

	second, suppressed := d.Dedup("brown fox jumps over the lazy dog")
	require.False(t, suppressed)
	require.Equal(t, "over the lazy dog", second)
}

func TestDedupIdempotentOnRepeatedChunk(t *testing.T) {
	d := New()

	_, suppressed := d.Dedup("hello there friend")
	require.False(t, suppressed)

	_, suppressed = d.Dedup("hello there friend")
	require.True(t, suppressed)
}

func TestDedupSuppressesShortRemainder(t *testing.T) {
	d := New()
	d.Dedup("one two three four five")

	_, suppressed := d.Dedup("four five")
	require.True(t, suppressed)
}

func TestDedupNoOverlap(t *testing.T) {
	d := New()
	d.Dedup("completely different text here")

	remaining, suppressed := d.Dedup("another unrelated sentence entirely")
	require.False(t, suppressed)
	require.Equal(t, "another unrelated sentence entirely", remaining)
}
