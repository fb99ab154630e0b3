package speaker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func unitVector(dim int, seed float32) Embedding {
	e := make(Embedding, dim)
	for i := range e {
		e[i] = seed + float32(i)
	}
	return e.Normalise()
}

func TestEmbeddingUnitNorm(t *testing.T) {
	e := unitVector(192, 3)
	var sumSq float64
	for _, v := range e {
		sumSq += float64(v) * float64(v)
	}
	require.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-5)
}

func TestEMAConvergesToRepeatedTarget(t *testing.T) {
	e := unitVector(16, 1)
	target := unitVector(16, 9)

	for i := 0; i < 200; i++ {
		e = e.Refine(target)
	}

	require.InDelta(t, 1.0, float64(CosineSimilarity(e, target)), 1e-3)
}

func TestStoreAddMatchRefine(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	e := unitVector(32, 5)
	require.NoError(t, store.Add("Alice", e))

	name, sim, ok := store.Match(e, 0.6)
	require.True(t, ok)
	require.Equal(t, "Alice", name)
	require.InDelta(t, 1.0, float64(sim), 1e-5)

	require.NoError(t, store.Refine("Alice", e))
	all := store.All()
	require.Len(t, all, 1)
	require.Equal(t, uint64(1), all[0].UpdateCount)
}

func TestStoreReloadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Add("Bob", unitVector(8, 2)))
	require.NoError(t, store.Flush())

	reloaded, err := NewStore(dir)
	require.NoError(t, err)
	require.Len(t, reloaded.All(), 1)
	require.Equal(t, "Bob", reloaded.All()[0].Name)
}

func TestProfileMarshalRoundTrip(t *testing.T) {
	p := Profile{Name: "Carol", Embedding: unitVector(4, 1), UpdateCount: 7}
	data, err := p.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalProfile(data)
	require.NoError(t, err)
	require.Equal(t, p.Name, decoded.Name)
	require.Equal(t, p.UpdateCount, decoded.UpdateCount)
	require.Equal(t, len(p.Embedding), len(decoded.Embedding))
}

func TestSlugDisallowsPathSeparators(t *testing.T) {
	require.NotContains(t, Slug("../../etc/passwd"), "/")
	require.NotContains(t, Slug("../../etc/passwd"), "..")
}
