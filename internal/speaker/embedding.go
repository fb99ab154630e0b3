package speaker

import "gonum.org/v1/gonum/floats"

// Embedding is a fixed-dimensional L2-normalised vector representing a
// voice, per spec.md §3.
type Embedding []float32

// Normalise returns e scaled to unit L2 norm. If e is (near) zero it
// is returned unchanged to avoid dividing by zero.
func (e Embedding) Normalise() Embedding {
	vals := toFloat64(e)
	norm := floats.Norm(vals, 2)
	if norm < 1e-5 {
		return e
	}
	floats.Scale(1/norm, vals)
	return fromFloat64(vals)
}

// CosineSimilarity assumes both vectors are already L2-normalised, so
// it reduces to a dot product.
func CosineSimilarity(a, b Embedding) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return float32(floats.Dot(toFloat64(a[:n]), toFloat64(b[:n])))
}

const (
	emaOldWeight = 0.95
	emaNewWeight = 0.05
)

// Refine applies the fixed-coefficient EMA update from spec.md §4.6:
// e' = normalise(0.95*e + 0.05*e_new).
func (e Embedding) Refine(newEmbedding Embedding) Embedding {
	padded := make(Embedding, len(e))
	copy(padded, newEmbedding)

	out := toFloat64(e)
	floats.Scale(emaOldWeight, out)
	floats.AddScaled(out, emaNewWeight, toFloat64(padded))

	return fromFloat64(out).Normalise()
}

func toFloat64(e Embedding) []float64 {
	out := make([]float64, len(e))
	for i, v := range e {
		out[i] = float64(v)
	}
	return out
}

func fromFloat64(vals []float64) Embedding {
	out := make(Embedding, len(vals))
	for i, v := range vals {
		out[i] = float32(v)
	}
	return out
}
