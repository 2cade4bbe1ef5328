package chunker

import "math"

// Pool derives a vector for every chunk from one whole-document embedding.
// A chunk spanning [Start, End) of a textLen-long text receives the slice of
// full between the same relative positions. If that slice is empty the chunk
// falls back to the first 10% of full, so no chunk is left without a vector.
// The input chunks are not modified.
func Pool(full []float64, textLen int, chunks []Chunk) []Chunk {
	out := make([]Chunk, len(chunks))
	copy(out, chunks)
	if len(full) == 0 || textLen <= 0 {
		return out
	}

	dim := len(full)
	for i := range out {
		startRatio := float64(out[i].Start) / float64(textLen)
		endRatio := float64(out[i].End) / float64(textLen)
		si := int(math.Floor(startRatio * float64(dim)))
		ei := int(math.Floor(endRatio * float64(dim)))
		si = min(max(si, 0), dim)
		ei = min(max(ei, 0), dim)

		if ei <= si {
			n := max(dim/10, 1)
			out[i].Vector = append([]float64(nil), full[:n]...)
			continue
		}
		out[i].Vector = append([]float64(nil), full[si:ei]...)
	}
	return out
}

// Resample averages v into n equal buckets so vectors of different lengths
// can be compared.
func Resample(v []float64, n int) []float64 {
	if n <= 0 || len(v) == 0 {
		return nil
	}
	out := make([]float64, n)
	for b := range n {
		lo := b * len(v) / n
		hi := (b + 1) * len(v) / n
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(v) {
			lo, hi = len(v)-1, len(v)
		}
		var sum float64
		for _, x := range v[lo:hi] {
			sum += x
		}
		out[b] = sum / float64(hi-lo)
	}
	return out
}

// Cosine returns the cosine similarity of two equal-length vectors.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Related returns, for each chunk, the index of the most similar other chunk
// by pooled vector, or -1 when there is none.
func Related(chunks []Chunk) []int {
	const dims = 32
	sampled := make([][]float64, len(chunks))
	for i, c := range chunks {
		sampled[i] = Resample(c.Vector, dims)
	}
	out := make([]int, len(chunks))
	for i := range chunks {
		out[i] = -1
		best := math.Inf(-1)
		for j := range chunks {
			if i == j || sampled[i] == nil || sampled[j] == nil {
				continue
			}
			if s := Cosine(sampled[i], sampled[j]); s > best {
				best, out[i] = s, j
			}
		}
	}
	return out
}
