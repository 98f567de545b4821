package decode

import (
	"math"
	"math/rand"
	"sort"
)

// Sampler selects next tokens from logit distributions according to a
// decoding strategy. It also reports the candidate distribution each
// selection was drawn from, which is what the visualizer renders.
type Sampler struct {
	strategy Strategy
	params   Params
	rng      *rand.Rand
}

// NewSampler creates a sampler for the given strategy
func NewSampler(strategy Strategy, params Params) *Sampler {
	return &Sampler{
		strategy: strategy,
		params:   params,
		rng:      rand.New(rand.NewSource(params.Seed)),
	}
}

// Next applies the strategy's filters to the logits and selects the next
// token. Returns the chosen token ID and the top candidates of the filtered,
// renormalized distribution, sorted by descending probability.
// logits: [vocab_size] unnormalized log probabilities. Never modified.
func (s *Sampler) Next(logits []float32) (int, []Candidate) {
	var probs []float32

	switch s.strategy {
	case TopK:
		filtered := cloneLogits(logits)
		applyTemperature(filtered, s.params.Temperature)
		applyTopK(filtered, s.params.TopK)
		probs = softmax(filtered)

	case TopP:
		filtered := cloneLogits(logits)
		applyTemperature(filtered, s.params.Temperature)
		applyTopP(filtered, s.params.TopP)
		probs = softmax(filtered)

	case Typical:
		filtered := cloneLogits(logits)
		applyTemperature(filtered, s.params.Temperature)
		applyTypical(filtered, s.params.TypicalP)
		probs = softmax(filtered)

	case Temperature:
		if s.params.Temperature == 0 {
			// Temperature 0 degenerates to greedy
			probs = softmax(logits)
			chosen := argmax(probs)
			return chosen, candidatesFor(probs, s.params.Candidates, chosen)
		}
		filtered := cloneLogits(logits)
		applyTemperature(filtered, s.params.Temperature)
		probs = softmax(filtered)

	default:
		// Greedy. Beam search picks tokens at the sequence level; a per-step
		// call falls back to greedy too.
		probs = softmax(logits)
		chosen := argmax(probs)
		return chosen, candidatesFor(probs, s.params.Candidates, chosen)
	}

	chosen := s.sampleMultinomial(probs)
	return chosen, candidatesFor(probs, s.params.Candidates, chosen)
}

// applyTemperature scales logits in place.
// Lower temperature -> peakier distribution, higher -> flatter.
func applyTemperature(logits []float32, temperature float32) {
	if temperature == 1.0 || temperature == 0 {
		return
	}

	for i, val := range logits {
		logits[i] = float32(float64(val) / float64(temperature))
	}
}

// applyTopK keeps only the top K tokens, setting others to -inf
func applyTopK(logits []float32, k int) {
	if k <= 0 || k >= len(logits) {
		return // No filtering
	}

	values := make([]float32, len(logits))
	copy(values, logits)
	sort.Slice(values, func(i, j int) bool { return values[i] > values[j] })

	threshold := values[k-1]
	for i, val := range logits {
		if val < threshold {
			logits[i] = float32(math.Inf(-1))
		}
	}
}

// applyTopP keeps tokens with cumulative probability mass <= P (nucleus
// sampling), setting the rest to -inf. The highest-probability token always
// survives.
func applyTopP(logits []float32, p float32) {
	if p >= 1.0 {
		return // No filtering
	}

	probs := softmax(logits)

	indices := make([]int, len(logits))
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(i, j int) bool {
		return probs[indices[i]] > probs[indices[j]]
	})

	// Find the nucleus cutoff
	cumsum := float32(0)
	cutoffIdx := len(indices)
	for i, idx := range indices {
		cumsum += probs[idx]
		if cumsum >= p {
			cutoffIdx = i + 1
			break
		}
	}

	keep := make(map[int]bool, cutoffIdx)
	for i := 0; i < cutoffIdx; i++ {
		keep[indices[i]] = true
	}

	for i := range logits {
		if !keep[i] {
			logits[i] = float32(math.Inf(-1))
		}
	}
}

// applyTypical keeps tokens whose information content is closest to the
// distribution's entropy, up to cumulative mass p, setting the rest to -inf.
func applyTypical(logits []float32, p float32) {
	if p >= 1.0 {
		return
	}

	probs := softmax(logits)

	// Shannon entropy of the full distribution
	entropy := float64(0)
	for _, prob := range probs {
		if prob > 0 {
			entropy -= float64(prob) * math.Log(float64(prob))
		}
	}

	// Rank tokens by |surprisal - entropy|
	type scored struct {
		idx  int
		dist float64
	}
	ranked := make([]scored, 0, len(probs))
	for i, prob := range probs {
		if prob <= 0 {
			continue
		}
		surprisal := -math.Log(float64(prob))
		ranked = append(ranked, scored{idx: i, dist: math.Abs(surprisal - entropy)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })

	// Accumulate mass until the threshold is reached; always keep one token
	keep := make(map[int]bool)
	cumsum := float32(0)
	for _, sc := range ranked {
		keep[sc.idx] = true
		cumsum += probs[sc.idx]
		if cumsum >= p {
			break
		}
	}

	for i := range logits {
		if !keep[i] {
			logits[i] = float32(math.Inf(-1))
		}
	}
}

// sampleMultinomial samples from a categorical distribution
func (s *Sampler) sampleMultinomial(probs []float32) int {
	r := s.rng.Float32()
	cumsum := float32(0)

	// Masked tokens carry zero probability and must never be returned, even
	// when r is exactly 0
	for i, prob := range probs {
		if prob == 0 {
			continue
		}
		cumsum += prob
		if r <= cumsum {
			return i
		}
	}

	// Fallback for accumulated rounding error: last non-zero entry
	for i := len(probs) - 1; i >= 0; i-- {
		if probs[i] > 0 {
			return i
		}
	}
	return len(probs) - 1
}

// softmax converts logits to probabilities with numerical stability.
// -inf entries (masked tokens) get probability 0.
func softmax(logits []float32) []float32 {
	probs := make([]float32, len(logits))

	maxVal := float32(math.Inf(-1))
	for _, val := range logits {
		if !math.IsInf(float64(val), -1) && val > maxVal {
			maxVal = val
		}
	}

	sum := float32(0)
	for i, val := range logits {
		if math.IsInf(float64(val), -1) {
			probs[i] = 0
		} else {
			probs[i] = float32(math.Exp(float64(val - maxVal)))
		}
		sum += probs[i]
	}

	if sum > 0 {
		for i := range probs {
			probs[i] /= sum
		}
	} else {
		// Uniform fallback
		for i := range probs {
			probs[i] = 1.0 / float32(len(probs))
		}
	}

	return probs
}

// argmax returns the index of the largest value
func argmax(values []float32) int {
	maxIdx := 0
	maxVal := values[0]
	for i, val := range values {
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}
	return maxIdx
}

// topCandidates returns the n highest-probability entries, sorted descending
func topCandidates(probs []float32, n int) []Candidate {
	indices := make([]int, 0, len(probs))
	for i, prob := range probs {
		if prob > 0 {
			indices = append(indices, i)
		}
	}
	sort.Slice(indices, func(i, j int) bool {
		return probs[indices[i]] > probs[indices[j]]
	})

	if n > len(indices) {
		n = len(indices)
	}

	candidates := make([]Candidate, 0, n)
	for _, idx := range indices[:n] {
		candidates = append(candidates, Candidate{
			TokenID: idx,
			Prob:    probs[idx],
			LogProb: float32(math.Log(float64(probs[idx]))),
		})
	}
	return candidates
}

// candidatesFor returns the top-n candidates with the chosen token flagged.
// A sampled token from outside the top n is appended so the list always
// contains the selection.
func candidatesFor(probs []float32, n, chosen int) []Candidate {
	candidates := topCandidates(probs, n)

	for i := range candidates {
		if candidates[i].TokenID == chosen {
			candidates[i].Chosen = true
			return candidates
		}
	}

	if chosen >= 0 && chosen < len(probs) {
		candidates = append(candidates, Candidate{
			TokenID: chosen,
			Prob:    probs[chosen],
			LogProb: float32(math.Log(float64(probs[chosen]))),
			Chosen:  true,
		})
	}
	return candidates
}

func cloneLogits(logits []float32) []float32 {
	clone := make([]float32, len(logits))
	copy(clone, logits)
	return clone
}
