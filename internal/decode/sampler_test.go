package decode

import (
	"math"
	"testing"
)

// ============================================================================
// Sampler Tests
// ============================================================================

func testParams() Params {
	p := DefaultParams()
	p.Seed = 42
	return p
}

func TestSampler_Greedy(t *testing.T) {
	sampler := NewSampler(Greedy, testParams())

	logits := []float32{1.0, 3.5, 2.0, 1.5, 0.5}

	chosen, candidates := sampler.Next(logits)
	if chosen != 1 {
		t.Errorf("Greedy should select max logit, expected 1, got %d", chosen)
	}

	if len(candidates) == 0 {
		t.Fatal("Expected candidates")
	}
	if candidates[0].TokenID != 1 || !candidates[0].Chosen {
		t.Errorf("Greedy's top candidate should be chosen, got %+v", candidates[0])
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Prob > candidates[i-1].Prob {
			t.Errorf("Candidates should be sorted descending, got %v then %v",
				candidates[i-1].Prob, candidates[i].Prob)
		}
	}
}

func TestSampler_TemperatureZeroIsGreedy(t *testing.T) {
	params := testParams()
	params.Temperature = 0
	sampler := NewSampler(Temperature, params)

	logits := []float32{2.0, 5.0, 3.0, 1.0}

	for i := 0; i < 10; i++ {
		chosen, _ := sampler.Next(logits)
		if chosen != 1 {
			t.Fatalf("Temperature 0 should be deterministic greedy, got %d", chosen)
		}
	}
}

func TestSampler_Temperature(t *testing.T) {
	// Low temperature should favor the highest logit strongly
	params := testParams()
	params.Temperature = 0.5
	sampler := NewSampler(Temperature, params)

	logits := []float32{1.0, 2.0, 1.5}

	counts := make(map[int]int)
	for i := 0; i < 100; i++ {
		chosen, _ := sampler.Next(logits)
		counts[chosen]++
	}

	if counts[1] < 50 {
		t.Errorf("With low temperature, highest logit should dominate, got counts: %v", counts)
	}
}

func TestSampler_TopK(t *testing.T) {
	params := testParams()
	params.TopK = 2
	sampler := NewSampler(TopK, params)

	logits := []float32{1.0, 4.0, 3.0, 2.0, 0.5}

	// Only tokens 1 and 2 survive the filter
	for i := 0; i < 50; i++ {
		chosen, candidates := sampler.Next(logits)
		if chosen != 1 && chosen != 2 {
			t.Errorf("Top-K=2 should only sample tokens 1 or 2, got %d", chosen)
		}
		for _, c := range candidates {
			if c.TokenID != 1 && c.TokenID != 2 {
				t.Errorf("Filtered-out token %d should not appear as candidate", c.TokenID)
			}
		}
	}
}

func TestSampler_TopP(t *testing.T) {
	params := testParams()
	params.TopP = 0.5
	sampler := NewSampler(TopP, params)

	// Token 0 holds nearly all the mass
	logits := []float32{10.0, 1.0, 0.5, 0.1}

	counts := make(map[int]int)
	for i := 0; i < 100; i++ {
		chosen, _ := sampler.Next(logits)
		counts[chosen]++
	}

	if counts[0] < 95 {
		t.Errorf("Top-P=0.5 over a peaked distribution should pin token 0, got counts: %v", counts)
	}
}

func TestSampler_TypicalPeaked(t *testing.T) {
	params := testParams()
	params.TypicalP = 0.9
	sampler := NewSampler(Typical, params)

	// Peaked distribution: entropy is low, so only the peak is typical
	logits := []float32{8.0, 0.5, 0.3, 0.1}

	for i := 0; i < 50; i++ {
		chosen, _ := sampler.Next(logits)
		if chosen != 0 {
			t.Errorf("Typical decoding on a peaked distribution should keep the peak, got %d", chosen)
		}
	}
}

func TestSampler_ChosenAlwaysInCandidates(t *testing.T) {
	params := testParams()
	params.Candidates = 2
	params.TopK = 0
	params.Temperature = 1.0
	sampler := NewSampler(Temperature, params)

	// Near-uniform so sampling regularly lands outside the top 2
	logits := []float32{1.0, 1.01, 0.99, 1.0, 1.0, 0.98}

	for i := 0; i < 100; i++ {
		chosen, candidates := sampler.Next(logits)
		found := false
		for _, c := range candidates {
			if c.TokenID == chosen {
				if !c.Chosen {
					t.Fatalf("Chosen token %d present but not flagged", chosen)
				}
				found = true
			}
		}
		if !found {
			t.Fatalf("Chosen token %d missing from candidate list", chosen)
		}
	}
}

// ============================================================================
// Filter Tests
// ============================================================================

func TestApplyTopK(t *testing.T) {
	logits := []float32{1.0, 4.0, 3.0, 2.0, 0.5}
	applyTopK(logits, 2)

	for i, val := range logits {
		masked := math.IsInf(float64(val), -1)
		shouldSurvive := i == 1 || i == 2
		if shouldSurvive && masked {
			t.Errorf("Token %d should survive top-k filter", i)
		}
		if !shouldSurvive && !masked {
			t.Errorf("Token %d should be masked by top-k filter", i)
		}
	}
}

func TestApplyTopK_NoOp(t *testing.T) {
	logits := []float32{1.0, 2.0, 3.0}
	applyTopK(logits, 10) // k >= vocab

	for i, val := range logits {
		if math.IsInf(float64(val), -1) {
			t.Errorf("k >= vocab should not mask anything, token %d masked", i)
		}
	}
}

func TestApplyTopP_NoOp(t *testing.T) {
	logits := []float32{1.0, 2.0, 3.0}
	applyTopP(logits, 1.0) // p >= 1 disables the filter

	for i, val := range logits {
		if math.IsInf(float64(val), -1) {
			t.Errorf("p >= 1 should not mask anything, token %d masked", i)
		}
	}
}

func TestApplyTopP_KeepsArgmax(t *testing.T) {
	logits := []float32{0.1, 9.0, 0.2}
	applyTopP(logits, 0.01) // absurdly tight nucleus

	if math.IsInf(float64(logits[1]), -1) {
		t.Error("Nucleus filter must never mask the most probable token")
	}
}

func TestApplyTypical_KeepsAtLeastOne(t *testing.T) {
	logits := []float32{3.0, 1.0, 0.5}
	applyTypical(logits, 0.01)

	survivors := 0
	for _, val := range logits {
		if !math.IsInf(float64(val), -1) {
			survivors++
		}
	}
	if survivors == 0 {
		t.Error("Typical filter must keep at least one token")
	}
}

func TestSampleMultinomial_SkipsMaskedTokens(t *testing.T) {
	sampler := NewSampler(Temperature, testParams())

	// Leading zero-probability entries must never be selected, whatever the
	// RNG draws
	probs := []float32{0, 0, 1.0}
	for i := 0; i < 100; i++ {
		if got := sampler.sampleMultinomial(probs); got != 2 {
			t.Fatalf("Sampled masked token %d", got)
		}
	}
}

// ============================================================================
// Softmax Tests
// ============================================================================

func TestSoftmax(t *testing.T) {
	probs := softmax([]float32{1.0, 2.0, 3.0})

	sum := float32(0)
	for _, p := range probs {
		sum += p
	}
	if math.Abs(float64(sum-1.0)) > 1e-6 {
		t.Errorf("Probabilities should sum to 1, got %f", sum)
	}

	if !(probs[0] < probs[1] && probs[1] < probs[2]) {
		t.Errorf("Softmax should preserve order, got: %v", probs)
	}
}

func TestSoftmaxWithInf(t *testing.T) {
	neg := float32(math.Inf(-1))
	probs := softmax([]float32{1.0, neg, 2.0, neg})

	if probs[1] != 0 || probs[3] != 0 {
		t.Errorf("Masked logits should have 0 probability, got: %v", probs)
	}

	sum := probs[0] + probs[2]
	if math.Abs(float64(sum-1.0)) > 1e-6 {
		t.Errorf("Non-masked probabilities should sum to 1, got %f", sum)
	}
}

func TestCandidatesFor_AppendsOutOfListChoice(t *testing.T) {
	probs := []float32{0.5, 0.3, 0.15, 0.05}
	candidates := candidatesFor(probs, 2, 3)

	if len(candidates) != 3 {
		t.Fatalf("Expected 2 top candidates plus the chosen one, got %d", len(candidates))
	}
	last := candidates[len(candidates)-1]
	if last.TokenID != 3 || !last.Chosen {
		t.Errorf("Out-of-list chosen token should be appended and flagged, got %+v", last)
	}
}

// ============================================================================
// Strategy Parsing
// ============================================================================

func TestParseStrategy(t *testing.T) {
	cases := []struct {
		in   string
		want Strategy
	}{
		{"greedy", Greedy},
		{"TOP_K", TopK},
		{"top-p", TopP},
		{" beam_search ", BeamSearch},
		{"typical", Typical},
	}
	for _, tc := range cases {
		got, err := ParseStrategy(tc.in)
		if err != nil {
			t.Errorf("ParseStrategy(%q) returned error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseStrategy(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseStrategy("banana"); err == nil {
		t.Error("Expected error for unknown strategy")
	}
}

// ============================================================================
// Benchmarks
// ============================================================================

func benchLogits() []float32 {
	logits := make([]float32, 32000) // typical vocab size
	for i := range logits {
		logits[i] = float32(i % 100)
	}
	return logits
}

func BenchmarkSampler_Greedy(b *testing.B) {
	sampler := NewSampler(Greedy, testParams())
	logits := benchLogits()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = sampler.Next(logits)
	}
}

func BenchmarkSampler_TopK(b *testing.B) {
	params := testParams()
	params.TopK = 50
	sampler := NewSampler(TopK, params)
	logits := benchLogits()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = sampler.Next(logits)
	}
}

func BenchmarkSampler_TopP(b *testing.B) {
	params := testParams()
	params.TopP = 0.9
	sampler := NewSampler(TopP, params)
	logits := benchLogits()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = sampler.Next(logits)
	}
}

func BenchmarkSoftmax(b *testing.B) {
	logits := benchLogits()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = softmax(logits)
	}
}
