package engine

import (
	"context"
	"math"
	"strings"
)

// mockVocab is a tiny vocabulary for demo and test runs. Entries carry their
// own leading space, the way BPE merges usually do.
var mockVocab = []string{
	"<eos>", " the", " a", " cat", " dog", " model", " token", " sat", " ran",
	" on", " in", " mat", " rug", " slowly", " quickly", " and", " then",
	" jumped", " slept", " purred", ".", ",",
}

// MockEngine is a deterministic in-memory backend. It needs no model files,
// which makes it the default for first runs and the workhorse for tests.
type MockEngine struct {
	vocab   map[string]int
	reverse []string
}

// NewMockEngine creates a mock engine over the built-in vocabulary
func NewMockEngine() *MockEngine {
	vocab := make(map[string]int, len(mockVocab))
	for id, tok := range mockVocab {
		vocab[tok] = id
	}
	return &MockEngine{
		vocab:   vocab,
		reverse: mockVocab,
	}
}

// Encode maps whitespace-separated words onto vocabulary IDs. Unknown words
// hash onto a stable in-vocabulary token so any prompt produces a valid
// prefix.
func (e *MockEngine) Encode(text string) ([]int, error) {
	var tokens []int
	for _, word := range strings.Fields(text) {
		if id, ok := e.vocab[" "+word]; ok {
			tokens = append(tokens, id)
			continue
		}
		// Stable fallback for out-of-vocabulary words; skip <eos> at 0
		h := 0
		for _, r := range word {
			h = h*31 + int(r)
		}
		n := len(e.reverse) - 1
		tokens = append(tokens, 1+((h%n)+n)%n)
	}
	return tokens, nil
}

// Decode concatenates token texts, dropping specials
func (e *MockEngine) Decode(tokens []int) (string, error) {
	var sb strings.Builder
	for _, id := range tokens {
		if id == 0 || id < 0 || id >= len(e.reverse) {
			continue
		}
		sb.WriteString(e.reverse[id])
	}
	return strings.TrimPrefix(sb.String(), " "), nil
}

// TokenText returns the raw text of a single token
func (e *MockEngine) TokenText(id int) string {
	if id < 0 || id >= len(e.reverse) {
		return ""
	}
	return e.reverse[id]
}

// Logits returns a deterministic distribution keyed on the last token. EOS
// pressure grows with sequence length so every run terminates.
func (e *MockEngine) Logits(ctx context.Context, tokens []int) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	last := 0
	if len(tokens) > 0 {
		last = tokens[len(tokens)-1]
	}

	logits := make([]float32, len(e.reverse))
	for v := range logits {
		h := float64(last*31 + v*17)
		logits[v] = float32(2.2*math.Sin(h) + 1.1*math.Cos(0.37*h))
	}
	logits[0] += float32(len(tokens))*0.12 - 3.0

	return logits, nil
}

func (e *MockEngine) VocabSize() int    { return len(e.reverse) }
func (e *MockEngine) EOSTokenID() int   { return 0 }
func (e *MockEngine) ModelName() string { return "mock-tiny" }
func (e *MockEngine) Close() error      { return nil }
