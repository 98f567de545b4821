package decode

import (
	"fmt"
	"strings"
)

// Strategy identifies a decoding strategy for selecting the next token from
// a model's output distribution.
type Strategy string

const (
	Greedy      Strategy = "greedy"
	TopK        Strategy = "top_k"
	TopP        Strategy = "top_p"
	Temperature Strategy = "temperature"
	BeamSearch  Strategy = "beam_search"
	Typical     Strategy = "typical"
)

// Strategies returns all supported strategies in display order
func Strategies() []Strategy {
	return []Strategy{Greedy, TopK, TopP, Temperature, BeamSearch, Typical}
}

// ParseStrategy parses a strategy name (case-insensitive, dashes allowed)
func ParseStrategy(s string) (Strategy, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, st := range Strategies() {
		if string(st) == normalized {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown strategy: %q (valid: %s)", s, strategyNames())
}

// Display returns a human-readable name for the strategy
func (s Strategy) Display() string {
	switch s {
	case Greedy:
		return "Greedy"
	case TopK:
		return "Top-k Sampling"
	case TopP:
		return "Top-p Sampling"
	case Temperature:
		return "Temperature Sampling"
	case BeamSearch:
		return "Beam Search"
	case Typical:
		return "Typical Decoding"
	default:
		return string(s)
	}
}

// Description returns a one-line summary of what the strategy does
func (s Strategy) Description() string {
	switch s {
	case Greedy:
		return "always pick the highest-probability token"
	case TopK:
		return "sample from the k most probable tokens"
	case TopP:
		return "sample from the smallest set whose probability mass exceeds p"
	case Temperature:
		return "sample from the full distribution after temperature scaling"
	case BeamSearch:
		return "keep the w highest-scoring partial sequences and extend them"
	case Typical:
		return "sample tokens whose information content is close to the expected value"
	default:
		return ""
	}
}

func strategyNames() string {
	names := make([]string, 0, len(Strategies()))
	for _, st := range Strategies() {
		names = append(names, string(st))
	}
	return strings.Join(names, ", ")
}

// Params holds the tunable knobs shared by all strategies. A strategy reads
// only the fields it needs.
type Params struct {
	TopK        int     // Top-K sampling (0 = disabled)
	TopP        float32 // Top-P (nucleus) sampling threshold
	Temperature float32 // Temperature scaling (0 = greedy)
	TypicalP    float32 // Typical decoding mass threshold
	BeamWidth   int     // Beam count for beam search
	MaxSteps    int     // Maximum decoding steps
	Candidates  int     // Candidates recorded per step
	Seed        int64   // Random seed for sampling
}

// DefaultParams returns the parameter defaults
func DefaultParams() Params {
	return Params{
		TopK:        40,
		TopP:        0.9,
		Temperature: 1.0,
		TypicalP:    0.9,
		BeamWidth:   4,
		MaxSteps:    64,
		Candidates:  10,
		Seed:        42,
	}
}
