package engine

import (
	"context"
	"runtime"
)

// Generator produces plain streaming text completions. It is the surface for
// backends that sample internally and only hand back text (llama.cpp), as
// opposed to Engine backends that expose per-step logits.
type Generator interface {
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan string, error)
	Close() error
}

// GenerateOptions configures text generation
type GenerateOptions struct {
	MaxTokens   int     // Maximum tokens to generate
	Temperature float32 // Randomness (0.0-1.0)
	TopP        float32 // Nucleus sampling
	TopK        int     // Top-k sampling
}

// LoadOptions configures generator model loading
type LoadOptions struct {
	ContextSize int // Max context tokens
	Threads     int // CPU threads for inference
}

// DefaultLoadOptions returns sensible defaults
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		ContextSize: 4096,
		Threads:     runtime.NumCPU(),
	}
}
