package engine

import (
	"context"
	"fmt"
)

// Engine exposes a model backend's tokenizer and next-token logits. The
// numerics come from external runtimes; nothing here runs a forward pass
// itself.
type Engine interface {
	Encode(text string) ([]int, error)
	Decode(tokens []int) (string, error)
	TokenText(id int) string
	Logits(ctx context.Context, tokens []int) ([]float32, error)
	VocabSize() int
	EOSTokenID() int
	ModelName() string
	Close() error
}

// Options configures backend construction
type Options struct {
	ModelPath     string // model file (backend-specific format)
	TokenizerPath string // tokenizer.json for the onnx backend
	Threads       int    // CPU threads (0 = runtime default)
	ContextSize   int    // max context tokens
	EOSTokenID    int    // end-of-sequence token (-1 = backend default)
}

// New creates an engine for the named backend
func New(backend string, opts Options) (Engine, error) {
	switch backend {
	case "mock":
		return NewMockEngine(), nil
	case "onnx":
		return NewONNXEngine(opts)
	default:
		return nil, fmt.Errorf("unknown engine backend: %q (valid: mock, onnx)", backend)
	}
}
