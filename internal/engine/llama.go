//go:build llama

package engine

import (
	"context"
	"fmt"

	llama "github.com/go-skynet/go-llama.cpp"
)

// LlamaGenerator wraps go-llama.cpp for plain streaming generation. The
// binding samples internally and surfaces text only, so it backs the
// generate command rather than the trace visualizer.
type LlamaGenerator struct {
	model   *llama.LLama
	options LoadOptions
	path    string
}

// NewLlamaGenerator loads a GGUF model through llama.cpp
func NewLlamaGenerator(modelPath string, opts LoadOptions) (*LlamaGenerator, error) {
	model, err := llama.New(
		modelPath,
		llama.SetContext(opts.ContextSize),
		llama.SetParts(-1),
		llama.SetThreads(opts.Threads),
		llama.EnableF16Memory,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	return &LlamaGenerator{
		model:   model,
		options: opts,
		path:    modelPath,
	}, nil
}

// GenerateStream generates text from a prompt (streaming)
func (g *LlamaGenerator) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan string, error) {
	ch := make(chan string, 10)

	go func() {
		defer close(ch)

		_, err := g.model.Predict(
			prompt,
			llama.SetTokens(opts.MaxTokens),
			llama.SetTemperature(float64(opts.Temperature)),
			llama.SetTopP(float64(opts.TopP)),
			llama.SetTopK(opts.TopK),
			llama.SetTokenCallback(func(token string) bool {
				select {
				case <-ctx.Done():
					return false
				case ch <- token:
					return true
				}
			}),
		)

		if err != nil {
			select {
			case ch <- fmt.Sprintf("\nError: %v", err):
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}

// Close releases model resources
func (g *LlamaGenerator) Close() error {
	if g.model != nil {
		g.model.Free()
		g.model = nil
	}
	return nil
}
