//go:build !llama

package engine

import (
	"context"
	"fmt"
	"time"
)

// LlamaGenerator is a stub when llama.cpp is not compiled in
type LlamaGenerator struct {
	path    string
	options LoadOptions
}

// NewLlamaGenerator creates a stub generator when llama.cpp is not available
func NewLlamaGenerator(modelPath string, opts LoadOptions) (*LlamaGenerator, error) {
	return &LlamaGenerator{
		path:    modelPath,
		options: opts,
	}, nil
}

// GenerateStream streams an explanatory placeholder response
func (g *LlamaGenerator) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan string, error) {
	ch := make(chan string, 10)

	go func() {
		defer close(ch)

		response := fmt.Sprintf(`[STUB RESPONSE - llama.cpp not compiled]

Real generation requires building with CGO and the llama tag:

  CGO_ENABLED=1 go build -tags llama

Your prompt: %s`, prompt)

		// Simulate streaming
		runes := []rune(response)
		for i := 0; i < len(runes); i += 5 {
			end := i + 5
			if end > len(runes) {
				end = len(runes)
			}
			select {
			case <-ctx.Done():
				return
			case ch <- string(runes[i:end]):
				time.Sleep(20 * time.Millisecond)
			}
		}
	}()

	return ch, nil
}

// Close does nothing for the stub
func (g *LlamaGenerator) Close() error {
	return nil
}
