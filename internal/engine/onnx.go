package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/daulet/tokenizers"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nevernever69/InferDecode/internal/logging"
)

// ONNXEngine runs next-token inference through ONNX Runtime with a
// HuggingFace tokenizer. The exported model must take "input_ids"
// [1, seq] int64 and produce "logits" [1, seq, vocab] float32.
type ONNXEngine struct {
	modelPath string
	tok       *tokenizers.Tokenizer
	vocabSize int
	eosID     int
	threads   int
}

// NewONNXEngine creates an ONNX Runtime backed engine
func NewONNXEngine(opts Options) (*ONNXEngine, error) {
	if opts.ModelPath == "" {
		return nil, fmt.Errorf("onnx backend requires a model path")
	}
	if opts.TokenizerPath == "" {
		return nil, fmt.Errorf("onnx backend requires a tokenizer.json path")
	}
	if opts.EOSTokenID < 0 {
		return nil, fmt.Errorf("onnx backend requires engine.eos_token_id to be set")
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
		}
	}

	tok, err := tokenizers.FromFile(opts.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer: %w", err)
	}

	threads := opts.Threads
	if threads <= 0 {
		threads = 4
	}

	engine := &ONNXEngine{
		modelPath: opts.ModelPath,
		tok:       tok,
		vocabSize: int(tok.VocabSize()),
		eosID:     opts.EOSTokenID,
		threads:   threads,
	}

	logging.Infof("ONNX engine ready: %s (vocab %d)", filepath.Base(opts.ModelPath), engine.vocabSize)
	return engine, nil
}

// Encode converts text to token IDs
func (e *ONNXEngine) Encode(text string) ([]int, error) {
	ids, _ := e.tok.Encode(text, true)
	tokens := make([]int, len(ids))
	for i, id := range ids {
		tokens[i] = int(id)
	}
	return tokens, nil
}

// Decode converts token IDs back to text
func (e *ONNXEngine) Decode(tokens []int) (string, error) {
	ids := make([]uint32, len(tokens))
	for i, id := range tokens {
		ids[i] = uint32(id)
	}
	return e.tok.Decode(ids, true), nil
}

// TokenText returns the text of a single token, specials included
func (e *ONNXEngine) TokenText(id int) string {
	return e.tok.Decode([]uint32{uint32(id)}, false)
}

// Logits runs a forward pass over the full prefix and returns the last
// position's logits. A session is created per call; ONNX Runtime caches the
// loaded model internally, and per-call sessions keep memory bounded for
// long interactive runs.
func (e *ONNXEngine) Logits(ctx context.Context, tokens []int) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty token prefix")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(e.threads); err != nil {
		return nil, fmt.Errorf("setting threads: %w", err)
	}

	inputShape := ort.NewShape(1, int64(len(tokens)))
	inputData := make([]int64, len(tokens))
	for i, id := range tokens {
		inputData[i] = int64(id)
	}

	inputTensor, err := ort.NewTensor(inputShape, inputData)
	if err != nil {
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputShape := ort.NewShape(1, int64(len(tokens)), int64(e.vocabSize))
	outputData := make([]float32, len(tokens)*e.vocabSize)
	outputTensor, err := ort.NewTensor(outputShape, outputData)
	if err != nil {
		return nil, fmt.Errorf("creating output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	session, err := ort.NewAdvancedSession(
		e.modelPath,
		[]string{"input_ids"},
		[]string{"logits"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	defer session.Destroy()

	if err := session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	// Last token's logits: [1, seq, vocab] -> [vocab]
	all := outputTensor.GetData()
	offset := (len(tokens) - 1) * e.vocabSize
	logits := make([]float32, e.vocabSize)
	copy(logits, all[offset:offset+e.vocabSize])

	return logits, nil
}

func (e *ONNXEngine) VocabSize() int  { return e.vocabSize }
func (e *ONNXEngine) EOSTokenID() int { return e.eosID }

func (e *ONNXEngine) ModelName() string {
	return filepath.Base(e.modelPath)
}

// Close releases the tokenizer; the ONNX environment stays up for the
// process lifetime.
func (e *ONNXEngine) Close() error {
	e.tok.Close()
	return nil
}
