package decode

import (
	"context"
	"fmt"
	"time"
)

// Engine is the model backend a Tracer drives. Implementations live in the
// engine package; the remote package bypasses this and builds traces from
// server-side logprobs.
type Engine interface {
	Encode(text string) ([]int, error)
	Decode(tokens []int) (string, error)
	TokenText(id int) string
	Logits(ctx context.Context, tokens []int) ([]float32, error)
	EOSTokenID() int
	ModelName() string
}

// Candidate is one of the tokens considered at a decoding step
type Candidate struct {
	TokenID int     `json:"token_id"`
	Token   string  `json:"token"`
	Prob    float32 `json:"prob"`
	LogProb float32 `json:"logprob"`
	Chosen  bool    `json:"chosen,omitempty"`
}

// Step records a single decoding step: the candidate distribution the
// strategy considered, the token it picked, and the text generated so far
type Step struct {
	Index       int           `json:"index"`
	Candidates  []Candidate   `json:"candidates"`
	Chosen      Candidate     `json:"chosen"`
	CurrentText string        `json:"current_text"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// Metrics summarizes a trace's performance
type Metrics struct {
	TotalTime    time.Duration `json:"total_time_ns"`
	AvgTokenTime time.Duration `json:"avg_token_time_ns"`
	TokensPerSec float64       `json:"tokens_per_sec"`
	PromptTokens int           `json:"prompt_tokens"`
	StepCount    int           `json:"step_count"`
}

// Trace is a complete decoding run
type Trace struct {
	Prompt   string   `json:"prompt"`
	Model    string   `json:"model"`
	Strategy Strategy `json:"strategy"`
	Params   Params   `json:"params"`
	Steps    []Step   `json:"steps"`
	Metrics  Metrics  `json:"metrics"`
}

// Text returns the final generated text, or "" for an empty trace
func (t *Trace) Text() string {
	if len(t.Steps) == 0 {
		return ""
	}
	return t.Steps[len(t.Steps)-1].CurrentText
}

// Provider produces decoding traces. Implemented by Tracer (local engines)
// and remote.Client (OpenAI-compatible servers).
type Provider interface {
	Trace(ctx context.Context, prompt string, strategy Strategy, params Params) (*Trace, error)
	ModelName() string
}

// Tracer drives an engine's decoding loop and records every step
type Tracer struct {
	engine Engine

	// OnStep, if set, is called after each recorded step. Used for progress
	// reporting; must not block.
	OnStep func(Step)
}

// NewTracer creates a tracer over the given engine
func NewTracer(e Engine) *Tracer {
	return &Tracer{engine: e}
}

// ModelName returns the underlying engine's model name
func (t *Tracer) ModelName() string {
	return t.engine.ModelName()
}

// Trace runs a full decoding pass for the prompt and returns the recorded
// trace. Generation stops at EOS or params.MaxSteps, whichever comes first.
func (t *Tracer) Trace(ctx context.Context, prompt string, strategy Strategy, params Params) (*Trace, error) {
	start := time.Now()

	promptTokens, err := t.engine.Encode(prompt)
	if err != nil {
		return nil, fmt.Errorf("encoding prompt: %w", err)
	}

	if strategy == BeamSearch {
		return t.beamTrace(ctx, prompt, promptTokens, params, start)
	}

	sampler := NewSampler(strategy, params)
	eos := t.engine.EOSTokenID()

	tokens := make([]int, len(promptTokens))
	copy(tokens, promptTokens)

	var generated []int
	var steps []Step

	for i := 0; i < params.MaxSteps; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		stepStart := time.Now()

		logits, err := t.engine.Logits(ctx, tokens)
		if err != nil {
			return nil, fmt.Errorf("logits at step %d: %w", i, err)
		}

		chosen, candidates := sampler.Next(logits)
		for c := range candidates {
			candidates[c].Token = t.engine.TokenText(candidates[c].TokenID)
		}

		generated = append(generated, chosen)
		currentText, err := t.engine.Decode(generated)
		if err != nil {
			return nil, fmt.Errorf("decoding at step %d: %w", i, err)
		}

		step := Step{
			Index:       i,
			Candidates:  candidates,
			Chosen:      chosenOf(candidates),
			CurrentText: currentText,
			Elapsed:     time.Since(stepStart),
		}
		steps = append(steps, step)

		if t.OnStep != nil {
			t.OnStep(step)
		}

		tokens = append(tokens, chosen)
		if chosen == eos {
			break
		}
	}

	trace := &Trace{
		Prompt:   prompt,
		Model:    t.engine.ModelName(),
		Strategy: strategy,
		Params:   params,
		Steps:    steps,
		Metrics:  computeMetrics(start, len(promptTokens), len(steps)),
	}
	return trace, nil
}

// chosenOf returns the candidate flagged as chosen. The sampler guarantees
// exactly one per step.
func chosenOf(candidates []Candidate) Candidate {
	for _, c := range candidates {
		if c.Chosen {
			return c
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return Candidate{}
}

func computeMetrics(start time.Time, promptTokens, stepCount int) Metrics {
	total := time.Since(start)

	m := Metrics{
		TotalTime:    total,
		PromptTokens: promptTokens,
		StepCount:    stepCount,
	}
	if stepCount > 0 {
		m.AvgTokenTime = total / time.Duration(stepCount)
		if total > 0 {
			m.TokensPerSec = float64(stepCount) / total.Seconds()
		}
	}
	return m
}
