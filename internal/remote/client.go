// Package remote builds decoding traces from an OpenAI-compatible
// completions server. The server samples; the candidate distributions come
// back as per-token top logprobs.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/nevernever69/InferDecode/internal/decode"
)

// Client talks to an OpenAI-compatible /v1/completions endpoint
type Client struct {
	baseURL string
	model   string
	httpc   *http.Client
}

// NewClient creates a client for the given server base URL and model name
func NewClient(baseURL, model string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		httpc:   &http.Client{Timeout: 120 * time.Second},
	}
}

// ModelName returns the model identifier sent to the server
func (c *Client) ModelName() string {
	if c.model != "" {
		return c.model
	}
	return c.baseURL
}

type completionRequest struct {
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p,omitempty"`
	TopK        int     `json:"top_k,omitempty"` // vLLM / llama.cpp server extension
	Logprobs    int     `json:"logprobs"`
	Seed        int64   `json:"seed,omitempty"`
	Stream      bool    `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Text     string `json:"text"`
		Logprobs struct {
			Tokens        []string             `json:"tokens"`
			TokenLogprobs []float64            `json:"token_logprobs"`
			TopLogprobs   []map[string]float64 `json:"top_logprobs"`
		} `json:"logprobs"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Trace requests a completion with logprobs and maps it onto a trace.
// Sampling happens server-side, so only strategies expressible through the
// completions API are supported.
func (c *Client) Trace(ctx context.Context, prompt string, strategy decode.Strategy, params decode.Params) (*decode.Trace, error) {
	req := completionRequest{
		Model:     c.model,
		Prompt:    prompt,
		MaxTokens: params.MaxSteps,
		Logprobs:  params.Candidates,
		Seed:      params.Seed,
	}

	switch strategy {
	case decode.Greedy:
		req.Temperature = 0
	case decode.Temperature:
		req.Temperature = params.Temperature
	case decode.TopP:
		req.Temperature = params.Temperature
		req.TopP = params.TopP
	case decode.TopK:
		req.Temperature = params.Temperature
		req.TopK = params.TopK
	default:
		return nil, fmt.Errorf("strategy %s is not supported by the openai backend (use a local engine)", strategy)
	}

	start := time.Now()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("server returned no choices")
	}

	choice := completion.Choices[0]
	steps := buildSteps(choice.Logprobs.Tokens, choice.Logprobs.TokenLogprobs, choice.Logprobs.TopLogprobs, params.Candidates)

	total := time.Since(start)
	metrics := decode.Metrics{
		TotalTime:    total,
		PromptTokens: completion.Usage.PromptTokens,
		StepCount:    len(steps),
	}
	if len(steps) > 0 {
		metrics.AvgTokenTime = total / time.Duration(len(steps))
		metrics.TokensPerSec = float64(len(steps)) / total.Seconds()
	}

	return &decode.Trace{
		Prompt:   prompt,
		Model:    c.ModelName(),
		Strategy: strategy,
		Params:   params,
		Steps:    steps,
		Metrics:  metrics,
	}, nil
}

// buildSteps maps per-position logprobs onto trace steps. The server does
// not expose token IDs, so candidates carry -1 there.
func buildSteps(tokens []string, tokenLogprobs []float64, topLogprobs []map[string]float64, maxCandidates int) []decode.Step {
	steps := make([]decode.Step, 0, len(tokens))
	var text strings.Builder

	for i, tok := range tokens {
		text.WriteString(tok)

		var candidates []decode.Candidate
		if i < len(topLogprobs) {
			for candTok, lp := range topLogprobs[i] {
				candidates = append(candidates, decode.Candidate{
					TokenID: -1,
					Token:   candTok,
					Prob:    float32(math.Exp(lp)),
					LogProb: float32(lp),
				})
			}
			sort.Slice(candidates, func(a, b int) bool {
				return candidates[a].Prob > candidates[b].Prob
			})
			if len(candidates) > maxCandidates {
				candidates = candidates[:maxCandidates]
			}
		}

		// Mark the emitted token; append it when the server's top list
		// missed it
		found := false
		for c := range candidates {
			if candidates[c].Token == tok {
				candidates[c].Chosen = true
				found = true
				break
			}
		}
		if !found {
			lp := float64(0)
			if i < len(tokenLogprobs) {
				lp = tokenLogprobs[i]
			}
			candidates = append(candidates, decode.Candidate{
				TokenID: -1,
				Token:   tok,
				Prob:    float32(math.Exp(lp)),
				LogProb: float32(lp),
				Chosen:  true,
			})
		}

		step := decode.Step{
			Index:       i,
			Candidates:  candidates,
			CurrentText: text.String(),
		}
		for _, c := range candidates {
			if c.Chosen {
				step.Chosen = c
				break
			}
		}
		steps = append(steps, step)
	}

	return steps
}
