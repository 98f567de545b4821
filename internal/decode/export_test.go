package decode

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

// ============================================================================
// Export Tests
// ============================================================================

func exportFixture() *Trace {
	return &Trace{
		Prompt:   "the cat",
		Model:    "mock-tiny",
		Strategy: TopP,
		Params:   DefaultParams(),
		Steps: []Step{
			{
				Index: 0,
				Candidates: []Candidate{
					{TokenID: 7, Token: " sat", Prob: 0.62, LogProb: -0.478, Chosen: true},
					{TokenID: 8, Token: " ran", Prob: 0.38, LogProb: -0.967},
				},
				Chosen:      Candidate{TokenID: 7, Token: " sat", Prob: 0.62, LogProb: -0.478, Chosen: true},
				CurrentText: "sat",
			},
		},
		Metrics: Metrics{StepCount: 1, PromptTokens: 2},
	}
}

func TestExportJSON(t *testing.T) {
	data, err := ExportJSON(exportFixture())
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	var decoded Trace
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Exported JSON does not parse: %v", err)
	}
	if decoded.Prompt != "the cat" || decoded.Strategy != TopP {
		t.Errorf("Round trip lost fields: %+v", decoded)
	}
	if len(decoded.Steps) != 1 || decoded.Steps[0].Chosen.TokenID != 7 {
		t.Errorf("Round trip lost steps: %+v", decoded.Steps)
	}
}

func TestExportMarkdown(t *testing.T) {
	md := ExportMarkdown(exportFixture())

	for _, want := range []string{
		"# Decoding Trace: Top-p Sampling",
		"**Model**: mock-tiny",
		"` sat`",
		"←",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown output missing %q", want)
		}
	}
}
