package decode

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// ExportJSON renders a trace as indented JSON
func ExportJSON(t *Trace) ([]byte, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling trace: %w", err)
	}
	return data, nil
}

// ExportMarkdown renders a trace as a human-readable markdown report
func ExportMarkdown(t *Trace) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Decoding Trace: %s\n\n", t.Strategy.Display()))
	sb.WriteString(fmt.Sprintf("- **Model**: %s\n", t.Model))
	sb.WriteString(fmt.Sprintf("- **Prompt**: %s\n", t.Prompt))
	sb.WriteString(fmt.Sprintf("- **Steps**: %d\n", t.Metrics.StepCount))
	sb.WriteString(fmt.Sprintf("- **Total time**: %.2fs\n", t.Metrics.TotalTime.Seconds()))
	sb.WriteString(fmt.Sprintf("- **Avg token time**: %.1fms\n", float64(t.Metrics.AvgTokenTime.Milliseconds())))
	sb.WriteString(fmt.Sprintf("- **Tokens/sec**: %.2f\n\n", t.Metrics.TokensPerSec))

	sb.WriteString("## Generated text\n\n")
	sb.WriteString("```\n")
	sb.WriteString(t.Text())
	sb.WriteString("\n```\n\n")

	sb.WriteString("## Steps\n\n")
	for _, step := range t.Steps {
		sb.WriteString(fmt.Sprintf("### Step %d: chose %q (p=%.4f)\n\n", step.Index+1, step.Chosen.Token, step.Chosen.Prob))
		sb.WriteString("| Token | Probability |\n|---|---|\n")
		for _, c := range step.Candidates {
			marker := ""
			if c.Chosen {
				marker = " ←"
			}
			sb.WriteString(fmt.Sprintf("| `%s` | %.4f%s |\n", c.Token, c.Prob, marker))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
