package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const maxVisibleCandidates = 10

func (m DecodeModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("InferDecode: token-by-token decoding visualizer"))
	sb.WriteString("\n")

	// Settings row
	settings := []string{labelStyle.Render("Strategy: ") + m.strategy.Display()}
	for _, in := range m.inputs {
		settings = append(settings, in.View())
	}
	sb.WriteString(strings.Join(settings, "  "))
	sb.WriteString("\n\n")

	// Prompt
	sb.WriteString(m.prompt.View())
	sb.WriteString("\n")

	// Panes
	paneWidth := m.paneWidth()
	paneHeight := m.paneHeight()

	candidates := candidatesPane.Width(paneWidth).Height(paneHeight).
		Render(labelStyle.Render("Top Candidates") + "\n" + m.renderCandidates(paneWidth-4))
	generated := generatedPane.Width(paneWidth).Height(paneHeight).
		Render(labelStyle.Render("Generated Text") + "\n" + m.genView.View())
	metrics := metricsPane.Width(paneWidth).Height(paneHeight).
		Render(labelStyle.Render("Metrics") + "\n" + m.renderMetrics())

	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, candidates, generated, metrics))
	sb.WriteString("\n")

	// Status line
	switch {
	case m.err != nil:
		sb.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		sb.WriteString("\n")
	case m.generating:
		sb.WriteString(helpStyle.Render("Generating trace..."))
		sb.WriteString("\n")
	case m.finished && m.trace != nil:
		sb.WriteString(helpStyle.Render("Finished. Change the prompt or press Ctrl+S to rerun."))
		sb.WriteString("\n")
	}

	sb.WriteString(helpStyle.Render("Ctrl+S: Start | Ctrl+N: Step | Ctrl+X: Stop | Ctrl+R: Strategy | Tab: Focus | Ctrl+C: Exit"))

	return sb.String()
}

// renderCandidates draws the probability bars for the current step, scaled
// to the most probable candidate
func (m DecodeModel) renderCandidates(width int) string {
	if m.trace == nil || m.pos == 0 {
		return helpStyle.Render("No step yet")
	}

	step := m.trace.Steps[m.pos-1]
	if len(step.Candidates) == 0 {
		return helpStyle.Render("No candidates")
	}

	barWidth := m.barWidth
	if max := width - 20; max > 5 && barWidth > max {
		barWidth = max
	}

	maxProb := step.Candidates[0].Prob
	if maxProb <= 0 {
		maxProb = 1.0
	}

	var sb strings.Builder
	count := len(step.Candidates)
	if count > maxVisibleCandidates {
		count = maxVisibleCandidates
	}
	for _, c := range step.Candidates[:count] {
		bar := strings.Repeat("█", int(c.Prob/maxProb*float32(barWidth)))

		label := fmt.Sprintf("%-12s", displayToken(c.Token))
		if c.Chosen {
			sb.WriteString(chosenStyle.Render(label))
		} else {
			sb.WriteString(tokenStyle.Render(label))
		}
		sb.WriteString(" | ")
		sb.WriteString(fmt.Sprintf("%-*s", barWidth, bar))
		sb.WriteString(fmt.Sprintf(" %.4f\n", c.Prob))
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

func (m DecodeModel) renderMetrics() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Model: %s\n", m.provider.ModelName()))
	sb.WriteString(fmt.Sprintf("Strategy: %s\n", m.strategy))

	if m.trace == nil {
		sb.WriteString("Steps: -\n")
		return sb.String()
	}

	metrics := m.trace.Metrics
	sb.WriteString(fmt.Sprintf("Total Time: %.2f sec\n", metrics.TotalTime.Seconds()))
	sb.WriteString(fmt.Sprintf("Avg Token Time: %.1f ms\n", float64(metrics.AvgTokenTime.Microseconds())/1000.0))
	sb.WriteString(fmt.Sprintf("Tokens/sec: %.2f\n", metrics.TokensPerSec))
	sb.WriteString(fmt.Sprintf("Prompt Tokens: %d\n", metrics.PromptTokens))
	sb.WriteString(fmt.Sprintf("Steps: %d/%d\n", m.pos, len(m.trace.Steps)))

	return sb.String()
}

func (m DecodeModel) paneWidth() int {
	w := (m.width - 6) / 3
	if w < 24 {
		w = 24
	}
	return w
}

func (m DecodeModel) paneHeight() int {
	h := m.height - 14
	if h < 8 {
		h = 8
	}
	return h
}

// displayToken makes whitespace-bearing tokens visible in the candidate pane
func displayToken(token string) string {
	if token == "" {
		return "∅"
	}
	replaced := strings.ReplaceAll(token, " ", "·")
	return strings.ReplaceAll(replaced, "\n", "⏎")
}
