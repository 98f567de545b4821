package tui

import (
	"strings"
	"testing"
)

// ============================================================================
// Highlighting Tests
// ============================================================================

func TestHighlightJSON(t *testing.T) {
	input := `{"strategy": "greedy", "steps": 3}`

	out := HighlightJSON(input)
	if out == "" {
		t.Fatal("Expected non-empty output")
	}
	if StripANSI(out) != input {
		t.Errorf("Highlighting changed the text: %q", StripANSI(out))
	}
}

func TestHighlight_UnknownLanguage(t *testing.T) {
	input := "plain text content"

	out := highlight(input, "no-such-language")
	if !strings.Contains(StripANSI(out), "plain text content") {
		t.Errorf("Fallback lexer should preserve text, got %q", out)
	}
}

func TestStripANSI(t *testing.T) {
	colored := "\x1b[31mred\x1b[0m plain"
	if got := StripANSI(colored); got != "red plain" {
		t.Errorf("StripANSI = %q", got)
	}
}
