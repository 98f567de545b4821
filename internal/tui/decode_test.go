package tui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nevernever69/InferDecode/internal/decode"
)

// ============================================================================
// Decode Model Tests
// ============================================================================

// stubProvider returns a canned trace without touching any backend
type stubProvider struct {
	trace *decode.Trace
	err   error
	calls int
}

func (p *stubProvider) Trace(ctx context.Context, prompt string, strategy decode.Strategy, params decode.Params) (*decode.Trace, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.trace, nil
}

func (p *stubProvider) ModelName() string { return "stub" }

func stubTrace(steps int) *decode.Trace {
	t := &decode.Trace{
		Prompt:   "the cat",
		Model:    "stub",
		Strategy: decode.Greedy,
		Params:   decode.DefaultParams(),
	}
	for i := 0; i < steps; i++ {
		t.Steps = append(t.Steps, decode.Step{
			Index: i,
			Candidates: []decode.Candidate{
				{TokenID: 7, Token: " sat", Prob: 0.7, Chosen: true},
				{TokenID: 8, Token: " ran", Prob: 0.3},
			},
			Chosen:      decode.Candidate{TokenID: 7, Token: " sat", Prob: 0.7, Chosen: true},
			CurrentText: strings.Repeat("sat ", i+1),
		})
	}
	t.Metrics = decode.Metrics{StepCount: steps}
	return t
}

func newTestModel(provider decode.Provider) DecodeModel {
	return NewDecodeModel(provider, decode.Greedy, decode.DefaultParams(), 10*time.Millisecond, 30)
}

func TestNewDecodeModel(t *testing.T) {
	m := newTestModel(&stubProvider{})

	if m.strategy != decode.Greedy {
		t.Errorf("Expected greedy strategy, got %v", m.strategy)
	}
	if m.focus != numInputs {
		t.Errorf("Prompt should have initial focus, got %d", m.focus)
	}
	if len(m.inputs) != numInputs {
		t.Errorf("Expected %d settings inputs, got %d", numInputs, len(m.inputs))
	}
}

func TestUpdate_WindowSize(t *testing.T) {
	m := newTestModel(&stubProvider{})

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(DecodeModel)

	if !m.ready {
		t.Error("Window size should mark the model ready")
	}
	if m.width != 120 || m.height != 40 {
		t.Errorf("Dimensions not stored: %dx%d", m.width, m.height)
	}
}

func TestUpdate_TraceReadyAutoplay(t *testing.T) {
	m := newTestModel(&stubProvider{})

	updated, cmd := m.Update(traceReadyMsg{trace: stubTrace(3), autoplay: true})
	m = updated.(DecodeModel)

	if !m.playing {
		t.Error("Autoplay should start playback")
	}
	if cmd == nil {
		t.Error("Autoplay should schedule a tick")
	}
}

func TestUpdate_TraceReadySingleStep(t *testing.T) {
	m := newTestModel(&stubProvider{})

	updated, _ := m.Update(traceReadyMsg{trace: stubTrace(3), autoplay: false})
	m = updated.(DecodeModel)

	if m.playing {
		t.Error("Single step should not start playback")
	}
	if m.pos != 1 {
		t.Errorf("Expected one revealed step, got %d", m.pos)
	}
}

func TestUpdate_TraceError(t *testing.T) {
	m := newTestModel(&stubProvider{})

	updated, _ := m.Update(traceErrMsg{err: fmt.Errorf("backend gone")})
	m = updated.(DecodeModel)

	if m.err == nil {
		t.Error("Error message should be stored")
	}
	if m.generating || m.playing {
		t.Error("Error should halt generation and playback")
	}
}

func TestUpdate_CancelledGenerationIsNotAnError(t *testing.T) {
	m := newTestModel(&stubProvider{})
	m.generating = true

	updated, _ := m.Update(traceErrMsg{err: context.Canceled})
	m = updated.(DecodeModel)

	if m.err != nil {
		t.Errorf("Stopping a generation should not surface an error, got %v", m.err)
	}
	if m.generating || m.playing {
		t.Error("Cancellation should leave the model idle")
	}
}

func TestUpdate_WrappedCancellationIsNotAnError(t *testing.T) {
	m := newTestModel(&stubProvider{})

	updated, _ := m.Update(traceErrMsg{err: fmt.Errorf("logits at step 3: %w", context.Canceled)})
	m = updated.(DecodeModel)

	if m.err != nil {
		t.Errorf("Wrapped cancellation should not surface an error, got %v", m.err)
	}
}

func TestUpdate_PlayTickAdvances(t *testing.T) {
	m := newTestModel(&stubProvider{})

	updated, _ := m.Update(traceReadyMsg{trace: stubTrace(2), autoplay: true})
	m = updated.(DecodeModel)

	updated, cmd := m.Update(playTickMsg{})
	m = updated.(DecodeModel)
	if m.pos != 1 {
		t.Errorf("Tick should reveal a step, pos=%d", m.pos)
	}
	if cmd == nil {
		t.Error("Playback should keep ticking while steps remain")
	}

	updated, _ = m.Update(playTickMsg{})
	m = updated.(DecodeModel)
	if !m.finished {
		t.Error("Revealing the last step should finish playback")
	}
	if m.playing {
		t.Error("Playback should stop at the end of the trace")
	}
}

func TestStartDecoding_EmptyPrompt(t *testing.T) {
	provider := &stubProvider{trace: stubTrace(1)}
	m := newTestModel(provider)

	updated, _ := m.startDecoding(true)
	m = updated.(DecodeModel)

	if m.err == nil {
		t.Error("Empty prompt should be rejected")
	}
	if provider.calls != 0 {
		t.Error("Provider should not be called for an empty prompt")
	}
}

func TestStartDecoding_RunsProvider(t *testing.T) {
	provider := &stubProvider{trace: stubTrace(2)}
	m := newTestModel(provider).SetPrompt("the cat")

	updated, cmd := m.startDecoding(true)
	m = updated.(DecodeModel)

	if !m.generating {
		t.Error("Model should be marked generating")
	}
	if cmd == nil {
		t.Fatal("Expected a command generating the trace")
	}

	msg := cmd()
	ready, ok := msg.(traceReadyMsg)
	if !ok {
		t.Fatalf("Expected traceReadyMsg, got %T", msg)
	}
	if !ready.autoplay {
		t.Error("Full run should autoplay")
	}
	if provider.calls != 1 {
		t.Errorf("Provider called %d times, want 1", provider.calls)
	}
}

func TestCycleStrategy_Wraps(t *testing.T) {
	m := newTestModel(&stubProvider{})

	seen := map[decode.Strategy]bool{}
	for range decode.Strategies() {
		m.cycleStrategy()
		seen[m.strategy] = true
	}
	if len(seen) != len(decode.Strategies()) {
		t.Errorf("Cycling should visit every strategy, saw %d", len(seen))
	}
	if m.strategy != decode.Greedy {
		t.Errorf("Full cycle should return to greedy, got %v", m.strategy)
	}
}

func TestApplySettings(t *testing.T) {
	m := newTestModel(&stubProvider{})

	m.inputs[inputTopP].SetValue("0.5")
	m.inputs[inputTopK].SetValue("not a number")
	m.inputs[inputSteps].SetValue("32")
	m.inputs[inputDelay].SetValue("0.1")

	m.applySettings()

	if m.params.TopP != 0.5 {
		t.Errorf("TopP not applied: %v", m.params.TopP)
	}
	if m.params.TopK != decode.DefaultParams().TopK {
		t.Errorf("Invalid input should fall back to the current value, got %d", m.params.TopK)
	}
	if m.params.MaxSteps != 32 {
		t.Errorf("MaxSteps not applied: %d", m.params.MaxSteps)
	}
	if m.delay != 100*time.Millisecond {
		t.Errorf("Delay not applied: %v", m.delay)
	}
}

// ============================================================================
// View Tests
// ============================================================================

func TestView_NotReady(t *testing.T) {
	m := newTestModel(&stubProvider{})
	if !strings.Contains(m.View(), "Initializing") {
		t.Error("Unready model should show the initializing screen")
	}
}

func TestRenderCandidates(t *testing.T) {
	m := newTestModel(&stubProvider{})
	m.trace = stubTrace(1)
	m.pos = 1

	out := m.renderCandidates(60)

	if !strings.Contains(out, "█") {
		t.Error("Expected probability bars")
	}
	if !strings.Contains(out, "·sat") {
		t.Error("Leading spaces should render as middle dots")
	}
	if !strings.Contains(out, "0.7000") {
		t.Error("Probabilities should render with 4 decimals")
	}
}

func TestRenderCandidates_NoStep(t *testing.T) {
	m := newTestModel(&stubProvider{})
	if !strings.Contains(m.renderCandidates(60), "No step yet") {
		t.Error("Expected placeholder before the first step")
	}
}

func TestRenderMetrics(t *testing.T) {
	m := newTestModel(&stubProvider{})
	m.trace = stubTrace(2)
	m.pos = 1
	m.trace.Metrics = decode.Metrics{
		TotalTime:    2 * time.Second,
		PromptTokens: 5,
		StepCount:    2,
	}

	out := m.renderMetrics()
	for _, want := range []string{"Model: stub", "Prompt Tokens: 5", "Steps: 1/2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Metrics pane missing %q", want)
		}
	}
}

func TestDisplayToken(t *testing.T) {
	cases := []struct{ in, want string }{
		{" sat", "·sat"},
		{"\n", "⏎"},
		{"", "∅"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		if got := displayToken(tc.in); got != tc.want {
			t.Errorf("displayToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
