package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nevernever69/InferDecode/internal/decode"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7B68EE")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00D4FF"))

	tokenStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00D4FF"))

	chosenStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7FFF00"))

	generatedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7FFF00"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)

	candidatesPane = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	generatedPane = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7FFF00")).
			Padding(0, 1)

	metricsPane = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF00FF")).
			Padding(0, 1)
)

// Settings input indices
const (
	inputTopP = iota
	inputTopK
	inputTemperature
	inputSteps
	inputDelay
	numInputs
)

type traceReadyMsg struct {
	trace    *decode.Trace
	autoplay bool
}

type traceErrMsg struct {
	err error
}

type playTickMsg struct{}

// DecodeModel is the interactive decoding visualizer. A trace is generated
// up front and then played back step by step, so stepping and stopping never
// have to wait on the model.
type DecodeModel struct {
	provider decode.Provider
	strategy decode.Strategy
	params   decode.Params
	delay    time.Duration
	barWidth int

	inputs  []textinput.Model
	prompt  textarea.Model
	genView viewport.Model
	focus   int // 0..numInputs-1 settings, numInputs = prompt

	trace       *decode.Trace
	tracePrompt string
	pos         int // steps revealed so far
	playing     bool
	generating  bool
	finished    bool
	cancel      context.CancelFunc
	err         error

	width  int
	height int
	ready  bool
}

// NewDecodeModel creates the visualizer model
func NewDecodeModel(provider decode.Provider, strategy decode.Strategy, params decode.Params, delay time.Duration, barWidth int) DecodeModel {
	inputs := make([]textinput.Model, numInputs)

	placeholders := []string{
		fmt.Sprintf("Top-p (%.1f)", params.TopP),
		fmt.Sprintf("Top-k (%d)", params.TopK),
		fmt.Sprintf("Temp (%.1f)", params.Temperature),
		fmt.Sprintf("Steps (%d)", params.MaxSteps),
		fmt.Sprintf("Delay (%.1fs)", delay.Seconds()),
	}
	for i := range inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 8
		ti.Width = 12
		inputs[i] = ti
	}

	ta := textarea.New()
	ta.Placeholder = "Enter your prompt here..."
	ta.Prompt = "❯ "
	ta.CharLimit = 2000
	ta.SetWidth(80)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false
	ta.Focus()

	vp := viewport.New(40, 12)

	return DecodeModel{
		provider: provider,
		strategy: strategy,
		params:   params,
		delay:    delay,
		barWidth: barWidth,
		inputs:   inputs,
		prompt:   ta,
		genView:  vp,
		focus:    numInputs,
	}
}

// SetPrompt pre-fills the prompt input
func (m DecodeModel) SetPrompt(prompt string) DecodeModel {
	m.prompt.SetValue(prompt)
	return m
}

func (m DecodeModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m DecodeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.prompt.SetWidth(msg.Width - 4)
		paneWidth := m.paneWidth()
		m.genView.Width = paneWidth - 4
		m.genView.Height = m.paneHeight() - 2
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.stop()
			return m, tea.Quit

		case tea.KeyTab:
			m.setFocus((m.focus + 1) % (numInputs + 1))
			return m, nil

		case tea.KeyShiftTab:
			m.setFocus((m.focus + numInputs) % (numInputs + 1))
			return m, nil

		case tea.KeyCtrlR:
			m.cycleStrategy()
			return m, nil

		case tea.KeyCtrlX:
			m.stop()
			return m, nil

		case tea.KeyCtrlN:
			return m.startDecoding(false)

		case tea.KeyCtrlS:
			return m.startDecoding(true)

		case tea.KeyEnter:
			if m.focus == numInputs {
				return m.startDecoding(true)
			}
		}

	case traceReadyMsg:
		m.generating = false
		m.trace = msg.trace
		m.pos = 0
		m.finished = len(msg.trace.Steps) == 0
		m.err = nil
		if m.finished {
			return m, nil
		}
		if msg.autoplay {
			m.playing = true
			return m, m.tick()
		}
		m.advance()
		return m, nil

	case traceErrMsg:
		m.generating = false
		m.playing = false
		// A cancelled generation is the user pressing Stop, not an error
		if errors.Is(msg.err, context.Canceled) {
			return m, nil
		}
		m.err = msg.err
		return m, nil

	case playTickMsg:
		if !m.playing {
			return m, nil
		}
		m.advance()
		if m.playing {
			return m, m.tick()
		}
		return m, nil
	}

	// Route remaining input to the focused widget
	var cmd tea.Cmd
	if m.focus == numInputs {
		m.prompt, cmd = m.prompt.Update(msg)
	} else {
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	}
	cmds = append(cmds, cmd)

	m.genView, cmd = m.genView.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// startDecoding generates a new trace if the prompt changed (or the current
// trace finished), otherwise resumes playback of the existing one
func (m DecodeModel) startDecoding(fullRun bool) (tea.Model, tea.Cmd) {
	if m.generating {
		return m, nil
	}

	currentPrompt := strings.TrimSpace(m.prompt.Value())
	if currentPrompt == "" {
		m.err = fmt.Errorf("enter a prompt first")
		return m, nil
	}

	if m.trace == nil || m.tracePrompt != currentPrompt || m.finished {
		m.applySettings()
		m.tracePrompt = currentPrompt
		m.trace = nil
		m.pos = 0
		m.playing = false
		m.finished = false
		m.err = nil
		m.generating = true

		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel

		provider := m.provider
		strategy := m.strategy
		params := m.params
		return m, func() tea.Msg {
			trace, err := provider.Trace(ctx, currentPrompt, strategy, params)
			if err != nil {
				return traceErrMsg{err: err}
			}
			return traceReadyMsg{trace: trace, autoplay: fullRun}
		}
	}

	// Resume the existing trace
	if fullRun {
		m.playing = true
		return m, m.tick()
	}
	m.advance()
	return m, nil
}

// advance reveals the next trace step
func (m *DecodeModel) advance() {
	if m.trace == nil || m.pos >= len(m.trace.Steps) {
		m.finished = true
		m.playing = false
		return
	}
	m.pos++
	m.genView.SetContent(generatedStyle.Render(m.trace.Steps[m.pos-1].CurrentText))
	m.genView.GotoBottom()
	if m.pos >= len(m.trace.Steps) {
		m.finished = true
		m.playing = false
	}
}

// stop halts playback and cancels an in-flight generation
func (m *DecodeModel) stop() {
	m.playing = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.generating {
		m.generating = false
		m.finished = true
	}
}

func (m *DecodeModel) tick() tea.Cmd {
	return tea.Tick(m.delay, func(time.Time) tea.Msg {
		return playTickMsg{}
	})
}

func (m *DecodeModel) setFocus(focus int) {
	m.focus = focus
	for i := range m.inputs {
		if i == focus {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	if focus == numInputs {
		m.prompt.Focus()
	} else {
		m.prompt.Blur()
	}
}

func (m *DecodeModel) cycleStrategy() {
	strategies := decode.Strategies()
	for i, s := range strategies {
		if s == m.strategy {
			m.strategy = strategies[(i+1)%len(strategies)]
			return
		}
	}
	m.strategy = strategies[0]
}

// applySettings reads the settings inputs, falling back to the current
// parameter values for anything left blank
func (m *DecodeModel) applySettings() {
	m.params.TopP = parseFloat(m.inputs[inputTopP].Value(), m.params.TopP)
	m.params.TopK = parseInt(m.inputs[inputTopK].Value(), m.params.TopK)
	m.params.Temperature = parseFloat(m.inputs[inputTemperature].Value(), m.params.Temperature)
	m.params.MaxSteps = parseInt(m.inputs[inputSteps].Value(), m.params.MaxSteps)

	if v := strings.TrimSpace(m.inputs[inputDelay].Value()); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
			m.delay = time.Duration(secs * float64(time.Second))
		}
	}
}

func parseFloat(s string, fallback float32) float32 {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return fallback
	}
	return float32(v)
}

func parseInt(s string, fallback int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
