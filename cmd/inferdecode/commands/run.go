package commands

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nevernever69/InferDecode/internal/decode"
	"github.com/nevernever69/InferDecode/internal/logging"
	"github.com/nevernever69/InferDecode/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch the interactive decoding visualizer",
	Long: `Launch the interactive TUI. Enter a prompt, pick a strategy and step
through the decoding process token by token, watching the candidate
distribution evolve.`,
	RunE: runRun,
}

var runPrompt string

func init() {
	addEngineFlags(runCmd)
	addSamplingFlags(runCmd)
	runCmd.Flags().StringVarP(&runPrompt, "prompt", "p", "", "pre-fill the prompt input")
	runCmd.Flags().Float64("delay", -1, "playback delay between steps in seconds")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	applyEngineFlags(cmd, cfg)
	applySamplingFlags(cmd, cfg)

	strategy, err := decode.ParseStrategy(cfg.Decode.Strategy)
	if err != nil {
		return err
	}

	provider, closeFn, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	delay := time.Duration(cfg.TUI.DelayMS) * time.Millisecond
	if cmd.Flags().Changed("delay") {
		secs, _ := cmd.Flags().GetFloat64("delay")
		if secs >= 0 {
			delay = time.Duration(secs * float64(time.Second))
		}
	}

	logging.Infof("starting visualizer: engine=%s strategy=%s", cfg.Engine.Backend, strategy)

	tui.SetColorEnabled(cfg.TUI.Color)

	model := tui.NewDecodeModel(provider, strategy, decodeParams(cfg), delay, cfg.TUI.BarWidth)
	if runPrompt != "" {
		model = model.SetPrompt(runPrompt)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
