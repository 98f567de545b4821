package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nevernever69/InferDecode/internal/decode"
	"github.com/nevernever69/InferDecode/internal/logging"
	"github.com/nevernever69/InferDecode/internal/tui"
)

var traceCmd = &cobra.Command{
	Use:   "trace [prompt]",
	Short: "Run a full decoding trace non-interactively",
	Long: `Generate a complete decoding trace for the prompt and print it.

Useful for piping traces into other tools or saving them for later
inspection with the TUI disabled.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTrace,
}

var (
	traceFormat string
	tracePretty bool
	traceSave   string
)

func init() {
	addEngineFlags(traceCmd)
	addSamplingFlags(traceCmd)
	traceCmd.Flags().StringVar(&traceFormat, "format", "json", "output format: json or markdown")
	traceCmd.Flags().BoolVar(&tracePretty, "pretty", false, "syntax-highlight JSON output")
	traceCmd.Flags().StringVarP(&traceSave, "save", "s", "", "save output to file (default: ~/.inferdecode/traces/trace_<timestamp>)")

	rootCmd.AddCommand(traceCmd)
}

func runTrace(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	cfg, err := setup()
	if err != nil {
		return err
	}
	applyEngineFlags(cmd, cfg)
	applySamplingFlags(cmd, cfg)

	if traceFormat != "json" && traceFormat != "markdown" {
		return fmt.Errorf("unknown format: %q (valid: json, markdown)", traceFormat)
	}

	strategy, err := decode.ParseStrategy(cfg.Decode.Strategy)
	if err != nil {
		return err
	}

	provider, closeFn, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	params := decodeParams(cfg)

	// Progress only applies to local tracers; the remote backend returns in
	// a single round trip
	if tracer, ok := provider.(*decode.Tracer); ok {
		bar := progressbar.NewOptions(params.MaxSteps,
			progressbar.OptionSetDescription("Decoding"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWriter(os.Stderr),
		)
		tracer.OnStep = func(decode.Step) {
			bar.Add(1)
		}
		defer func() {
			bar.Finish()
			fmt.Fprintln(os.Stderr)
		}()
	}

	logging.Infof("tracing: engine=%s strategy=%s steps=%d", cfg.Engine.Backend, strategy, params.MaxSteps)

	trace, err := provider.Trace(context.Background(), prompt, strategy, params)
	if err != nil {
		return fmt.Errorf("tracing failed: %w", err)
	}

	var output []byte
	ext := traceFormat
	switch traceFormat {
	case "markdown":
		output = []byte(decode.ExportMarkdown(trace))
		ext = "md"
	default:
		output, err = decode.ExportJSON(trace)
		if err != nil {
			return err
		}
	}

	if tracePretty && traceFormat == "json" {
		fmt.Println(tui.HighlightJSON(string(output)))
	} else {
		fmt.Println(string(output))
	}

	if traceSave != "" || cmd.Flags().Changed("save") {
		path, err := SaveTrace(output, traceSave, ext)
		if err != nil {
			return fmt.Errorf("saving trace: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Trace saved to: %s\n", path)
	}

	return nil
}
