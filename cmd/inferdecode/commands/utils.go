package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nevernever69/InferDecode/internal/config"
	"github.com/nevernever69/InferDecode/internal/decode"
	"github.com/nevernever69/InferDecode/internal/engine"
	"github.com/nevernever69/InferDecode/internal/remote"
)

// buildProvider creates a trace provider from the engine configuration.
// The returned close function releases backend resources.
func buildProvider(cfg *config.Config) (decode.Provider, func() error, error) {
	switch cfg.Engine.Backend {
	case "openai":
		client := remote.NewClient(cfg.Engine.ServerURL, cfg.Engine.RemoteModel)
		return client, func() error { return nil }, nil

	default:
		eng, err := engine.New(cfg.Engine.Backend, engine.Options{
			ModelPath:     cfg.Engine.ModelPath,
			TokenizerPath: cfg.Engine.Tokenizer,
			Threads:       cfg.Engine.Threads,
			ContextSize:   cfg.Engine.ContextSize,
			EOSTokenID:    cfg.Engine.EOSTokenID,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating %s engine: %w", cfg.Engine.Backend, err)
		}
		return decode.NewTracer(eng), eng.Close, nil
	}
}

// decodeParams builds sampling parameters from the configuration
func decodeParams(cfg *config.Config) decode.Params {
	return decode.Params{
		TopK:        cfg.Decode.TopK,
		TopP:        cfg.Decode.TopP,
		Temperature: cfg.Decode.Temperature,
		TypicalP:    cfg.Decode.TypicalP,
		BeamWidth:   cfg.Decode.BeamWidth,
		MaxSteps:    cfg.Decode.MaxSteps,
		Candidates:  cfg.Decode.Candidates,
		Seed:        cfg.Decode.Seed,
	}
}

// addEngineFlags registers the engine-selection flags shared by run, trace
// and generate
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("engine", "", "engine backend: mock, onnx, openai")
	cmd.Flags().String("model", "", "model file path")
	cmd.Flags().String("tokenizer", "", "tokenizer.json path (onnx backend)")
	cmd.Flags().String("server", "", "server base URL (openai backend)")
	cmd.Flags().String("remote-model", "", "model name sent to the server (openai backend)")
}

// applyEngineFlags overrides config with any engine flags that were set
func applyEngineFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("engine"); v != "" {
		cfg.Engine.Backend = v
	}
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Engine.ModelPath = v
	}
	if v, _ := cmd.Flags().GetString("tokenizer"); v != "" {
		cfg.Engine.Tokenizer = v
	}
	if v, _ := cmd.Flags().GetString("server"); v != "" {
		cfg.Engine.ServerURL = v
	}
	if v, _ := cmd.Flags().GetString("remote-model"); v != "" {
		cfg.Engine.RemoteModel = v
	}
}

// addSamplingFlags registers the sampling-parameter flags
func addSamplingFlags(cmd *cobra.Command) {
	cmd.Flags().String("strategy", "", "decoding strategy (default from config)")
	cmd.Flags().Int("top-k", 0, "top-k sampling cutoff")
	cmd.Flags().Float32("top-p", 0, "top-p (nucleus) sampling threshold")
	cmd.Flags().Float32("temperature", -1, "sampling temperature")
	cmd.Flags().Int("max-steps", 0, "maximum decoding steps")
	cmd.Flags().Int64("seed", 0, "random seed for sampling")
}

// applySamplingFlags overrides config with any sampling flags that were set
func applySamplingFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("strategy") {
		v, _ := cmd.Flags().GetString("strategy")
		cfg.Decode.Strategy = v
	}
	if cmd.Flags().Changed("top-k") {
		cfg.Decode.TopK, _ = cmd.Flags().GetInt("top-k")
	}
	if cmd.Flags().Changed("top-p") {
		cfg.Decode.TopP, _ = cmd.Flags().GetFloat32("top-p")
	}
	if cmd.Flags().Changed("temperature") {
		cfg.Decode.Temperature, _ = cmd.Flags().GetFloat32("temperature")
	}
	if cmd.Flags().Changed("max-steps") {
		cfg.Decode.MaxSteps, _ = cmd.Flags().GetInt("max-steps")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Decode.Seed, _ = cmd.Flags().GetInt64("seed")
	}
}

// SaveTrace writes exported trace content to a file. An empty path gets a
// timestamped default under ~/.inferdecode/traces.
func SaveTrace(content []byte, outputPath, ext string) (string, error) {
	if outputPath == "" {
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		outputDir := filepath.Join(homeDir, ".inferdecode", "traces")
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
		outputPath = filepath.Join(outputDir, fmt.Sprintf("trace_%s.%s", timestamp, ext))
	}

	parentDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create parent directory: %w", err)
	}

	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return outputPath, nil
}
