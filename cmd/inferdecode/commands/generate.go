package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nevernever69/InferDecode/internal/engine"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate text without the step visualizer",
	Long: `Generate a plain streaming completion through llama.cpp.

This path samples inside the backend and prints tokens as they arrive; use
run or trace to see candidate distributions. Requires building with
-tags llama and a GGUF model.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

var (
	genMaxTokens   int
	genTemperature float64
	genTopP        float64
	genTopK        int
)

func init() {
	generateCmd.Flags().String("model", "", "GGUF model file path")
	generateCmd.Flags().IntVar(&genMaxTokens, "max-tokens", 256, "maximum tokens to generate")
	generateCmd.Flags().Float64Var(&genTemperature, "temperature", 0.8, "sampling temperature")
	generateCmd.Flags().Float64Var(&genTopP, "top-p", 0.95, "top-p sampling threshold")
	generateCmd.Flags().IntVar(&genTopK, "top-k", 40, "top-k sampling cutoff")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	cfg, err := setup()
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Engine.ModelPath = v
	}
	if cfg.Engine.ModelPath == "" {
		return fmt.Errorf("no model path configured; pass --model or set engine.model_path")
	}

	loadOpts := engine.DefaultLoadOptions()
	if cfg.Engine.ContextSize > 0 {
		loadOpts.ContextSize = cfg.Engine.ContextSize
	}
	if cfg.Engine.Threads > 0 {
		loadOpts.Threads = cfg.Engine.Threads
	}

	generator, err := engine.NewLlamaGenerator(cfg.Engine.ModelPath, loadOpts)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}
	defer generator.Close()

	stream, err := generator.GenerateStream(context.Background(), prompt, engine.GenerateOptions{
		MaxTokens:   genMaxTokens,
		Temperature: float32(genTemperature),
		TopP:        float32(genTopP),
		TopK:        genTopK,
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	for token := range stream {
		fmt.Print(token)
		os.Stdout.Sync()
	}
	fmt.Println()

	return nil
}
