package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Decode  DecodeConfig  `mapstructure:"decode"`
	TUI     TUIConfig     `mapstructure:"tui"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type EngineConfig struct {
	Backend     string `mapstructure:"backend"`      // mock, onnx, openai
	ModelPath   string `mapstructure:"model_path"`   // path to ONNX / GGUF model
	Tokenizer   string `mapstructure:"tokenizer"`    // path to tokenizer.json (onnx backend)
	ServerURL   string `mapstructure:"server_url"`   // base URL (openai backend)
	RemoteModel string `mapstructure:"remote_model"` // model name sent to the server
	Threads     int    `mapstructure:"threads"`
	ContextSize int    `mapstructure:"context_size"`
	EOSTokenID  int    `mapstructure:"eos_token_id"`
}

type DecodeConfig struct {
	Strategy    string  `mapstructure:"strategy"`
	TopK        int     `mapstructure:"top_k"`
	TopP        float32 `mapstructure:"top_p"`
	Temperature float32 `mapstructure:"temperature"`
	TypicalP    float32 `mapstructure:"typical_p"`
	BeamWidth   int     `mapstructure:"beam_width"`
	MaxSteps    int     `mapstructure:"max_steps"`
	Candidates  int     `mapstructure:"candidates"`
	Seed        int64   `mapstructure:"seed"`
}

type TUIConfig struct {
	DelayMS  int  `mapstructure:"delay_ms"`
	BarWidth int  `mapstructure:"bar_width"`
	Color    bool `mapstructure:"color"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	appDir := filepath.Join(home, ".inferdecode")

	return &Config{
		Engine: EngineConfig{
			Backend:     "mock",
			ModelPath:   "",
			Tokenizer:   "",
			ServerURL:   "http://localhost:8000",
			RemoteModel: "",
			Threads:     0,
			ContextSize: 4096,
			EOSTokenID:  -1,
		},
		Decode: DecodeConfig{
			Strategy:    "greedy",
			TopK:        40,
			TopP:        0.9,
			Temperature: 1.0,
			TypicalP:    0.9,
			BeamWidth:   4,
			MaxSteps:    64,
			Candidates:  10,
			Seed:        42,
		},
		TUI: TUIConfig{
			DelayMS:  300,
			BarWidth: 30,
			Color:    true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    filepath.Join(appDir, "inferdecode.log"),
			Console: false,
		},
	}
}

// Load loads configuration from file, environment, and defaults
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	// Config file setup
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".inferdecode"))
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	// Environment variables
	v.SetEnvPrefix("INFERDECODE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is okay, use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand paths
	cfg.ExpandPaths()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validBackends := []string{"mock", "onnx", "openai"}
	if !contains(validBackends, c.Engine.Backend) {
		return fmt.Errorf("engine.backend must be one of: %v", validBackends)
	}

	if c.Decode.Temperature < 0 {
		return errors.New("decode.temperature must be >= 0")
	}

	if c.Decode.TopP <= 0 || c.Decode.TopP > 1.0 {
		return errors.New("decode.top_p must be in (0, 1]")
	}

	if c.Decode.TypicalP <= 0 || c.Decode.TypicalP > 1.0 {
		return errors.New("decode.typical_p must be in (0, 1]")
	}

	if c.Decode.TopK < 0 {
		return errors.New("decode.top_k must be >= 0")
	}

	if c.Decode.BeamWidth < 1 {
		return errors.New("decode.beam_width must be >= 1")
	}

	if c.Decode.MaxSteps < 1 || c.Decode.MaxSteps > 8192 {
		return errors.New("decode.max_steps must be between 1 and 8192")
	}

	if c.Decode.Candidates < 1 || c.Decode.Candidates > 50 {
		return errors.New("decode.candidates must be between 1 and 50")
	}

	if c.TUI.DelayMS < 0 {
		return errors.New("tui.delay_ms must be >= 0")
	}

	if c.TUI.BarWidth < 5 || c.TUI.BarWidth > 120 {
		return errors.New("tui.bar_width must be between 5 and 120")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// ExpandPaths expands ~ and environment variables in paths
func (c *Config) ExpandPaths() {
	c.Engine.ModelPath = expandPath(c.Engine.ModelPath)
	c.Engine.Tokenizer = expandPath(c.Engine.Tokenizer)
	c.Logging.File = expandPath(c.Logging.File)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("engine.backend", cfg.Engine.Backend)
	v.SetDefault("engine.model_path", cfg.Engine.ModelPath)
	v.SetDefault("engine.tokenizer", cfg.Engine.Tokenizer)
	v.SetDefault("engine.server_url", cfg.Engine.ServerURL)
	v.SetDefault("engine.remote_model", cfg.Engine.RemoteModel)
	v.SetDefault("engine.threads", cfg.Engine.Threads)
	v.SetDefault("engine.context_size", cfg.Engine.ContextSize)
	v.SetDefault("engine.eos_token_id", cfg.Engine.EOSTokenID)

	v.SetDefault("decode.strategy", cfg.Decode.Strategy)
	v.SetDefault("decode.top_k", cfg.Decode.TopK)
	v.SetDefault("decode.top_p", cfg.Decode.TopP)
	v.SetDefault("decode.temperature", cfg.Decode.Temperature)
	v.SetDefault("decode.typical_p", cfg.Decode.TypicalP)
	v.SetDefault("decode.beam_width", cfg.Decode.BeamWidth)
	v.SetDefault("decode.max_steps", cfg.Decode.MaxSteps)
	v.SetDefault("decode.candidates", cfg.Decode.Candidates)
	v.SetDefault("decode.seed", cfg.Decode.Seed)

	v.SetDefault("tui.delay_ms", cfg.TUI.DelayMS)
	v.SetDefault("tui.bar_width", cfg.TUI.BarWidth)
	v.SetDefault("tui.color", cfg.TUI.Color)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
