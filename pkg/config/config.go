// Package config loads runtime settings from the environment, with an
// optional .env file picked up from the working directory.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultModel          = "openai:gpt-4o"
	DefaultMatchThreshold = 75.0
	DefaultMaxSteps       = 50
	DefaultPanelTurns     = 5
	DefaultWorkers        = 4
)

// Config carries every tunable the CLI and pipelines need.
type Config struct {
	Model          string  // provider:model id, e.g. "openai:gpt-4o"
	MatchThreshold float64 // minimum match score for email generation
	MaxSteps       int     // graph executor step ceiling
	PanelTurns     int     // host turns per panel discussion
	PanelHost      string  // host display name; empty uses the panel default
	PanelSeed      uint64  // RNG seed for reproducible discussions
	Workers        int     // fan-out concurrency inside a node
}

// Load reads .env (if present) and the KOLGRAPH_* environment variables.
// Malformed numeric values are reported rather than silently defaulted.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	cfg := Config{
		Model:          DefaultModel,
		MatchThreshold: DefaultMatchThreshold,
		MaxSteps:       DefaultMaxSteps,
		PanelTurns:     DefaultPanelTurns,
		Workers:        DefaultWorkers,
	}

	if v := os.Getenv("KOLGRAPH_MODEL"); v != "" {
		cfg.Model = v
	}
	cfg.PanelHost = os.Getenv("KOLGRAPH_PANEL_HOST")

	if v := os.Getenv("KOLGRAPH_MATCH_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("KOLGRAPH_MATCH_THRESHOLD: %w", err)
		}
		cfg.MatchThreshold = f
	}
	if v := os.Getenv("KOLGRAPH_MAX_STEPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("KOLGRAPH_MAX_STEPS: %w", err)
		}
		cfg.MaxSteps = n
	}
	if v := os.Getenv("KOLGRAPH_PANEL_TURNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("KOLGRAPH_PANEL_TURNS: %w", err)
		}
		cfg.PanelTurns = n
	}
	if v := os.Getenv("KOLGRAPH_PANEL_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("KOLGRAPH_PANEL_SEED: %w", err)
		}
		cfg.PanelSeed = n
	}
	if v := os.Getenv("KOLGRAPH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("KOLGRAPH_WORKERS: %w", err)
		}
		cfg.Workers = n
	}

	return cfg, nil
}
