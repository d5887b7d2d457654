package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "COMPINTEL_"
	envFileKey = "COMPINTEL_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if COMPINTEL_CONFIG is set
//  3. env (prefix COMPINTEL_)
func Load(_ context.Context) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envFileKey); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// COMPINTEL_QUEUE_SIZE -> queue_size; list values are comma separated.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields a run cannot do without.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.SearchTimeframeDays <= 0 {
		return fmt.Errorf("%w: search_timeframe_days must be positive", ErrInvalidConfig)
	}
	if c.MaxArticlesPerCompany <= 0 {
		return fmt.Errorf("%w: max_articles_per_company must be positive", ErrInvalidConfig)
	}
	modes := map[string]string{
		"retrieval_mode":   c.RetrievalMode,
		"classifier_mode":  c.ClassifierMode,
		"scorer_mode":      c.ScorerMode,
		"analyst_mode":     c.AnalystMode,
		"recommender_mode": c.RecommenderMode,
		"aggregator_mode":  c.AggregatorMode,
	}
	for key, v := range modes {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case ModeAuto, ModeRich, ModeFallback:
		default:
			return fmt.Errorf("%w: %s must be one of auto, rich, fallback (got %q)", ErrInvalidConfig, key, v)
		}
	}
	return nil
}
