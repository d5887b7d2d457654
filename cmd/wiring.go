package main

import (
	"context"
	"fmt"

	app "github.com/okian/compintel/internal/app"
	"github.com/okian/compintel/internal/config"
	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/provider"
	"github.com/okian/compintel/internal/provider/llm"
	"github.com/okian/compintel/internal/provider/news"
	"github.com/okian/compintel/internal/provider/registry"
	"github.com/okian/compintel/pkg/logger"
)

// setup loads configuration and initializes the global logger.
func setup(ctx context.Context) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.InitWith(logger.Options{Format: cfg.LogFormat}); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	l := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		l.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, l, nil
}

// serviceOptions maps configuration onto service options.
func serviceOptions(cfg *config.Config, l logger.Logger) ([]app.Option, error) {
	providers, err := providerOptions(cfg)
	if err != nil {
		return nil, err
	}
	return []app.Option{
		app.WithLogger(l),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.RunQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithRunHistory(cfg.RunHistory),
		app.WithProviders(providers),
		app.WithDefaults(defaultRequest(cfg)),
	}, nil
}

func providerOptions(cfg *config.Config) (registry.Options, error) {
	var m registry.Modes
	for _, p := range []struct {
		dst *provider.Mode
		val string
	}{
		{&m.Retriever, cfg.RetrievalMode},
		{&m.Classifier, cfg.ClassifierMode},
		{&m.Scorer, cfg.ScorerMode},
		{&m.Analyst, cfg.AnalystMode},
		{&m.Recommender, cfg.RecommenderMode},
		{&m.Aggregator, cfg.AggregatorMode},
	} {
		mode, err := provider.ParseMode(p.val)
		if err != nil {
			return registry.Options{}, err
		}
		*p.dst = mode
	}

	return registry.Options{
		Modes: m,
		LLM: llm.Config{
			APIKey:   cfg.LLMAPIKey,
			Model:    cfg.LLMModel,
			Endpoint: cfg.LLMEndpoint,
			Timeout:  cfg.LLMTimeout(),
			RetryMax: cfg.LLMRetryMax,
		},
		News: news.Config{
			APIKey:      cfg.NewsAPIKey,
			Endpoint:    cfg.NewsEndpoint,
			Timeout:     cfg.NewsTimeout(),
			Concurrency: cfg.NewsConcurrency,
		},
	}, nil
}

// defaultRequest is the watchlist a submission falls back to.
func defaultRequest(cfg *config.Config) model.Request {
	req := model.Request{
		Regions: cfg.Regions,
		Config: model.RunConfig{
			SearchTimeframeDays:   cfg.SearchTimeframeDays,
			MaxArticlesPerCompany: cfg.MaxArticlesPerCompany,
			RecommendationFocus:   cfg.RecommendationFocus,
		},
		CompanyProfile: model.CompanyProfile{
			Size:           cfg.CompanySize,
			MarketPosition: cfg.CompanyMarketPosition,
			Strengths:      cfg.CompanyStrengths,
			Markets:        cfg.Regions,
			Resources:      cfg.CompanyResources,
		},
	}
	for _, name := range cfg.Competitors {
		req.Competitors = append(req.Competitors, model.Competitor{Name: name})
	}
	return req
}
