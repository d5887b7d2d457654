// Package registry resolves which variant serves each capability.
package registry

import (
	"context"
	"time"

	"github.com/okian/compintel/internal/provider"
	"github.com/okian/compintel/internal/provider/fallback"
	"github.com/okian/compintel/internal/provider/llm"
	"github.com/okian/compintel/internal/provider/news"
	"github.com/okian/compintel/pkg/logger"
	"github.com/okian/compintel/pkg/metrics"
)

// Modes holds the selection mode of every capability.
type Modes struct {
	Retriever   provider.Mode
	Classifier  provider.Mode
	Scorer      provider.Mode
	Analyst     provider.Mode
	Recommender provider.Mode
	Aggregator  provider.Mode
}

// Options configures Resolve.
type Options struct {
	Modes     Modes
	LLM       llm.Config
	News      news.Config
	Fallbacks []fallback.Option
	Logger    logger.Logger
	Now       func() time.Time
}

// Resolve builds the provider set of one run. A capability uses its rich
// variant when its mode asks for it and the rich constructor succeeds;
// otherwise the fallback serves it. Resolve never fails.
func Resolve(ctx context.Context, opts Options) provider.Set {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	fbOpts := opts.Fallbacks
	if opts.Now != nil {
		fbOpts = append([]fallback.Option{fallback.WithClock(opts.Now)}, fbOpts...)
	}
	fb := fallback.New(fbOpts...)
	set := provider.Set{
		Retriever:   fb.Retriever,
		Classifier:  fb.Classifier,
		Scorer:      fb.Scorer,
		Analyst:     fb.Analyst,
		Recommender: fb.Recommender,
		Fallback:    fb,
	}

	unavailable := func(capability string, err error) {
		log.Debug(ctx, "rich provider unavailable, using fallback",
			logger.String("capability", capability), logger.Error(err))
		metrics.RecordProviderFallback(capability, "unavailable")
	}

	if opts.Modes.Retriever.Wants(opts.News.APIKey != "") {
		cfg := opts.News
		if cfg.Now == nil {
			cfg.Now = opts.Now
		}
		if r, err := news.New(cfg); err != nil {
			unavailable(provider.CapRetriever, err)
		} else {
			set.Retriever = r
		}
	}

	hasKey := opts.LLM.APIKey != ""
	var client *llm.Client
	clientFor := func(capability string, mode provider.Mode) *llm.Client {
		if !mode.Wants(hasKey) {
			return nil
		}
		if client == nil {
			c, err := llm.NewClient(opts.LLM)
			if err != nil {
				unavailable(capability, err)
				return nil
			}
			client = c
		}
		return client
	}

	if c := clientFor(provider.CapClassifier, opts.Modes.Classifier); c != nil {
		set.Classifier = llm.NewClassifier(c)
	}
	if c := clientFor(provider.CapScorer, opts.Modes.Scorer); c != nil {
		set.Scorer = llm.NewScorer(c)
	}
	if c := clientFor(provider.CapAnalyst, opts.Modes.Analyst); c != nil {
		set.Analyst = llm.NewAnalyst(c)
	}
	if c := clientFor(provider.CapRecommender, opts.Modes.Recommender); c != nil {
		set.Recommender = llm.NewRecommender(c)
	}
	if c := clientFor(provider.CapAggregator, opts.Modes.Aggregator); c != nil {
		set.Aggregator = llm.NewAggregator(c)
	}

	log.Debug(ctx, "providers resolved", logger.Any("variants", set.Variants()))
	return set
}
