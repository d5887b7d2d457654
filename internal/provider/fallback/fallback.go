// Package fallback implements the deterministic, offline variant of every
// capability. Outputs follow the same schema as the rich variants.
package fallback

import (
	"time"

	"github.com/okian/compintel/internal/domain/scoring"
	"github.com/okian/compintel/internal/provider"
)

// Option configures the fallback providers.
type Option func(*options)

type options struct {
	now    func() time.Time
	scorer *scoring.HeuristicScorer
}

// WithClock sets the time source used for synthesized items.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithScorer replaces the heuristic scorer.
func WithScorer(s *scoring.HeuristicScorer) Option {
	return func(o *options) {
		if s != nil {
			o.scorer = s
		}
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.scorer == nil {
		o.scorer = scoring.NewHeuristicScorer()
	}
	return o
}

// New returns the full set of fallback providers.
func New(opts ...Option) provider.Fallbacks {
	o := newOptions(opts)
	return provider.Fallbacks{
		Retriever:   &Retriever{now: o.now},
		Classifier:  &Classifier{},
		Scorer:      &Scorer{heuristic: o.scorer},
		Analyst:     &Analyst{},
		Recommender: &Recommender{},
	}
}
