// Package provider declares the capability contracts each pipeline stage
// delegates to. Every capability has a rich, network backed variant and a
// deterministic fallback with the same output schema.
package provider

import (
	"context"

	"github.com/okian/compintel/internal/domain/model"
)

// Capability names, used in logs and metrics.
const (
	CapRetriever   = "retriever"
	CapClassifier  = "classifier"
	CapScorer      = "scorer"
	CapAnalyst     = "analyst"
	CapRecommender = "recommender"
	CapAggregator  = "aggregator"
)

// Variant labels.
const (
	VariantRich     = "rich"
	VariantFallback = "fallback"
)

// Retrieval holds the items a retriever found, before and after cleaning.
type Retrieval struct {
	Raw   []model.RawItem
	Clean []model.RawItem
}

// Items prefers cleaned items over raw ones.
func (r Retrieval) Items() []model.RawItem {
	if len(r.Clean) > 0 {
		return r.Clean
	}
	return r.Raw
}

// ClassifyInput is one event to classify.
type ClassifyInput struct {
	Event model.NormalizedEvent
	Title string
	Text  string
	Link  string
}

// Classification is a classifier's verdict.
type Classification struct {
	EventType  string
	Confidence float64
	Reasoning  string
	Entities   map[string][]string
	Metadata   map[string]string
}

// Impact is a scorer's verdict.
type Impact struct {
	Impact    float64
	Urgency   string
	Breakdown map[string]float64
	Reasoning string
}

// RecommendInput is everything a recommender sees for one event.
type RecommendInput struct {
	Event            model.NormalizedEvent
	Impact           float64
	StrategicContext string
	Company          model.CompanyProfile
	Focus            string
}

// AggregateInput is everything an aggregator sees for one run.
type AggregateInput struct {
	Strategic []model.StrategicEvent
	Company   model.CompanyProfile
	Focus     string
}

// Enrichment holds optional replacements for parts of the aggregated plan.
type Enrichment struct {
	ExecutiveSummary string
	GeneralAction    *model.ActionRecommendation
}

// Named reports which variant implements a capability.
type Named interface {
	Variant() string
}

// Retriever finds news items for the requested competitors.
type Retriever interface {
	Named
	Retrieve(ctx context.Context, req model.Request) (Retrieval, error)
}

// Classifier assigns an event type.
type Classifier interface {
	Named
	Classify(ctx context.Context, in ClassifyInput) (Classification, error)
}

// Scorer estimates business impact.
type Scorer interface {
	Named
	Score(ctx context.Context, ev model.ClassifiedEvent) (Impact, error)
}

// Analyst writes strategic commentary. Analyze blocks until the analysis
// completes or ctx is done.
type Analyst interface {
	Named
	Analyze(ctx context.Context, ev model.ScoredEvent) (model.Strategic, error)
}

// Recommender proposes actions for one event.
type Recommender interface {
	Named
	Recommend(ctx context.Context, in RecommendInput) ([]model.ActionRecommendation, error)
}

// Aggregator enriches the cross-event plan.
type Aggregator interface {
	Named
	Enrich(ctx context.Context, in AggregateInput) (Enrichment, error)
}

// Fallbacks is the always available deterministic variant of every capability.
type Fallbacks struct {
	Retriever   Retriever
	Classifier  Classifier
	Scorer      Scorer
	Analyst     Analyst
	Recommender Recommender
}

// Set is the resolved provider selection for one run. Aggregator is nil when
// no rich aggregation backend is available.
type Set struct {
	Retriever   Retriever
	Classifier  Classifier
	Scorer      Scorer
	Analyst     Analyst
	Recommender Recommender
	Aggregator  Aggregator

	Fallback Fallbacks
}

// FallbackOnly returns a set that uses the fallback variant everywhere.
func (s Set) FallbackOnly() Set {
	return Set{
		Retriever:   s.Fallback.Retriever,
		Classifier:  s.Fallback.Classifier,
		Scorer:      s.Fallback.Scorer,
		Analyst:     s.Fallback.Analyst,
		Recommender: s.Fallback.Recommender,
		Fallback:    s.Fallback,
	}
}

// Variants reports the variant used per capability.
func (s Set) Variants() map[string]string {
	out := map[string]string{
		CapRetriever:   variantOf(s.Retriever),
		CapClassifier:  variantOf(s.Classifier),
		CapScorer:      variantOf(s.Scorer),
		CapAnalyst:     variantOf(s.Analyst),
		CapRecommender: variantOf(s.Recommender),
		CapAggregator:  "none",
	}
	if s.Aggregator != nil {
		out[CapAggregator] = s.Aggregator.Variant()
	}
	return out
}

func variantOf(n Named) string {
	if n == nil {
		return "none"
	}
	return n.Variant()
}
