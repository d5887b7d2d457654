package fallback

import (
	"context"

	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/domain/scoring"
	"github.com/okian/compintel/internal/provider"
)

// Scorer adapts the heuristic impact scorer to the provider contract.
type Scorer struct {
	heuristic *scoring.HeuristicScorer
}

// Variant implements provider.Named.
func (*Scorer) Variant() string { return provider.VariantFallback }

// Score rates ev with the keyword rules and brand boost.
func (s *Scorer) Score(ctx context.Context, ev model.ClassifiedEvent) (provider.Impact, error) {
	comp := ev.Competitor
	if comp == "" {
		if companies := ev.Entities["companies"]; len(companies) > 0 {
			comp = companies[0]
		}
	}
	r, err := s.heuristic.Score(ctx, scoring.Input{
		Competitor:  comp,
		EventType:   ev.EventType,
		Description: ev.Description,
	})
	if err != nil {
		return provider.Impact{}, err
	}
	return provider.Impact{
		Impact:    r.Impact,
		Urgency:   r.Urgency,
		Breakdown: r.Breakdown,
		Reasoning: r.Reasoning,
	}, nil
}
