package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/domain/scoring"
	"github.com/okian/compintel/internal/provider"
)

const scoreSystem = "You estimate the business impact of competitor moves on a smartphone OEM. Return JSON only."

// Scorer asks the model for an impact score.
type Scorer struct {
	client *Client
}

// NewScorer wraps client.
func NewScorer(client *Client) *Scorer { return &Scorer{client: client} }

// Variant implements provider.Named.
func (*Scorer) Variant() string { return provider.VariantRich }

// Score clamps the model's impact to the valid range and derives urgency when
// the model's label is unknown.
func (s *Scorer) Score(ctx context.Context, ev model.ClassifiedEvent) (provider.Impact, error) {
	var b strings.Builder
	b.WriteString("Rate the impact of this event on a scale of 0 to 10.\n")
	b.WriteString(`Return {"impact": number, "urgency": "immediate|high|medium|low", ` +
		`"breakdown": {"market": number, "product": number, "timing": number}, "reasoning": str}.` + "\n\n")
	fmt.Fprintf(&b, "COMPETITOR: %s\nEVENT TYPE: %s\nREGION: %s\nDESCRIPTION: %s\n",
		ev.Competitor, ev.EventType, ev.Region, ev.Description)

	res, err := s.client.Complete(ctx, scoreSystem, b.String(), 0)
	if err != nil {
		return provider.Impact{}, fmt.Errorf("score: %w", err)
	}
	raw := res.Get("impact")
	if raw.Type != gjson.Number {
		return provider.Impact{}, fmt.Errorf("score: %w: missing impact", provider.ErrMalformedResponse)
	}
	impact := scoring.Round1(scoring.Clamp(raw.Float()))

	breakdown := map[string]float64{}
	res.Get("breakdown").ForEach(func(k, v gjson.Result) bool {
		if v.Type == gjson.Number {
			breakdown[k.String()] = v.Float()
		}
		return true
	})

	return provider.Impact{
		Impact:    impact,
		Urgency:   scoring.Urgency(impact),
		Breakdown: breakdown,
		Reasoning: res.Get("reasoning").String(),
	}, nil
}
