package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/compintel/internal/domain/aggregate"
	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/provider"
)

const (
	recommendSystem = "You recommend concrete responses to competitor moves for a smartphone OEM. Return JSON only."
	contextChars    = 600
)

// Recommender asks the model for prioritized actions.
type Recommender struct {
	client *Client
}

// NewRecommender wraps client.
func NewRecommender(client *Client) *Recommender { return &Recommender{client: client} }

// Variant implements provider.Named.
func (*Recommender) Variant() string { return provider.VariantRich }

// Recommend fails when the model returns no usable action.
func (r *Recommender) Recommend(ctx context.Context, in provider.RecommendInput) ([]model.ActionRecommendation, error) {
	var b strings.Builder
	b.WriteString("Recommend 2 to 4 actions in response to this competitor event.\n")
	b.WriteString(`Return {"actions": [{"title": str, "priority": "Critical|High|Medium|Low", "category": str, ` +
		`"urgency_hours": int, "description": str, "expected_impact": str, "confidence": 0..1, ` +
		`"implementation_steps": [str], "success_metrics": [str], "risks": [str]}]}.` + "\n\n")
	b.WriteString(companyLine(in.Company) + "\n")
	if in.Focus != "" {
		fmt.Fprintf(&b, "FOCUS: %s\n", in.Focus)
	}
	fmt.Fprintf(&b, "EVENT: %s %s (impact %.1f): %s\n",
		in.Event.Competitor, in.Event.EventType, in.Impact, in.Event.Description)
	if in.StrategicContext != "" {
		fmt.Fprintf(&b, "CONTEXT: %s\n", aggregate.Truncate(in.StrategicContext, contextChars))
	}

	res, err := r.client.Complete(ctx, recommendSystem, b.String(), 0.2)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	items := res.Get("actions").Array()
	out := make([]model.ActionRecommendation, 0, len(items))
	for _, it := range items {
		a, err := parseAction(it)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("recommend: %w: no actions", provider.ErrMalformedResponse)
	}
	return out, nil
}
