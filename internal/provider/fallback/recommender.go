package fallback

import (
	"context"
	"strings"

	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/provider"
)

// Recommender returns the three fixed response actions.
type Recommender struct{}

// Variant implements provider.Named.
func (*Recommender) Variant() string { return provider.VariantFallback }

// Recommend never fails and always returns one action per template.
func (*Recommender) Recommend(_ context.Context, in provider.RecommendInput) ([]model.ActionRecommendation, error) {
	eventLabel := "event"
	if in.Event.EventType != "" {
		eventLabel = strings.ReplaceAll(in.Event.EventType, "_", " ")
	}
	comp := in.Event.Competitor
	if comp == "" {
		comp = "Competitor"
	}
	suffix := ""
	if f := strings.TrimSpace(in.Focus); f != "" {
		suffix = " Focus: " + f
	}
	high := in.Impact >= rules.Actions.HighImpact
	title := strings.NewReplacer("{competitor}", comp, "{event}", eventLabel)

	out := make([]model.ActionRecommendation, 0, len(rules.Actions.Templates))
	for _, t := range rules.Actions.Templates {
		out = append(out, model.ActionRecommendation{
			Title:               title.Replace(t.Title),
			Priority:            t.Priority.pick(high),
			Category:            t.Category,
			UrgencyHours:        t.UrgencyHours.pick(high),
			Description:         t.Description + suffix,
			ExpectedImpact:      t.ExpectedImpact,
			Confidence:          t.Confidence,
			ImplementationSteps: append([]string(nil), t.Steps...),
			SuccessMetrics:      append([]string(nil), t.Metrics...),
			Risks:               append([]string(nil), t.Risks...),
		})
	}
	return out, nil
}
