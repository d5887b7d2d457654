package fallback

import (
	"context"
	"strings"

	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/provider"
)

// Classifier assigns event types by keyword rules.
type Classifier struct{}

// Variant implements provider.Named.
func (*Classifier) Variant() string { return provider.VariantFallback }

// EventType returns the first rule whose keywords occur in text.
func EventType(text string) string {
	t := strings.ToLower(text)
	for _, r := range rules.Classification.Rules {
		if containsAny(t, r.Keywords) {
			return r.EventType
		}
	}
	return model.EventUnknown
}

// Classify never fails.
func (*Classifier) Classify(_ context.Context, in provider.ClassifyInput) (provider.Classification, error) {
	ev := in.Event
	entities := map[string][]string{"companies": {}, "locations": {}}
	if ev.Competitor != "" {
		entities["companies"] = []string{ev.Competitor}
	}
	if ev.Region != "" {
		entities["locations"] = []string{ev.Region}
	}
	return provider.Classification{
		EventType:  EventType(in.Text),
		Confidence: rules.Classification.Confidence,
		Reasoning:  rules.Classification.Reasoning,
		Entities:   entities,
		Metadata: map[string]string{
			"source": ev.Source,
			"id":     ev.ID,
		},
	}, nil
}
