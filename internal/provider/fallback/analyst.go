package fallback

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/compintel/internal/domain/aggregate"
	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/provider"
)

const defaultSubject = "a competitor"

// Analyst writes templated strategic commentary.
type Analyst struct{}

// Variant implements provider.Named.
func (*Analyst) Variant() string { return provider.VariantFallback }

// Analyze never blocks and never fails.
func (*Analyst) Analyze(_ context.Context, ev model.ScoredEvent) (model.Strategic, error) {
	a := rules.Analysis
	eventType := strings.ReplaceAll(ev.EventType, "_", " ")
	comp := ev.Competitor
	if comp == "" {
		comp = defaultSubject
	}
	desc := aggregate.Truncate(ev.Description, a.ContextChars)
	context := fmt.Sprintf("%s %s: %s.", comp, eventType, desc)

	et := strings.ToLower(eventType)
	d := strings.ToLower(desc)
	recs := a.Default
	for _, p := range a.Playbooks {
		if containsAny(et, p.EventType) || containsAny(d, p.Description) {
			recs = p.Recommendations
			if p.Focus != "" {
				context += " Focus: " + p.Focus
			}
			break
		}
	}

	return model.Strategic{
		StrategicContext:        context,
		Recommendations:         append([]string(nil), recs...),
		BroaderTrends:           append([]string(nil), a.BroaderTrends...),
		CompetitiveImplications: a.Implications,
	}, nil
}
