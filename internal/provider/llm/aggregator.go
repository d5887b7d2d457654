package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/compintel/internal/domain/aggregate"
	"github.com/okian/compintel/internal/provider"
)

const (
	aggregateSystem = "Return JSON only. Be specific and directive."
	maxEvents       = 20
	descChars       = 200
	ctxChars        = 300
)

// Aggregator writes a board-ready executive summary and one general action.
type Aggregator struct {
	client *Client
}

// NewAggregator wraps client.
func NewAggregator(client *Client) *Aggregator { return &Aggregator{client: client} }

// Variant implements provider.Named.
func (*Aggregator) Variant() string { return provider.VariantRich }

// Enrich returns only the parts the model produced in the expected shape.
func (a *Aggregator) Enrich(ctx context.Context, in provider.AggregateInput) (provider.Enrichment, error) {
	var b strings.Builder
	b.WriteString("You are a senior strategy assistant for a smartphone OEM.\n")
	b.WriteString("Given these competitive signals, produce:\n")
	b.WriteString("1) Executive Summary (3-5 sentences, board-ready, directive, no fluff).\n")
	b.WriteString("2) One General Action Recommendation object with: title, priority (Critical/High/...), " +
		"urgency_hours, description, implementation_steps(3-6), success_metrics(3-5), risks(2-4).\n")
	b.WriteString(`Return ONLY valid JSON with keys {"executive_summary": str, "general_action": { ... }}.` + "\n\n")
	b.WriteString(companyLine(in.Company) + "\n")
	if in.Focus != "" {
		fmt.Fprintf(&b, "FOCUS: %s\n", in.Focus)
	}
	b.WriteString("EVENTS:\n")
	for i, ev := range in.Strategic {
		if i == maxEvents {
			break
		}
		fmt.Fprintf(&b, "- %s %s (impact %.1f): %s | ctx: %s\n",
			ev.Competitor, ev.EventType, ev.Impact,
			aggregate.Truncate(ev.Description, descChars),
			aggregate.Truncate(ev.Strategic.StrategicContext, ctxChars))
	}

	res, err := a.client.Complete(ctx, aggregateSystem, b.String(), 0.2)
	if err != nil {
		return provider.Enrichment{}, fmt.Errorf("aggregate: %w", err)
	}

	var out provider.Enrichment
	if s := res.Get("executive_summary"); s.Type == gjson.String {
		out.ExecutiveSummary = strings.TrimSpace(s.String())
	}
	if ga := res.Get("general_action"); ga.IsObject() {
		if action, err := parseAction(ga); err == nil {
			out.GeneralAction = &action
		}
	}
	if out.ExecutiveSummary == "" && out.GeneralAction == nil {
		return provider.Enrichment{}, fmt.Errorf("aggregate: %w: nothing usable", provider.ErrMalformedResponse)
	}
	return out, nil
}
