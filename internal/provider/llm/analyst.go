package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/provider"
)

const analyzeSystem = "You are a senior strategy analyst for a smartphone OEM. Return JSON only. Be specific."

// Analyst asks the model for strategic commentary.
type Analyst struct {
	client *Client
}

// NewAnalyst wraps client.
func NewAnalyst(client *Client) *Analyst { return &Analyst{client: client} }

// Variant implements provider.Named.
func (*Analyst) Variant() string { return provider.VariantRich }

// Analyze blocks until the model answers or ctx is done.
func (a *Analyst) Analyze(ctx context.Context, ev model.ScoredEvent) (model.Strategic, error) {
	var b strings.Builder
	b.WriteString("Analyze the strategic meaning of this competitor event.\n")
	b.WriteString(`Return {"strategic_context": str, "recommendations": [str], ` +
		`"broader_trends": [str], "competitive_implications": str}.` + "\n\n")
	fmt.Fprintf(&b, "COMPETITOR: %s\nEVENT TYPE: %s\nIMPACT: %.1f (%s)\nDESCRIPTION: %s\n",
		ev.Competitor, ev.EventType, ev.Impact, ev.Urgency, ev.Description)

	res, err := a.client.Complete(ctx, analyzeSystem, b.String(), 0.2)
	if err != nil {
		return model.Strategic{}, fmt.Errorf("analyze: %w", err)
	}
	sc := strings.TrimSpace(res.Get("strategic_context").String())
	if sc == "" {
		return model.Strategic{}, fmt.Errorf("analyze: %w: missing strategic_context", provider.ErrMalformedResponse)
	}
	return model.Strategic{
		StrategicContext:        sc,
		Recommendations:         stringList(res.Get("recommendations")),
		BroaderTrends:           stringList(res.Get("broader_trends")),
		CompetitiveImplications: res.Get("competitive_implications").String(),
	}, nil
}
