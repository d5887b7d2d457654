package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/provider"
)

const classifySystem = "You classify competitor news for a smartphone OEM. Return JSON only."

var eventTypes = []string{
	model.EventProductLaunch,
	model.EventPricingChange,
	model.EventMarketingCampaign,
	model.EventExpansion,
	model.EventPartnership,
	model.EventUnknown,
}

// Classifier asks the model for an event type and extracted entities.
type Classifier struct {
	client *Client
}

// NewClassifier wraps client.
func NewClassifier(client *Client) *Classifier { return &Classifier{client: client} }

// Variant implements provider.Named.
func (*Classifier) Variant() string { return provider.VariantRich }

// Classify returns the model's classification of in.Text.
func (c *Classifier) Classify(ctx context.Context, in provider.ClassifyInput) (provider.Classification, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Classify this news item into one of: %s.\n", strings.Join(eventTypes, ", "))
	b.WriteString(`Return {"event_type": str, "confidence": 0..1, "reasoning": str, ` +
		`"entities": {"companies": [str], "locations": [str], "products": [str]}}.` + "\n\n")
	if in.Title != "" {
		fmt.Fprintf(&b, "TITLE: %s\n", in.Title)
	}
	fmt.Fprintf(&b, "TEXT: %s\n", in.Text)
	if in.Event.Competitor != "" {
		fmt.Fprintf(&b, "COMPETITOR: %s\n", in.Event.Competitor)
	}

	res, err := c.client.Complete(ctx, classifySystem, b.String(), 0)
	if err != nil {
		return provider.Classification{}, fmt.Errorf("classify: %w", err)
	}
	eventType := strings.ToLower(strings.TrimSpace(res.Get("event_type").String()))
	if eventType == "" {
		return provider.Classification{}, fmt.Errorf("classify: %w: missing event_type", provider.ErrMalformedResponse)
	}

	entities := map[string][]string{"companies": {}, "locations": {}}
	res.Get("entities").ForEach(func(k, v gjson.Result) bool {
		entities[k.String()] = stringList(v)
		return true
	})
	if len(entities["companies"]) == 0 && in.Event.Competitor != "" {
		entities["companies"] = []string{in.Event.Competitor}
	}
	if len(entities["locations"]) == 0 && in.Event.Region != "" {
		entities["locations"] = []string{in.Event.Region}
	}

	return provider.Classification{
		EventType:  strings.ReplaceAll(eventType, " ", "_"),
		Confidence: clamp01(res.Get("confidence").Float()),
		Reasoning:  res.Get("reasoning").String(),
		Entities:   entities,
		Metadata: map[string]string{
			"source": in.Event.Source,
			"id":     in.Event.ID,
			"link":   in.Link,
			"model":  c.client.model,
		},
	}, nil
}
