package fallback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/provider"
)

// Retriever synthesizes deterministic demo items.
type Retriever struct {
	now func() time.Time
}

// Variant implements provider.Named.
func (*Retriever) Variant() string { return provider.VariantFallback }

// Retrieve cycles competitors, regions and templates. Item ages grow with the
// iteration index and stay inside the lookback window.
func (r *Retriever) Retrieve(ctx context.Context, req model.Request) (provider.Retrieval, error) {
	if err := ctx.Err(); err != nil {
		return provider.Retrieval{}, fmt.Errorf("synthesize: %w", err)
	}
	cfg := rules.Retrieval
	comps := req.CompetitorNames()
	if len(comps) == 0 {
		comps = cfg.Competitors
	}
	regions := req.Regions
	if len(regions) == 0 {
		regions = cfg.Regions
	}
	maxItems := req.Config.MaxArticlesPerCompany
	if maxItems <= 0 {
		maxItems = cfg.MaxItems
	}
	days := req.Config.SearchTimeframeDays
	if days <= 0 {
		days = cfg.Days
	}

	now := r.now()
	items := make([]model.RawItem, 0, len(comps)*maxItems)
	for idx, comp := range comps {
		for i := 0; i < maxItems; i++ {
			region := regions[(idx+i)%len(regions)]
			t := cfg.Templates[(idx+i)%len(cfg.Templates)]
			age := max(0, min(days*24-1, (idx+i)*cfg.StepHours))
			items = append(items, model.RawItem{
				Title:     fmt.Sprintf("%s %s in %s", comp, t.Label, region),
				Summary:   strings.ReplaceAll(t.Summary, "{region}", region),
				Company:   comp,
				Region:    region,
				Published: now.Add(-time.Duration(age) * time.Hour).Format(time.RFC3339),
				Source:    comp + " News",
				Link: fmt.Sprintf("https://example.com/%s-%s-%s",
					strings.ToLower(comp), t.EventType, strings.ToLower(region)),
			})
		}
	}
	return provider.Retrieval{Raw: items}, nil
}
