package llm

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/provider"
)

const defaultUrgencyHours = 168

func stringList(r gjson.Result) []string {
	out := []string{}
	for _, v := range r.Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func priority(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return model.PriorityCritical
	case "high":
		return model.PriorityHigh
	case "low":
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

// parseAction reads one action object. A missing title makes it malformed.
func parseAction(r gjson.Result) (model.ActionRecommendation, error) {
	title := strings.TrimSpace(r.Get("title").String())
	if !r.IsObject() || title == "" {
		return model.ActionRecommendation{}, fmt.Errorf("%w: action without title", provider.ErrMalformedResponse)
	}
	hours := int(r.Get("urgency_hours").Int())
	if hours <= 0 {
		hours = defaultUrgencyHours
	}
	return model.ActionRecommendation{
		Title:               title,
		Priority:            priority(r.Get("priority").String()),
		Category:            r.Get("category").String(),
		UrgencyHours:        hours,
		Description:         r.Get("description").String(),
		ExpectedImpact:      r.Get("expected_impact").String(),
		Confidence:          clamp01(r.Get("confidence").Float()),
		ImplementationSteps: stringList(r.Get("implementation_steps")),
		SuccessMetrics:      stringList(r.Get("success_metrics")),
		Risks:               stringList(r.Get("risks")),
	}, nil
}

func companyLine(c model.CompanyProfile) string {
	return fmt.Sprintf("COMPANY CONTEXT: size=%s, position=%s, strengths=%s, markets=%s",
		c.Size, c.MarketPosition, strings.Join(c.Strengths, ", "), strings.Join(c.Markets, ", "))
}
