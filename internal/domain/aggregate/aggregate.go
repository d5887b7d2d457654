// Package aggregate builds the cross-event strategic plan of a run.
package aggregate

import (
	"strings"

	"github.com/okian/compintel/internal/domain/model"
)

const (
	maxOverview   = 1000
	maxSummary    = 800
	maxThreats    = 6
	maxTopActions = 20
)

// CannedSummary is used when no event produced strategic context.
const CannedSummary = "Competitive intensity remains elevated across launches, pricing, and channel visibility. " +
	"Our plan: (1) defend value where we win today, (2) over-invest in operator/retail presence to capture mindshare, " +
	"and (3) accelerate camera/AI differentiation in the next wave. " +
	"Over 90 days, sequence counter-moves to convert demand at shelf, blunt price aggression without margin leakage, " +
	"and communicate proof-points that matter by region."

// Pillars returns the fixed strategic pillars.
func Pillars() []string {
	return []string{
		"Defend value with selective promos and clear superiority claims",
		"Deepen operator/retail partnerships for end-cap and bundle visibility",
		"Accelerate camera/AI differentiators in next launch wave",
		"Strengthen after-sales and trade-in to reduce churn",
		"Double down on regional hero SKUs aligned to price bands",
	}
}

// GeneralAction returns the 90-day cross-event action template.
func GeneralAction() model.ActionRecommendation {
	return model.ActionRecommendation{
		Title:        "Win the shelf and blunt price plays in 90 days",
		Priority:     model.PriorityHigh,
		UrgencyHours: 720,
		Description: "Sequence counter-moves to convert demand at shelf: targeted promos on hero SKUs, " +
			"creator-led proofs vs launches, and fast-tracked operator bundles in two priority regions.",
		ImplementationSteps: []string{
			"Lock operator/retail end-caps and co-op calendars in 2 regions",
			"Run camera/AI proof content with creators within 2 weeks",
			"Deploy tightly-scoped promos on budget/mid hero SKUs with ROI guardrails",
		},
		SuccessMetrics: []string{"Sell-through uplift", "Share-of-voice at shelf", "Promo ROI > target"},
		Risks:          []string{"Margin compression", "Channel conflicts"},
	}
}

// CombinedContext joins every non-empty strategic context, trailing periods stripped.
func CombinedContext(events []model.FinalEvent) string {
	parts := make([]string, 0, len(events))
	for _, ev := range events {
		c := ev.Strategic.StrategicContext
		if c == "" {
			continue
		}
		parts = append(parts, strings.TrimRight(strings.TrimSpace(c), "."))
	}
	return strings.Join(parts, ". ")
}

// Threats derives deduplicated threat statements from scored events.
func Threats(events []model.ScoredEvent) []string {
	seen := make(map[string]struct{})
	out := []string{}
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, ev := range events {
		et := strings.ToLower(ev.EventType)
		comp := ev.Competitor
		if strings.Contains(et, "pricing") {
			add("Pricing pressure from " + comp)
		}
		if strings.Contains(et, "launch") {
			add("Flagship launch momentum by " + comp)
		}
		if strings.Contains(et, "partnership") || strings.Contains(strings.ToLower(ev.Description), "operator") {
			add("Operator/retail visibility shift toward " + comp)
		}
	}
	if len(out) > maxThreats {
		out = out[:maxThreats]
	}
	return out
}

// Build assembles the plan from the actioned events and every scored event.
func Build(final []model.FinalEvent, scored []model.ScoredEvent) model.AggregatedPlan {
	combined := CombinedContext(final)
	summary := Truncate(combined, maxSummary)
	if summary == "" {
		summary = CannedSummary
	}

	top := []model.ActionRecommendation{}
	for _, ev := range final {
		for _, a := range ev.Actions {
			if len(top) == maxTopActions {
				break
			}
			top = append(top, a)
		}
	}

	return model.AggregatedPlan{
		StrategyOverview: Truncate(combined, maxOverview),
		TopActions:       top,
		DetailedPlan: model.DetailedPlan{
			ExecutiveSummary: summary,
			StrategicPillars: Pillars(),
			Threats:          Threats(scored),
		},
		GeneralAction: GeneralAction(),
	}
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
