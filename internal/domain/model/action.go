package model

// Action priorities.
const (
	PriorityLow      = "Low"
	PriorityMedium   = "Medium"
	PriorityHigh     = "High"
	PriorityCritical = "Critical"
)

// ActionRecommendation is a prioritized response to one or more events.
type ActionRecommendation struct {
	Title               string   `json:"title"`
	Priority            string   `json:"priority"`
	Category            string   `json:"category,omitempty"`
	UrgencyHours        int      `json:"urgency_hours"`
	Description         string   `json:"description"`
	ExpectedImpact      string   `json:"expected_impact,omitempty"`
	Confidence          float64  `json:"confidence,omitempty"`
	ImplementationSteps []string `json:"implementation_steps"`
	SuccessMetrics      []string `json:"success_metrics"`
	Risks               []string `json:"risks"`
}

// DetailedPlan is the cross-event part of the aggregated plan.
type DetailedPlan struct {
	ExecutiveSummary string   `json:"executive_summary"`
	StrategicPillars []string `json:"strategic_pillars"`
	Threats          []string `json:"threats"`
}

// AggregatedPlan is the strategy built from all events of a run.
type AggregatedPlan struct {
	StrategyOverview string                 `json:"strategy_overview"`
	TopActions       []ActionRecommendation `json:"top_actions"`
	DetailedPlan     DetailedPlan           `json:"detailed_plan"`
	GeneralAction    ActionRecommendation   `json:"general_action"`
}
