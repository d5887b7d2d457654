package model

import "time"

// Competitor is one company to watch. Order in a Request is significant.
type Competitor struct {
	Name    string            `json:"name"`
	Profile map[string]string `json:"profile,omitempty"`
}

// RunConfig tunes retrieval and recommendations.
type RunConfig struct {
	SearchTimeframeDays   int    `json:"search_timeframe_days"`
	MaxArticlesPerCompany int    `json:"max_articles_per_company"`
	RecommendationFocus   string `json:"recommendation_focus,omitempty"`
}

// CompanyProfile describes our own company.
type CompanyProfile struct {
	Size           string   `json:"size"`
	MarketPosition string   `json:"market_position"`
	Strengths      []string `json:"strengths"`
	Markets        []string `json:"markets"`
	Resources      string   `json:"resources,omitempty"`
}

// Request is the input of one pipeline run.
type Request struct {
	Competitors    []Competitor   `json:"competitors"`
	Regions        []string       `json:"regions"`
	Config         RunConfig      `json:"config"`
	CompanyProfile CompanyProfile `json:"company_profile"`
}

// CompetitorNames returns competitor names in request order.
func (r Request) CompetitorNames() []string {
	out := make([]string, 0, len(r.Competitors))
	for _, c := range r.Competitors {
		if c.Name != "" {
			out = append(out, c.Name)
		}
	}
	return out
}

// Count is one bucket of a frequency ordered distribution.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// TrendInsight is an informational aggregate over classified events.
type TrendInsight struct {
	Title        string  `json:"title"`
	Type         string  `json:"type"`
	Significance string  `json:"significance"`
	Confidence   float64 `json:"confidence"`
	Data         []Count `json:"data"`
}

// ReportSummary holds the headline numbers of a daily report.
type ReportSummary struct {
	TotalEvents        int      `json:"total_events"`
	TodayEvents        int      `json:"today_events"`
	CriticalOrHigh     int      `json:"critical_or_high"`
	CompaniesMentioned []string `json:"companies_mentioned"`
}

// CriticalEvent is a digest of an urgent event.
type CriticalEvent struct {
	Title      string  `json:"title"`
	Competitor string  `json:"competitor"`
	EventType  string  `json:"event_type"`
	Impact     float64 `json:"impact"`
	Urgency    string  `json:"urgency"`
}

// DailyReport is the brief consumed by export collaborators.
type DailyReport struct {
	ReportType     string          `json:"report_type"`
	Date           string          `json:"date"`
	Summary        ReportSummary   `json:"summary"`
	CriticalEvents []CriticalEvent `json:"critical_events"`
}

// ResultBag is everything a run produced.
type ResultBag struct {
	Raw         []RawItem         `json:"raw"`
	Classified  []ClassifiedEvent `json:"classified"`
	Trends      []TrendInsight    `json:"trends"`
	Scored      []ScoredEvent     `json:"scored"`
	Strategic   []StrategicEvent  `json:"strategic"`
	Final       []FinalEvent      `json:"final"`
	Aggregated  AggregatedPlan    `json:"aggregated"`
	DailyReport DailyReport       `json:"daily_report"`
}

// Empty reports whether the run produced no usable output.
func (b ResultBag) Empty() bool {
	return len(b.Raw) == 0 && len(b.Classified) == 0 && len(b.Final) == 0
}

// Run statuses.
const (
	RunQueued    = "queued"
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run is one submitted pipeline execution as tracked by the service.
type Run struct {
	ID         string     `json:"id"`
	RequestID  string     `json:"request_id,omitempty"`
	Status     string     `json:"status"`
	Request    Request    `json:"request"`
	Result     *ResultBag `json:"result,omitempty"`
	Fallback   bool       `json:"fallback"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt time.Time  `json:"finished_at,omitempty"`
}
