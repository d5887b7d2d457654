// Package model contains domain models passed between layers.
package model

import "time"

// Event types of the fixed taxonomy. Rich classifiers may return others.
const (
	EventProductLaunch     = "product_launch"
	EventPricingChange     = "pricing_change"
	EventMarketingCampaign = "marketing_campaign"
	EventExpansion         = "expansion"
	EventPartnership       = "partnership"
	EventUnknown           = "unknown"
)

// Urgency levels derived from impact.
const (
	UrgencyImmediate = "immediate"
	UrgencyHigh      = "high"
	UrgencyMedium    = "medium"
	UrgencyLow       = "low"
)

// UnknownCompetitor is used when no competitor can be resolved.
const UnknownCompetitor = "Unknown"

// Record is a heterogeneous, partially filled event keyed by loose field names.
type Record map[string]any

// String returns the string value of key, or "" when absent or not a string.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// RawItem is an unstructured source record produced by retrieval.
type RawItem struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Company   string `json:"company"`
	Region    string `json:"region"`
	Published string `json:"published"`
	Source    string `json:"source"`
	Link      string `json:"link"`
}

// Record maps the item onto the loose keys understood by the normalizer.
func (i RawItem) Record() Record {
	return Record{
		"title":     i.Title,
		"summary":   i.Summary,
		"company":   i.Company,
		"region":    i.Region,
		"published": i.Published,
		"source":    i.Source,
		"link":      i.Link,
	}
}

// NormalizedEvent is the canonical event shape.
type NormalizedEvent struct {
	ID          string    `json:"id"`
	Competitor  string    `json:"competitor"`
	EventType   string    `json:"event_type"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Source      string    `json:"source"`
	Region      string    `json:"region"`
}

// Record returns the event keyed by its canonical field names.
func (e NormalizedEvent) Record() Record {
	return Record{
		"id":          e.ID,
		"competitor":  e.Competitor,
		"event_type":  e.EventType,
		"description": e.Description,
		"date":        e.Date,
		"source":      e.Source,
		"region":      e.Region,
	}
}

// ClassifiedEvent is a normalized event with its classification.
type ClassifiedEvent struct {
	NormalizedEvent
	Title      string              `json:"title,omitempty"`
	Confidence float64             `json:"confidence"`
	Reasoning  string              `json:"reasoning"`
	Entities   map[string][]string `json:"entities"`
	Metadata   map[string]string   `json:"metadata"`
}

// ScoredEvent is a classified event with its business impact.
type ScoredEvent struct {
	ClassifiedEvent
	Impact          float64            `json:"impact"`
	Urgency         string             `json:"urgency"`
	ImpactBreakdown map[string]float64 `json:"impact_breakdown"`
	ImpactReasoning string             `json:"impact_reasoning"`
}

// Strategic is the commentary produced for one event.
type Strategic struct {
	StrategicContext        string   `json:"strategic_context"`
	Recommendations         []string `json:"recommendations"`
	BroaderTrends           []string `json:"broader_trends"`
	CompetitiveImplications string   `json:"competitive_implications"`
}

// StrategicEvent is a scored event with strategic commentary.
type StrategicEvent struct {
	ScoredEvent
	Strategic Strategic `json:"strategic"`
}

// FinalEvent is a strategic event with its recommended actions.
type FinalEvent struct {
	StrategicEvent
	Actions []ActionRecommendation `json:"actions"`
}
