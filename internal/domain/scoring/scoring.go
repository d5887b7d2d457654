// Package scoring computes business impact scores and urgency for events.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/okian/compintel/internal/domain/model"
)

// Impact scale and urgency thresholds.
const (
	MinImpact          = 0.0
	MaxImpact          = 10.0
	ImmediateThreshold = 8.0
	HighThreshold      = 7.0
	MediumThreshold    = 5.0

	defaultBaseScore  = 5.0
	defaultBrandBoost = 1.0
	defaultTiming     = 6.0
	heuristicReason   = "Heuristic fallback score"
)

// Clamp bounds v to [MinImpact, MaxImpact]. NaN becomes MinImpact.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return MinImpact
	}
	return math.Max(MinImpact, math.Min(MaxImpact, v))
}

// Round1 rounds v to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Urgency maps an impact score to its urgency level.
func Urgency(impact float64) string {
	switch {
	case impact >= ImmediateThreshold:
		return model.UrgencyImmediate
	case impact >= HighThreshold:
		return model.UrgencyHigh
	case impact >= MediumThreshold:
		return model.UrgencyMedium
	default:
		return model.UrgencyLow
	}
}

// Rule sets the base score when any keyword appears in the event type or description.
// Event types are lower-cased before matching; descriptions are matched as written.
type Rule struct {
	EventType   []string `yaml:"event_type"`
	Description []string `yaml:"description"`
	Score       float64  `yaml:"score"`
}

func (r Rule) matches(eventType, description string) bool {
	for _, k := range r.EventType {
		if strings.Contains(eventType, k) {
			return true
		}
	}
	for _, k := range r.Description {
		if strings.Contains(description, k) {
			return true
		}
	}
	return false
}

// DefaultRules are checked in order; the first match wins.
func DefaultRules() []Rule {
	return []Rule{
		{EventType: []string{"launch"}, Score: 7.5},
		{EventType: []string{"pricing", "price"}, Score: 7.0},
		{EventType: []string{"carrier"}, Description: []string{"operator"}, Score: 6.8},
		{EventType: []string{"campaign", "marketing"}, Score: 6.0},
		{EventType: []string{"certification"}, Score: 5.5},
	}
}

// Option applies a configuration option to the HeuristicScorer.
type Option func(*HeuristicScorer)

// WithBaseScore sets the score used when no rule matches.
func WithBaseScore(base float64) Option {
	return func(s *HeuristicScorer) {
		s.base = base
	}
}

// WithRules replaces the ordered rule list.
func WithRules(rules []Rule) Option {
	return func(s *HeuristicScorer) {
		if len(rules) > 0 {
			s.rules = append([]Rule(nil), rules...)
		}
	}
}

// WithBrandBoost adds boost to the score of the named competitors.
func WithBrandBoost(boost float64, competitors ...string) Option {
	return func(s *HeuristicScorer) {
		s.boost = boost
		s.boosted = make(map[string]struct{}, len(competitors))
		for _, c := range competitors {
			s.boosted[strings.ToLower(c)] = struct{}{}
		}
	}
}

// Input abstracts the event fields needed for scoring.
type Input struct {
	Competitor  string
	EventType   string
	Description string
}

// Result is a computed impact.
type Result struct {
	Impact    float64
	Urgency   string
	Breakdown map[string]float64
	Reasoning string
}

// HeuristicScorer scores events from keyword rules and competitor size cues.
type HeuristicScorer struct {
	base    float64
	rules   []Rule
	boost   float64
	boosted map[string]struct{}
}

// NewHeuristicScorer creates a scorer with the default rule table.
func NewHeuristicScorer(opts ...Option) *HeuristicScorer {
	s := &HeuristicScorer{
		base:  defaultBaseScore,
		rules: DefaultRules(),
	}
	WithBrandBoost(defaultBrandBoost, "samsung", "apple", "huawei")(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the impact of in. It only fails on a cancelled context.
func (s *HeuristicScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("score: %w", err)
	}
	eventType := strings.ToLower(in.EventType)
	if eventType == "" {
		eventType = "other"
	}

	score := s.base
	for _, r := range s.rules {
		if r.matches(eventType, in.Description) {
			score = r.Score
			break
		}
	}
	if _, ok := s.boosted[strings.ToLower(in.Competitor)]; ok {
		score += s.boost
	}
	final := Clamp(score)

	return Result{
		Impact:  Round1(final),
		Urgency: Urgency(final),
		Breakdown: map[string]float64{
			"size":   final - 1,
			"event":  final,
			"timing": defaultTiming,
		},
		Reasoning: heuristicReason,
	}, nil
}
