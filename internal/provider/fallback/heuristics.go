package fallback

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed heuristics.yaml
var heuristicsYAML []byte

type heuristics struct {
	Classification classificationConfig `yaml:"classification"`
	Analysis       analysisConfig       `yaml:"analysis"`
	Actions        actionsConfig        `yaml:"actions"`
	Retrieval      retrievalConfig      `yaml:"retrieval"`
}

type classificationConfig struct {
	Confidence float64              `yaml:"confidence"`
	Reasoning  string               `yaml:"reasoning"`
	Rules      []classificationRule `yaml:"rules"`
}

type classificationRule struct {
	EventType string   `yaml:"event_type"`
	Keywords  []string `yaml:"keywords"`
}

type analysisConfig struct {
	ContextChars  int        `yaml:"context_chars"`
	Playbooks     []playbook `yaml:"playbooks"`
	Default       []string   `yaml:"default"`
	BroaderTrends []string   `yaml:"broader_trends"`
	Implications  string     `yaml:"implications"`
}

type playbook struct {
	EventType       []string `yaml:"event_type"`
	Description     []string `yaml:"description"`
	Recommendations []string `yaml:"recommendations"`
	Focus           string   `yaml:"focus"`
}

type actionsConfig struct {
	HighImpact float64          `yaml:"high_impact"`
	Templates  []actionTemplate `yaml:"templates"`
}

type actionTemplate struct {
	Title          string           `yaml:"title"`
	Priority       byImpact[string] `yaml:"priority"`
	UrgencyHours   byImpact[int]    `yaml:"urgency_hours"`
	Category       string           `yaml:"category"`
	Description    string           `yaml:"description"`
	ExpectedImpact string           `yaml:"expected_impact"`
	Confidence     float64          `yaml:"confidence"`
	Steps          []string         `yaml:"steps"`
	Metrics        []string         `yaml:"metrics"`
	Risks          []string         `yaml:"risks"`
}

type byImpact[T any] struct {
	High T `yaml:"high"`
	Low  T `yaml:"low"`
}

func (b byImpact[T]) pick(high bool) T {
	if high {
		return b.High
	}
	return b.Low
}

type retrievalConfig struct {
	Competitors []string       `yaml:"competitors"`
	Regions     []string       `yaml:"regions"`
	MaxItems    int            `yaml:"max_items"`
	Days        int            `yaml:"days"`
	StepHours   int            `yaml:"step_hours"`
	Templates   []itemTemplate `yaml:"templates"`
}

type itemTemplate struct {
	EventType string `yaml:"event_type"`
	Label     string `yaml:"label"`
	Summary   string `yaml:"summary"`
}

// rules is parsed once; a broken embedded table is a build defect.
var rules = mustLoad(heuristicsYAML)

func mustLoad(data []byte) heuristics {
	h, err := loadHeuristics(data)
	if err != nil {
		panic(fmt.Sprintf("load heuristics.yaml: %v", err))
	}
	return h
}

func loadHeuristics(data []byte) (heuristics, error) {
	var h heuristics
	if err := yaml.Unmarshal(data, &h); err != nil {
		return heuristics{}, err
	}
	switch {
	case len(h.Classification.Rules) == 0:
		return heuristics{}, errors.New("no classification rules")
	case len(h.Actions.Templates) == 0:
		return heuristics{}, errors.New("no action templates")
	case len(h.Retrieval.Templates) == 0:
		return heuristics{}, errors.New("no retrieval templates")
	case len(h.Analysis.Default) == 0:
		return heuristics{}, errors.New("no default recommendations")
	}
	return h, nil
}

// containsAny reports whether any keyword occurs in text as a substring.
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
