// Package trends derives informational insights from classified events.
package trends

import (
	"sort"

	"github.com/okian/compintel/internal/domain/model"
)

const (
	topEventTypes   = 3
	topCompetitors  = 5
	insightType     = "summary"
	significance    = "Medium"
	fixedConfidence = 0.7
)

// Counts tallies keys and returns them by descending count; ties keep first-seen order.
func Counts(keys []string) []model.Count {
	idx := make(map[string]int, len(keys))
	var out []model.Count
	for _, k := range keys {
		if i, ok := idx[k]; ok {
			out[i].Count++
			continue
		}
		idx[k] = len(out)
		out = append(out, model.Count{Key: k, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Analyze groups events by type and by competitor.
func Analyze(events []model.ClassifiedEvent) []model.TrendInsight {
	if len(events) == 0 {
		return []model.TrendInsight{}
	}
	types := make([]string, 0, len(events))
	comps := make([]string, 0, len(events))
	for _, ev := range events {
		et := ev.EventType
		if et == "" {
			et = model.EventUnknown
		}
		c := ev.Competitor
		if c == "" {
			c = model.UnknownCompetitor
		}
		types = append(types, et)
		comps = append(comps, c)
	}
	byType := Counts(types)
	byComp := Counts(comps)

	return []model.TrendInsight{
		insight("Event type distribution", byType),
		insight("Top event types", head(byType, topEventTypes)),
		insight("Most active competitors", head(byComp, topCompetitors)),
	}
}

func insight(title string, data []model.Count) model.TrendInsight {
	return model.TrendInsight{
		Title:        title,
		Type:         insightType,
		Significance: significance,
		Confidence:   fixedConfidence,
		Data:         data,
	}
}

func head(c []model.Count, n int) []model.Count {
	if len(c) > n {
		c = c[:n]
	}
	return append([]model.Count(nil), c...)
}
