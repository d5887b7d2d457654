// Package report builds the daily brief and its plain-text export.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/compintel/internal/domain/aggregate"
	"github.com/okian/compintel/internal/domain/model"
)

const (
	// ReportType labels every brief.
	ReportType = "Daily Brief"

	maxCritical   = 10
	maxTitleRunes = 80
)

// Daily summarizes final events as of now.
func Daily(events []model.FinalEvent, now time.Time) model.DailyReport {
	y, m, d := now.Date()
	today := 0
	var critical []model.CriticalEvent
	companies := map[string]struct{}{}

	for _, ev := range events {
		ey, em, ed := ev.Date.In(now.Location()).Date()
		if ey == y && em == m && ed == d {
			today++
		}
		comp := ev.Competitor
		if comp == "" {
			comp = model.UnknownCompetitor
		}
		companies[comp] = struct{}{}
		if isCritical(ev.Urgency) {
			critical = append(critical, digest(ev, comp))
		}
	}

	names := make([]string, 0, len(companies))
	for c := range companies {
		names = append(names, c)
	}
	sort.Strings(names)

	summary := model.ReportSummary{
		TotalEvents:        len(events),
		TodayEvents:        today,
		CriticalOrHigh:     len(critical),
		CompaniesMentioned: names,
	}
	if len(critical) > maxCritical {
		critical = critical[:maxCritical]
	}
	if critical == nil {
		critical = []model.CriticalEvent{}
	}
	return model.DailyReport{
		ReportType:     ReportType,
		Date:           now.Format(time.DateOnly),
		Summary:        summary,
		CriticalEvents: critical,
	}
}

func isCritical(urgency string) bool {
	switch strings.ToLower(urgency) {
	case model.UrgencyImmediate, model.UrgencyHigh:
		return true
	}
	return false
}

func digest(ev model.FinalEvent, comp string) model.CriticalEvent {
	et := ev.EventType
	if et == "" {
		et = model.EventUnknown
	}
	return model.CriticalEvent{
		Title:      aggregate.Truncate(ev.Description, maxTitleRunes),
		Competitor: comp,
		EventType:  et,
		Impact:     ev.Impact,
		Urgency:    ev.Urgency,
	}
}

// ExportText renders the brief, the plan and every per-event action as plain text.
func ExportText(brief model.DailyReport, events []model.FinalEvent, plan model.AggregatedPlan) []byte {
	var b bytes.Buffer
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("Competitive Intelligence - Daily Brief & Actions")
	line("Date: %s", brief.Date)
	line("")
	line("Summary:")
	line("- total_events: %d", brief.Summary.TotalEvents)
	line("- today_events: %d", brief.Summary.TodayEvents)
	line("- critical_or_high: %d", brief.Summary.CriticalOrHigh)
	if len(brief.Summary.CompaniesMentioned) > 0 {
		line("- Companies: %s", strings.Join(brief.Summary.CompaniesMentioned, ", "))
	}
	line("")
	line("Critical/High Events:")
	for _, ev := range brief.CriticalEvents {
		line("- [%s] %s: %s", ev.Urgency, ev.Competitor, ev.Title)
	}
	line("")
	if s := plan.DetailedPlan.ExecutiveSummary; s != "" {
		line("Executive Summary:")
		line("%s", s)
		line("")
	}

	line("Action Recommendations:")
	if ga := plan.GeneralAction; ga.Title != "" {
		line("General Action: %s", ga.Title)
		line("- Priority: %s | Urgency: %dh", ga.Priority, ga.UrgencyHours)
		if ga.Description != "" {
			line("%s", ga.Description)
		}
		for _, s := range ga.ImplementationSteps {
			line(" - %s", s)
		}
		for _, m := range ga.SuccessMetrics {
			line(" ✓ %s", m)
		}
		line("")
	}
	for _, ev := range events {
		for _, a := range ev.Actions {
			line("[%s] %s", a.Priority, a.Title)
			line("%s - %s | Urgency: %dh", ev.Competitor, ev.EventType, a.UrgencyHours)
			for _, s := range a.ImplementationSteps {
				line(" - %s", s)
			}
			line("")
		}
	}
	return b.Bytes()
}
