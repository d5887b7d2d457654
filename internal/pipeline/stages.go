package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/compintel/internal/domain/aggregate"
	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/domain/normalize"
	"github.com/okian/compintel/internal/domain/report"
	"github.com/okian/compintel/internal/domain/scoring"
	"github.com/okian/compintel/internal/domain/trends"
	"github.com/okian/compintel/internal/provider"
	"github.com/okian/compintel/pkg/logger"
	"github.com/okian/compintel/pkg/metrics"
)

// Stage names.
const (
	StageRetrieve     = "retrieve"
	StageClassify     = "classify"
	StageTrends       = "trends"
	StageScore        = "score"
	StageAnalyze      = "analyze"
	StageActions      = "actions"
	StageLLMAggregate = "llm_aggregate"
	StageReport       = "report"
)

// Fallback reasons reported in metrics.
const (
	reasonCallFailed = "call_failed"
	reasonEmpty      = "empty"
)

// stageFunc is a method expression on executor.
type stageFunc func(e *executor, ctx context.Context, st State) (State, error)

// stageOrder is the sequence the fallback run uses.
var stageOrder = []string{
	StageRetrieve, StageClassify, StageTrends, StageScore,
	StageAnalyze, StageActions, StageLLMAggregate, StageReport,
}

func stageTable() map[string]stageFunc {
	return map[string]stageFunc{
		StageRetrieve:     (*executor).retrieve,
		StageClassify:     (*executor).classify,
		StageTrends:       (*executor).trends,
		StageScore:        (*executor).score,
		StageAnalyze:      (*executor).analyze,
		StageActions:      (*executor).actions,
		StageLLMAggregate: (*executor).llmAggregate,
		StageReport:       (*executor).report,
	}
}

// executor runs stages for one run with one provider set.
type executor struct {
	set          provider.Set
	log          logger.Logger
	now          time.Time
	analyzeLimit int
}

// attempt calls primary and, when it fails or panics, the fallback of the
// same capability for this single call. It returns an error only when the
// fallback fails too.
func attempt[T any](ctx context.Context, e *executor, stage, capability, eventID, variant string,
	primary, fallback func() (T, error),
) (T, error) {
	out, err := guard(primary)
	if err == nil {
		metrics.RecordProviderCall(capability, variant)
		return out, nil
	}
	if variant == provider.VariantFallback {
		return out, err
	}
	e.log.Warn(ctx, "provider call failed, using fallback",
		logger.String("stage", stage),
		logger.String("capability", capability),
		logger.String("event_id", eventID),
		logger.Error(err))
	metrics.RecordProviderFallback(capability, reasonCallFailed)

	out, err = guard(fallback)
	if err == nil {
		metrics.RecordProviderCall(capability, provider.VariantFallback)
	}
	return out, err
}

func guard[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrStagePanic, r)
		}
	}()
	return fn()
}

func (e *executor) retrieve(ctx context.Context, st State) (State, error) {
	req := st.Request
	rich, fb := e.set.Retriever, e.set.Fallback.Retriever
	res, err := attempt(ctx, e, StageRetrieve, provider.CapRetriever, "", rich.Variant(),
		func() (provider.Retrieval, error) { return rich.Retrieve(ctx, req) },
		func() (provider.Retrieval, error) { return fb.Retrieve(ctx, req) },
	)
	if err != nil {
		return st, fmt.Errorf("retrieve: %w", err)
	}
	items := res.Items()
	if len(items) == 0 && rich.Variant() != provider.VariantFallback {
		e.log.Warn(ctx, "retriever returned no items, synthesizing",
			logger.String("stage", StageRetrieve), logger.String("capability", provider.CapRetriever))
		metrics.RecordProviderFallback(provider.CapRetriever, reasonEmpty)
		res, err = fb.Retrieve(ctx, req)
		if err != nil {
			return st, fmt.Errorf("retrieve: %w", err)
		}
		items = res.Items()
	}
	st.Raw = items
	return st, nil
}

func (e *executor) classify(ctx context.Context, st State) (State, error) {
	rich, fb := e.set.Classifier, e.set.Fallback.Classifier
	out := make([]model.ClassifiedEvent, 0, len(st.Raw))
	for _, item := range st.Raw {
		ev := normalize.FromRaw(item)
		text := ev.Description
		if text == "" {
			text = strings.TrimSpace(item.Title + ". " + item.Summary)
		}
		in := provider.ClassifyInput{Event: ev, Title: item.Title, Text: text, Link: item.Link}
		c, err := attempt(ctx, e, StageClassify, provider.CapClassifier, ev.ID, rich.Variant(),
			func() (provider.Classification, error) { return rich.Classify(ctx, in) },
			func() (provider.Classification, error) { return fb.Classify(ctx, in) },
		)
		if err != nil {
			if ctx.Err() != nil {
				return st, ctx.Err()
			}
			e.log.Error(ctx, "classification failed", logger.String("event_id", ev.ID), logger.Error(err))
		}
		if c.EventType == "" {
			c.EventType = model.EventUnknown
		}
		ev.EventType = c.EventType
		if ev.Competitor == "" {
			ev.Competitor = model.UnknownCompetitor
		}
		out = append(out, model.ClassifiedEvent{
			NormalizedEvent: ev,
			Title:           item.Title,
			Confidence:      c.Confidence,
			Reasoning:       c.Reasoning,
			Entities:        c.Entities,
			Metadata:        c.Metadata,
		})
	}
	st.Classified = out
	return st, nil
}

func (e *executor) trends(_ context.Context, st State) (State, error) {
	st.Trends = trends.Analyze(st.Classified)
	return st, nil
}

func (e *executor) score(ctx context.Context, st State) (State, error) {
	rich, fb := e.set.Scorer, e.set.Fallback.Scorer
	out := make([]model.ScoredEvent, 0, len(st.Classified))
	for _, ev := range st.Classified {
		if ev.Date.IsZero() {
			ev.Date = e.now
		}
		imp, err := attempt(ctx, e, StageScore, provider.CapScorer, ev.ID, rich.Variant(),
			func() (provider.Impact, error) { return rich.Score(ctx, ev) },
			func() (provider.Impact, error) { return fb.Score(ctx, ev) },
		)
		if err != nil {
			if ctx.Err() != nil {
				return st, ctx.Err()
			}
			e.log.Error(ctx, "scoring failed", logger.String("event_id", ev.ID), logger.Error(err))
		}
		impact := scoring.Round1(scoring.Clamp(imp.Impact))
		out = append(out, model.ScoredEvent{
			ClassifiedEvent: ev,
			Impact:          impact,
			Urgency:         scoring.Urgency(impact),
			ImpactBreakdown: imp.Breakdown,
			ImpactReasoning: imp.Reasoning,
		})
	}
	st.Scored = out
	return st, nil
}

func (e *executor) analyze(ctx context.Context, st State) (State, error) {
	rich, fb := e.set.Analyst, e.set.Fallback.Analyst
	n := min(len(st.Scored), e.analyzeLimit)
	out := make([]model.StrategicEvent, 0, n)
	for _, ev := range st.Scored[:n] {
		s, err := attempt(ctx, e, StageAnalyze, provider.CapAnalyst, ev.ID, rich.Variant(),
			func() (model.Strategic, error) { return rich.Analyze(ctx, ev) },
			func() (model.Strategic, error) { return fb.Analyze(ctx, ev) },
		)
		if err != nil {
			if ctx.Err() != nil {
				return st, ctx.Err()
			}
			e.log.Error(ctx, "analysis failed", logger.String("event_id", ev.ID), logger.Error(err))
		}
		out = append(out, model.StrategicEvent{ScoredEvent: ev, Strategic: s})
	}
	st.Strategic = out
	return st, nil
}

// actions recommends for every scored event. Events beyond the analysis cap
// carry an empty strategic record.
func (e *executor) actions(ctx context.Context, st State) (State, error) {
	rich, fb := e.set.Recommender, e.set.Fallback.Recommender
	out := make([]model.FinalEvent, 0, len(st.Scored))
	for i, ev := range st.Scored {
		se := model.StrategicEvent{ScoredEvent: ev}
		if i < len(st.Strategic) {
			se = st.Strategic[i]
		}
		in := provider.RecommendInput{
			Event:            se.NormalizedEvent,
			Impact:           se.Impact,
			StrategicContext: se.Strategic.StrategicContext,
			Company:          st.Request.CompanyProfile,
			Focus:            st.Request.Config.RecommendationFocus,
		}
		recs, err := attempt(ctx, e, StageActions, provider.CapRecommender, ev.ID, rich.Variant(),
			func() ([]model.ActionRecommendation, error) { return rich.Recommend(ctx, in) },
			func() ([]model.ActionRecommendation, error) { return fb.Recommend(ctx, in) },
		)
		if err != nil {
			if ctx.Err() != nil {
				return st, ctx.Err()
			}
			e.log.Error(ctx, "recommendation failed", logger.String("event_id", ev.ID), logger.Error(err))
		}
		if recs == nil {
			recs = []model.ActionRecommendation{}
		}
		out = append(out, model.FinalEvent{StrategicEvent: se, Actions: recs})
	}
	st.Final = out
	st.Aggregated = aggregate.Build(st.Final, st.Scored)
	return st, nil
}

// llmAggregate never fails: on any problem the plan is left as it was.
func (e *executor) llmAggregate(ctx context.Context, st State) (State, error) {
	agg := e.set.Aggregator
	if agg == nil {
		return st, nil
	}
	in := provider.AggregateInput{
		Strategic: st.Strategic,
		Company:   st.Request.CompanyProfile,
		Focus:     st.Request.Config.RecommendationFocus,
	}
	enr, err := guard(func() (provider.Enrichment, error) { return agg.Enrich(ctx, in) })
	if err != nil {
		e.log.Warn(ctx, "aggregation enrichment failed, keeping heuristic plan",
			logger.String("stage", StageLLMAggregate),
			logger.String("capability", provider.CapAggregator),
			logger.Error(err))
		metrics.RecordProviderFallback(provider.CapAggregator, reasonCallFailed)
		return st, nil
	}
	metrics.RecordProviderCall(provider.CapAggregator, agg.Variant())

	plan := st.Aggregated
	if enr.ExecutiveSummary != "" {
		plan.DetailedPlan.ExecutiveSummary = enr.ExecutiveSummary
	}
	if enr.GeneralAction != nil {
		plan.GeneralAction = *enr.GeneralAction
	}
	st.Aggregated = plan
	return st, nil
}

func (e *executor) report(_ context.Context, st State) (State, error) {
	st.DailyReport = report.Daily(st.Final, e.now)
	return st, nil
}
