package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/provider"
	"github.com/okian/compintel/internal/provider/fallback"
)

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func fallbackSet() provider.Set {
	fb := fallback.New(fallback.WithClock(func() time.Time { return testNow }))
	return provider.Set{Fallback: fb}.FallbackOnly()
}

func request(comps []string, regions []string, articles int) model.Request {
	req := model.Request{
		Regions: regions,
		Config:  model.RunConfig{SearchTimeframeDays: 7, MaxArticlesPerCompany: articles},
		CompanyProfile: model.CompanyProfile{
			Size: "Medium", MarketPosition: "challenger", Strengths: []string{"camera"}, Markets: []string{"EU"},
		},
	}
	for _, c := range comps {
		req.Competitors = append(req.Competitors, model.Competitor{Name: c})
	}
	return req
}

func newOrchestrator(opts ...Option) *Orchestrator {
	o, err := New(append([]Option{WithClock(func() time.Time { return testNow })}, opts...)...)
	So(err, ShouldBeNil)
	return o
}

type countingClassifier struct {
	calls  atomic.Int32
	failOn int32
}

func (*countingClassifier) Variant() string { return provider.VariantRich }

func (c *countingClassifier) Classify(_ context.Context, in provider.ClassifyInput) (provider.Classification, error) {
	if c.calls.Add(1) == c.failOn {
		return provider.Classification{}, errors.New("upstream timeout")
	}
	return provider.Classification{EventType: model.EventPartnership, Confidence: 0.9, Reasoning: "model"}, nil
}

type staticRetriever struct{ items []model.RawItem }

func (*staticRetriever) Variant() string { return provider.VariantRich }

func (r *staticRetriever) Retrieve(context.Context, model.Request) (provider.Retrieval, error) {
	return provider.Retrieval{Raw: r.items}, nil
}

type labelledScorer struct{ impacts []provider.Impact }

func (*labelledScorer) Variant() string { return provider.VariantRich }

func (s *labelledScorer) Score(_ context.Context, ev model.ClassifiedEvent) (provider.Impact, error) {
	var i int
	fmt.Sscanf(ev.Title, "item %d", &i)
	return s.impacts[i%len(s.impacts)], nil
}

type panickingAnalyst struct{}

func (panickingAnalyst) Variant() string { return provider.VariantRich }

func (panickingAnalyst) Analyze(context.Context, model.ScoredEvent) (model.Strategic, error) {
	panic("nil map")
}

type fakeAggregator struct {
	out provider.Enrichment
	err error
}

func (*fakeAggregator) Variant() string { return provider.VariantRich }

func (a *fakeAggregator) Enrich(context.Context, provider.AggregateInput) (provider.Enrichment, error) {
	return a.out, a.err
}

func TestFallbackCompleteness(t *testing.T) {
	Convey("Given only fallback providers", t, func() {
		o := newOrchestrator()
		req := request([]string{"Samsung", "Xiaomi"}, []string{"US", "EU"}, 3)

		out, err := o.Run(context.Background(), fallbackSet(), req)
		So(err, ShouldBeNil)
		So(out.Fallback, ShouldBeFalse)
		bag := out.Result

		So(len(bag.Raw), ShouldEqual, 6)
		So(len(bag.Classified), ShouldEqual, 6)
		So(len(bag.Scored), ShouldEqual, 6)
		So(len(bag.Strategic), ShouldEqual, 6)
		So(len(bag.Final), ShouldEqual, 6)
		So(len(bag.Trends), ShouldEqual, 3)
		for _, ev := range bag.Final {
			So(len(ev.Actions), ShouldEqual, 3)
			So(ev.Strategic.StrategicContext, ShouldNotBeEmpty)
			So(ev.Impact, ShouldBeBetweenOrEqual, 0, 10)
		}
		So(len(bag.Aggregated.TopActions), ShouldEqual, 18)
		So(len(bag.Aggregated.DetailedPlan.StrategicPillars), ShouldEqual, 5)
		So(bag.DailyReport.Summary.TotalEvents, ShouldEqual, 6)
		So(bag.DailyReport.Summary.CompaniesMentioned, ShouldResemble, []string{"Samsung", "Xiaomi"})
		So(out.Variants[provider.CapAggregator], ShouldEqual, "none")
	})

	Convey("Fallback runs are deterministic", t, func() {
		o := newOrchestrator()
		req := request([]string{"Apple"}, []string{"IN"}, 4)
		a, err := o.Run(context.Background(), fallbackSet(), req)
		So(err, ShouldBeNil)
		b, err := o.Run(context.Background(), fallbackSet(), req)
		So(err, ShouldBeNil)
		So(cmp.Diff(a.Result, b.Result), ShouldBeEmpty)
	})
}

func TestPerEventIsolation(t *testing.T) {
	Convey("Given a rich classifier that fails on the third event", t, func() {
		o := newOrchestrator()
		set := fallbackSet()
		set.Classifier = &countingClassifier{failOn: 3}

		out, err := o.Run(context.Background(), set, request([]string{"Samsung"}, []string{"US"}, 5))
		So(err, ShouldBeNil)
		So(len(out.Result.Classified), ShouldEqual, 5)
		for i, ev := range out.Result.Classified {
			if i == 2 {
				So(ev.Confidence, ShouldEqual, 0.5)
				So(ev.EventType, ShouldNotEqual, model.EventPartnership)
				continue
			}
			So(ev.Confidence, ShouldEqual, 0.9)
			So(ev.EventType, ShouldEqual, model.EventPartnership)
		}
		So(len(out.Result.Final), ShouldEqual, 5)
	})

	Convey("Given a rich analyst that panics", t, func() {
		o := newOrchestrator()
		set := fallbackSet()
		set.Analyst = panickingAnalyst{}

		out, err := o.Run(context.Background(), set, request([]string{"Apple"}, []string{"EU"}, 2))
		So(err, ShouldBeNil)
		So(out.Fallback, ShouldBeFalse)
		for _, ev := range out.Result.Strategic {
			So(ev.Strategic.StrategicContext, ShouldStartWith, "Apple ")
		}
	})
}

func TestScenario(t *testing.T) {
	Convey("Given the price cut headline from a rich retriever", t, func() {
		o := newOrchestrator()
		set := fallbackSet()
		set.Retriever = &staticRetriever{items: []model.RawItem{{
			Title:     "Samsung cuts prices in EU",
			Company:   "samsung",
			Region:    "EU",
			Published: "2024-01-01T00:00:00Z",
		}}}

		out, err := o.Run(context.Background(), set, request([]string{"Samsung"}, []string{"EU"}, 1))
		So(err, ShouldBeNil)
		So(len(out.Result.Scored), ShouldEqual, 1)
		ev := out.Result.Scored[0]
		So(ev.Competitor, ShouldEqual, "Samsung")
		So(ev.EventType, ShouldEqual, model.EventPricingChange)
		So(ev.Impact, ShouldEqual, 8.0)
		So(ev.Urgency, ShouldEqual, model.UrgencyImmediate)
		So(ev.Date.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
		So(out.Result.DailyReport.Summary.CriticalOrHigh, ShouldEqual, 1)
		So(out.Result.Aggregated.DetailedPlan.Threats, ShouldResemble, []string{"Pricing pressure from Samsung"})
	})

	Convey("Given a headline announcing the price cut", t, func() {
		o := newOrchestrator()
		set := fallbackSet()
		set.Retriever = &staticRetriever{items: []model.RawItem{{
			Title:     "Samsung announces price cuts in EU",
			Company:   "samsung",
			Region:    "EU",
			Published: "2024-01-01T00:00:00Z",
		}}}

		out, err := o.Run(context.Background(), set, request([]string{"Samsung"}, []string{"EU"}, 1))
		So(err, ShouldBeNil)
		ev := out.Result.Scored[0]
		So(ev.EventType, ShouldEqual, model.EventProductLaunch)
		So(ev.Impact, ShouldEqual, 8.5)
		So(ev.Urgency, ShouldEqual, model.UrgencyImmediate)
		So(out.Result.Aggregated.DetailedPlan.Threats, ShouldResemble, []string{"Flagship launch momentum by Samsung"})
	})

	Convey("Given a rich retriever that finds nothing", t, func() {
		o := newOrchestrator()
		set := fallbackSet()
		set.Retriever = &staticRetriever{}

		out, err := o.Run(context.Background(), set, request([]string{"Google"}, []string{"US"}, 2))
		So(err, ShouldBeNil)
		So(len(out.Result.Raw), ShouldEqual, 2)
		So(out.Result.Raw[0].Source, ShouldEqual, "Google News")
	})
}

func TestAnalyzeCap(t *testing.T) {
	Convey("Only the first scored events are analyzed but all are actioned", t, func() {
		o := newOrchestrator()
		out, err := o.Run(context.Background(), fallbackSet(), request([]string{"Samsung", "Apple"}, []string{"US"}, 6))
		So(err, ShouldBeNil)
		So(len(out.Result.Scored), ShouldEqual, 12)
		So(len(out.Result.Strategic), ShouldEqual, DefaultAnalyzeLimit)
		So(len(out.Result.Final), ShouldEqual, 12)
		last := out.Result.Final[11]
		So(last.Strategic.StrategicContext, ShouldBeEmpty)
		So(len(last.Actions), ShouldEqual, 3)
		So(len(out.Result.Aggregated.TopActions), ShouldEqual, 20)
	})

	Convey("The cap is configurable", t, func() {
		o := newOrchestrator(WithAnalyzeLimit(2))
		out, err := o.Run(context.Background(), fallbackSet(), request([]string{"Samsung"}, []string{"US"}, 3))
		So(err, ShouldBeNil)
		So(len(out.Result.Strategic), ShouldEqual, 2)
	})
}

func TestLLMAggregate(t *testing.T) {
	Convey("Given a baseline run without an aggregator", t, func() {
		o := newOrchestrator()
		req := request([]string{"Huawei"}, []string{"UAE"}, 2)
		base, err := o.Run(context.Background(), fallbackSet(), req)
		So(err, ShouldBeNil)

		Convey("A failing aggregator leaves the plan untouched", func() {
			set := fallbackSet()
			set.Aggregator = &fakeAggregator{err: provider.ErrMalformedResponse}
			out, err := o.Run(context.Background(), set, req)
			So(err, ShouldBeNil)
			So(cmp.Diff(base.Result.Aggregated, out.Result.Aggregated), ShouldBeEmpty)
		})

		Convey("A successful aggregator replaces summary and general action only", func() {
			set := fallbackSet()
			set.Aggregator = &fakeAggregator{out: provider.Enrichment{
				ExecutiveSummary: "Hold the line.",
				GeneralAction:    &model.ActionRecommendation{Title: "Go", Priority: model.PriorityCritical},
			}}
			out, err := o.Run(context.Background(), set, req)
			So(err, ShouldBeNil)
			plan := out.Result.Aggregated
			So(plan.DetailedPlan.ExecutiveSummary, ShouldEqual, "Hold the line.")
			So(plan.GeneralAction.Title, ShouldEqual, "Go")
			So(plan.StrategyOverview, ShouldEqual, base.Result.Aggregated.StrategyOverview)
			So(plan.TopActions, ShouldResemble, base.Result.Aggregated.TopActions)
		})

		Convey("A summary-only enrichment keeps the template action", func() {
			set := fallbackSet()
			set.Aggregator = &fakeAggregator{out: provider.Enrichment{ExecutiveSummary: "Only this."}}
			out, _ := o.Run(context.Background(), set, req)
			So(out.Result.Aggregated.GeneralAction, ShouldResemble, base.Result.Aggregated.GeneralAction)
		})
	})
}

func TestGraph(t *testing.T) {
	Convey("The embedded graph compiles to the fixed order", t, func() {
		o := newOrchestrator()
		names := make([]string, 0, len(o.nodes))
		for _, n := range o.nodes {
			names = append(names, n.name)
		}
		So(names, ShouldResemble, stageOrder)
	})

	Convey("Broken graphs make the pipeline unavailable", t, func() {
		cases := map[string]string{
			"bad yaml":      "nodes: [",
			"no nodes":      "start: retrieve",
			"unknown stage": "start: a\nnodes: [{name: a, stage: nope}]",
			"bad start":     "start: b\nnodes: [{name: a, stage: retrieve}]",
			"duplicate":     "start: a\nnodes: [{name: a, stage: retrieve}, {name: a, stage: report}]",
			"fan out": "start: a\nnodes: [{name: a, stage: retrieve}, {name: b, stage: report}, {name: c, stage: trends}]\n" +
				"edges: [{from: a, to: b}, {from: a, to: c}]",
			"cycle": "start: a\nnodes: [{name: a, stage: retrieve}, {name: b, stage: report}]\n" +
				"edges: [{from: a, to: b}, {from: b, to: a}]",
			"unreachable": "start: a\nnodes: [{name: a, stage: retrieve}, {name: b, stage: report}]",
			"dangling":    "start: a\nnodes: [{name: a, stage: retrieve}]\nedges: [{from: a, to: z}]",
		}
		for name, def := range cases {
			_, err := New(WithDefinition([]byte(def)))
			So(fmt.Sprintf("%s: %v", name, errors.Is(err, ErrPipelineUnavailable)), ShouldEqual, name+": true")
			So(errors.Is(err, ErrInvalidGraph), ShouldBeTrue)
		}
	})
}

func TestFallbackRun(t *testing.T) {
	Convey("Given a graph that produces no usable output", t, func() {
		o := newOrchestrator(WithDefinition([]byte("start: t\nnodes: [{name: t, stage: trends}]")))

		Convey("The sequential fallback run supplies the result", func() {
			set := fallbackSet()
			set.Classifier = &countingClassifier{}
			out, err := o.Run(context.Background(), set, request([]string{"OnePlus"}, []string{"IN"}, 2))
			So(err, ShouldBeNil)
			So(out.Fallback, ShouldBeTrue)
			So(len(out.Result.Final), ShouldEqual, 2)
			So(out.Variants[provider.CapClassifier], ShouldEqual, provider.VariantFallback)
			for _, ev := range out.Result.Classified {
				So(ev.Confidence, ShouldEqual, 0.5)
			}
		})
	})

	Convey("A cancelled context discards the run", t, func() {
		o := newOrchestrator()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := o.Run(ctx, fallbackSet(), request([]string{"Samsung"}, []string{"US"}, 1))
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}

func TestScoreBounds(t *testing.T) {
	Convey("Given a rich scorer with out of range impacts and contradicting labels", t, func() {
		o := newOrchestrator()
		set := fallbackSet()
		set.Scorer = &labelledScorer{impacts: []provider.Impact{
			{Impact: 3, Urgency: "immediate"},
			{Impact: 12.5},
			{Impact: 9, Urgency: "critical"},
			{Impact: -2, Urgency: "low"},
			{Impact: 7.04, Urgency: "medium"},
		}}
		var items []model.RawItem
		for i := 0; i < 5; i++ {
			items = append(items, model.RawItem{
				Title: fmt.Sprintf("item %d", i), Company: "Samsung", Region: "EU",
				Published: "2024-01-01T00:00:00Z",
			})
		}
		set.Retriever = &staticRetriever{items: items}

		out, err := o.Run(context.Background(), set, request([]string{"Samsung"}, []string{"EU"}, 5))
		So(err, ShouldBeNil)
		So(len(out.Result.Scored), ShouldEqual, 5)

		want := map[string]struct {
			impact  float64
			urgency string
		}{
			"item 0": {3, model.UrgencyLow},
			"item 1": {10, model.UrgencyImmediate},
			"item 2": {9, model.UrgencyImmediate},
			"item 3": {0, model.UrgencyLow},
			"item 4": {7, model.UrgencyHigh},
		}
		for _, ev := range out.Result.Scored {
			w := want[ev.Title]
			So(ev.Impact, ShouldEqual, w.impact)
			So(ev.Urgency, ShouldEqual, w.urgency)
		}
	})
}
