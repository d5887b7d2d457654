package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/tidwall/gjson"

	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/provider"
)

type fakeEndpoint struct {
	srv      *httptest.Server
	calls    atomic.Int32
	lastBody atomic.Value
	status   int
	content  string
	raw      string
}

func newFakeEndpoint(content string) *fakeEndpoint {
	f := &fakeEndpoint{status: http.StatusOK, content: content}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		f.lastBody.Store(string(body))
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		if f.raw != "" {
			_, _ = w.Write([]byte(f.raw))
			return
		}
		resp := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": f.content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	return f
}

func (f *fakeEndpoint) client() *Client {
	c, err := NewClient(Config{APIKey: "test-key", Endpoint: f.srv.URL, HTTPClient: f.srv.Client()})
	So(err, ShouldBeNil)
	return c
}

func (f *fakeEndpoint) body() gjson.Result {
	s, _ := f.lastBody.Load().(string)
	return gjson.Parse(s)
}

func TestNewClient(t *testing.T) {
	Convey("A missing key makes the rich variant unavailable", t, func() {
		_, err := NewClient(Config{APIKey: "  "})
		So(errors.Is(err, provider.ErrProviderUnavailable), ShouldBeTrue)
	})

	Convey("Defaults are applied", t, func() {
		c, err := NewClient(Config{APIKey: "k"})
		So(err, ShouldBeNil)
		So(c.model, ShouldEqual, defaultModel)
		So(c.endpoint, ShouldEqual, defaultEndpoint)
	})
}

func TestComplete(t *testing.T) {
	Convey("Given a fake completions endpoint", t, func() {
		f := newFakeEndpoint(`{"ok": true}`)
		defer f.srv.Close()
		c := f.client()

		Convey("The request carries model, messages and json mode", func() {
			res, err := c.Complete(context.Background(), "sys", "usr", 0.2)
			So(err, ShouldBeNil)
			So(res.Get("ok").Bool(), ShouldBeTrue)
			b := f.body()
			So(b.Get("model").String(), ShouldEqual, defaultModel)
			So(b.Get("messages.0.role").String(), ShouldEqual, "system")
			So(b.Get("messages.1.content").String(), ShouldEqual, "usr")
			So(b.Get("temperature").Float(), ShouldEqual, 0.2)
			So(b.Get("response_format.type").String(), ShouldEqual, "json_object")
		})

		Convey("Fenced content is accepted", func() {
			f.content = "```json\n{\"ok\": true}\n```"
			res, err := c.Complete(context.Background(), "s", "u", 0)
			So(err, ShouldBeNil)
			So(res.Get("ok").Bool(), ShouldBeTrue)
		})

		Convey("Empty content is an empty response", func() {
			f.content = " "
			_, err := c.Complete(context.Background(), "s", "u", 0)
			So(errors.Is(err, provider.ErrEmptyResponse), ShouldBeTrue)
		})

		Convey("Non-JSON content is malformed", func() {
			f.content = "sure, here you go"
			_, err := c.Complete(context.Background(), "s", "u", 0)
			So(errors.Is(err, provider.ErrMalformedResponse), ShouldBeTrue)
		})

		Convey("Error statuses surface the API message", func() {
			f.status = http.StatusBadRequest
			f.raw = `{"error":{"message":"model not found"}}`
			_, err := c.Complete(context.Background(), "s", "u", 0)
			So(errors.Is(err, ErrRequestFailed), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "model not found")
		})
	})
}

func TestClassifier(t *testing.T) {
	Convey("Given a model answer", t, func() {
		f := newFakeEndpoint(`{"event_type":"Pricing Change","confidence":1.7,"reasoning":"price cut",` +
			`"entities":{"products":["Galaxy S24"]}}`)
		defer f.srv.Close()
		cl := NewClassifier(f.client())
		in := provider.ClassifyInput{
			Event: model.NormalizedEvent{ID: "a", Competitor: "Samsung", Region: "EU", Source: "wire"},
			Title: "Samsung cuts prices",
			Text:  "Samsung cuts prices in EU",
		}

		res, err := cl.Classify(context.Background(), in)
		So(err, ShouldBeNil)
		So(res.EventType, ShouldEqual, model.EventPricingChange)
		So(res.Confidence, ShouldEqual, 1)
		So(res.Entities["products"], ShouldResemble, []string{"Galaxy S24"})
		So(res.Entities["companies"], ShouldResemble, []string{"Samsung"})
		So(res.Entities["locations"], ShouldResemble, []string{"EU"})
		So(res.Metadata["id"], ShouldEqual, "a")
		So(f.body().Get("messages.1.content").String(), ShouldContainSubstring, "TEXT: Samsung cuts prices in EU")
		So(cl.Variant(), ShouldEqual, provider.VariantRich)

		Convey("Companies and locations are always present", func() {
			f.content = `{"event_type":"expansion","confidence":0.6}`
			res, err := cl.Classify(context.Background(), provider.ClassifyInput{Text: "Store opening"})
			So(err, ShouldBeNil)
			companies, ok := res.Entities["companies"]
			So(ok, ShouldBeTrue)
			So(companies, ShouldBeEmpty)
			locations, ok := res.Entities["locations"]
			So(ok, ShouldBeTrue)
			So(locations, ShouldBeEmpty)
		})

		Convey("A missing event type is malformed", func() {
			f.content = `{"confidence":0.4}`
			_, err := cl.Classify(context.Background(), in)
			So(errors.Is(err, provider.ErrMalformedResponse), ShouldBeTrue)
		})
	})
}

func TestScorer(t *testing.T) {
	Convey("Given a model answer outside the scale", t, func() {
		f := newFakeEndpoint(`{"impact":12.34,"urgency":"soon","breakdown":{"market":9,"note":"x"},"reasoning":"big"}`)
		defer f.srv.Close()
		s := NewScorer(f.client())

		imp, err := s.Score(context.Background(), model.ClassifiedEvent{})
		So(err, ShouldBeNil)
		So(imp.Impact, ShouldEqual, 10)
		So(imp.Urgency, ShouldEqual, model.UrgencyImmediate)
		So(imp.Breakdown, ShouldResemble, map[string]float64{"market": 9})
		So(imp.Reasoning, ShouldEqual, "big")

		Convey("The urgency label follows the impact", func() {
			f.content = `{"impact":4.44,"urgency":"High"}`
			imp, err := s.Score(context.Background(), model.ClassifiedEvent{})
			So(err, ShouldBeNil)
			So(imp.Impact, ShouldEqual, 4.4)
			So(imp.Urgency, ShouldEqual, model.UrgencyLow)

			f.content = `{"impact":3,"urgency":"immediate"}`
			imp, err = s.Score(context.Background(), model.ClassifiedEvent{})
			So(err, ShouldBeNil)
			So(imp.Urgency, ShouldEqual, model.UrgencyLow)
		})

		Convey("A non-numeric impact is malformed", func() {
			f.content = `{"impact":"high"}`
			_, err := s.Score(context.Background(), model.ClassifiedEvent{})
			So(errors.Is(err, provider.ErrMalformedResponse), ShouldBeTrue)
		})
	})
}

func TestAnalyst(t *testing.T) {
	Convey("Given a model answer", t, func() {
		f := newFakeEndpoint(`{"strategic_context":"Apple is cutting prices","recommendations":["hold price",""],` +
			`"broader_trends":["AI"],"competitive_implications":"margin pressure"}`)
		defer f.srv.Close()
		a := NewAnalyst(f.client())

		s, err := a.Analyze(context.Background(), model.ScoredEvent{Impact: 7.2})
		So(err, ShouldBeNil)
		So(s.StrategicContext, ShouldEqual, "Apple is cutting prices")
		So(s.Recommendations, ShouldResemble, []string{"hold price"})
		So(s.BroaderTrends, ShouldResemble, []string{"AI"})
		So(f.body().Get("messages.1.content").String(), ShouldContainSubstring, "IMPACT: 7.2")

		Convey("A missing context is malformed", func() {
			f.content = `{"recommendations":[]}`
			_, err := a.Analyze(context.Background(), model.ScoredEvent{})
			So(errors.Is(err, provider.ErrMalformedResponse), ShouldBeTrue)
		})
	})
}

func TestRecommender(t *testing.T) {
	Convey("Given a model answer with one unusable action", t, func() {
		f := newFakeEndpoint(`{"actions":[{"title":"Match the promo","priority":"high","urgency_hours":48,` +
			`"implementation_steps":["a","b"]},{"priority":"low"},{"title":"Watch","priority":"whenever"}]}`)
		defer f.srv.Close()
		r := NewRecommender(f.client())
		in := provider.RecommendInput{Impact: 8, Focus: "retail", Company: model.CompanyProfile{Size: "Medium"}}

		recs, err := r.Recommend(context.Background(), in)
		So(err, ShouldBeNil)
		So(len(recs), ShouldEqual, 2)
		So(recs[0].Priority, ShouldEqual, model.PriorityHigh)
		So(recs[0].UrgencyHours, ShouldEqual, 48)
		So(recs[0].ImplementationSteps, ShouldResemble, []string{"a", "b"})
		So(recs[1].Priority, ShouldEqual, model.PriorityMedium)
		So(recs[1].UrgencyHours, ShouldEqual, defaultUrgencyHours)

		prompt := f.body().Get("messages.1.content").String()
		So(prompt, ShouldContainSubstring, "FOCUS: retail")
		So(prompt, ShouldContainSubstring, "size=Medium")

		Convey("No actions is malformed", func() {
			f.content = `{"actions":[]}`
			_, err := r.Recommend(context.Background(), in)
			So(errors.Is(err, provider.ErrMalformedResponse), ShouldBeTrue)
		})
	})
}

func TestAggregator(t *testing.T) {
	Convey("Given a model answer", t, func() {
		f := newFakeEndpoint(`{"executive_summary":"Defend the mid range.",` +
			`"general_action":{"title":"Hold the shelf","priority":"Critical","urgency_hours":240}}`)
		defer f.srv.Close()
		a := NewAggregator(f.client())

		events := make([]model.StrategicEvent, 25)
		for i := range events {
			events[i].Competitor = "Samsung"
			events[i].EventType = model.EventProductLaunch
		}
		out, err := a.Enrich(context.Background(), provider.AggregateInput{Strategic: events})
		So(err, ShouldBeNil)
		So(out.ExecutiveSummary, ShouldEqual, "Defend the mid range.")
		So(out.GeneralAction, ShouldNotBeNil)
		So(out.GeneralAction.Priority, ShouldEqual, model.PriorityCritical)

		b := f.body()
		So(b.Get("messages.0.content").String(), ShouldEqual, aggregateSystem)
		So(b.Get("temperature").Float(), ShouldEqual, 0.2)
		prompt := b.Get("messages.1.content").String()
		So(strings.Count(prompt, "\n- Samsung product_launch"), ShouldEqual, maxEvents)

		Convey("A summary of the wrong type is ignored", func() {
			f.content = `{"executive_summary":42,"general_action":{"title":"Go"}}`
			out, err := a.Enrich(context.Background(), provider.AggregateInput{})
			So(err, ShouldBeNil)
			So(out.ExecutiveSummary, ShouldBeEmpty)
			So(out.GeneralAction.Title, ShouldEqual, "Go")
		})

		Convey("Nothing usable is malformed", func() {
			f.content = `{"executive_summary":null,"general_action":"later"}`
			_, err := a.Enrich(context.Background(), provider.AggregateInput{})
			So(errors.Is(err, provider.ErrMalformedResponse), ShouldBeTrue)
		})
	})
}
