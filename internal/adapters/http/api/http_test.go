package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/compintel/internal/adapters/http/api"
	"github.com/okian/compintel/internal/adapters/repository"
	service "github.com/okian/compintel/internal/app"
	"github.com/okian/compintel/internal/domain/model"
)

type mockDeps struct {
	submitted []service.SubmitRequest
	submitErr error
	duplicate bool
	runs      map[string]model.Run
	listLimit int
	reportErr error
}

func newMockDeps() *mockDeps {
	return &mockDeps{runs: map[string]model.Run{
		"r1": {ID: "r1", Status: model.RunSucceeded},
	}}
}

func (m *mockDeps) GetStats() map[string]any {
	return map[string]any{"started": true, "runs": len(m.runs)}
}

func (m *mockDeps) Submit(_ context.Context, sub service.SubmitRequest) (string, bool, error) {
	if m.submitErr != nil {
		return "", false, m.submitErr
	}
	m.submitted = append(m.submitted, sub)
	return "r-new", m.duplicate, nil
}

func (m *mockDeps) Get(_ context.Context, id string) (model.Run, error) {
	r, ok := m.runs[id]
	if !ok {
		return model.Run{}, repository.ErrNotFound
	}
	return r, nil
}

func (m *mockDeps) List(_ context.Context, limit int) ([]model.Run, error) {
	m.listLimit = limit
	out := make([]model.Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockDeps) Report(ctx context.Context, id string) ([]byte, error) {
	if m.reportErr != nil {
		return nil, m.reportErr
	}
	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}
	return []byte("Competitive Intelligence - Daily Brief & Actions\n"), nil
}

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDeps()
		mux := http.NewServeMux()
		api.NewServer(deps).Register(mux)

		Convey("Health serves Prometheus exposition", func() {
			w := serve(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "compintel_pipeline_")

			So(serve(mux, http.MethodGet, "/metrics", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Stats returns the provider map", func() {
			w := serve(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["started"], ShouldEqual, true)
		})

		Convey("Unknown paths and wrong methods are rejected", func() {
			So(serve(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, http.MethodDelete, "/runs", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestRunsHandler_Submit(t *testing.T) {
	Convey("Given the runs endpoint", t, func() {
		deps := newMockDeps()
		mux := http.NewServeMux()
		api.NewServer(deps).Register(mux)

		Convey("A valid body is accepted", func() {
			w := serve(mux, http.MethodPost, "/runs",
				`{"request_id":"abc","competitors":[{"name":"Samsung"}],"regions":["US"],"config":{"max_articles_per_company":3}}`)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(w.Header().Get("Location"), ShouldEqual, "/runs/r-new")

			var resp map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(resp["run_id"], ShouldEqual, "r-new")
			So(resp["status"], ShouldEqual, "accepted")

			So(len(deps.submitted), ShouldEqual, 1)
			sub := deps.submitted[0]
			So(sub.RequestID, ShouldEqual, "abc")
			So(sub.Request.CompetitorNames(), ShouldResemble, []string{"Samsung"})
			So(sub.Request.Config.MaxArticlesPerCompany, ShouldEqual, 3)
		})

		Convey("An empty body submits defaults", func() {
			w := serve(mux, http.MethodPost, "/runs", "")
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(len(deps.submitted), ShouldEqual, 1)
		})

		Convey("A duplicate answers 200 with the first run", func() {
			deps.duplicate = true
			w := serve(mux, http.MethodPost, "/runs", `{"request_id":"abc"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
		})

		Convey("Malformed JSON is a bad request", func() {
			w := serve(mux, http.MethodPost, "/runs", `{"competitors":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "bad_request")
		})

		Convey("Service errors map to statuses", func() {
			cases := []struct {
				err  error
				code int
			}{
				{service.ErrInvalidRequest, http.StatusBadRequest},
				{service.ErrQueueFull, http.StatusTooManyRequests},
				{service.ErrNotStarted, http.StatusServiceUnavailable},
				{errors.New("boom"), http.StatusInternalServerError},
			}
			for _, c := range cases {
				deps.submitErr = c.err
				So(serve(mux, http.MethodPost, "/runs", `{}`).Code, ShouldEqual, c.code)
			}
		})
	})
}

func TestRunsHandler_Read(t *testing.T) {
	Convey("Given stored runs", t, func() {
		deps := newMockDeps()
		mux := http.NewServeMux()
		api.NewServer(deps).Register(mux)

		Convey("A run is returned by id", func() {
			w := serve(mux, http.MethodGet, "/runs/r1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var run model.Run
			So(json.Unmarshal(w.Body.Bytes(), &run), ShouldBeNil)
			So(run.ID, ShouldEqual, "r1")
			So(run.Status, ShouldEqual, model.RunSucceeded)
		})

		Convey("An unknown run is 404", func() {
			w := serve(mux, http.MethodGet, "/runs/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, "not_found")
		})

		Convey("List uses the default limit unless one is given", func() {
			So(serve(mux, http.MethodGet, "/runs", "").Code, ShouldEqual, http.StatusOK)
			So(deps.listLimit, ShouldEqual, 20)

			So(serve(mux, http.MethodGet, "/runs?limit=5", "").Code, ShouldEqual, http.StatusOK)
			So(deps.listLimit, ShouldEqual, 5)

			So(serve(mux, http.MethodGet, "/runs?limit=-1", "").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/runs?limit=x", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("The report is plain text", func() {
			w := serve(mux, http.MethodGet, "/runs/r1/report", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/plain")
			So(w.Body.String(), ShouldContainSubstring, "Daily Brief")
		})

		Convey("An unfinished run has no report yet", func() {
			deps.reportErr = service.ErrRunNotFinished
			So(serve(mux, http.MethodGet, "/runs/r1/report", "").Code, ShouldEqual, http.StatusConflict)
		})
	})
}

func TestKindErrors(t *testing.T) {
	Convey("Kind errors unwrap to both kind and cause", t, func() {
		cause := errors.New("eof")
		err := api.WrapKind("op", api.ErrBadRequest, cause)
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "op: bad request: eof")

		So(api.WrapKind("op", api.ErrBadRequest, nil), ShouldBeNil)
		So(api.NewKind("op", api.ErrBackpressure).Error(), ShouldEqual, "op: backpressure")
	})
}
