package service_test

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/compintel/internal/adapters/repository"
	service "github.com/okian/compintel/internal/app"
	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/provider"
	"github.com/okian/compintel/internal/provider/registry"
)

var allFallback = registry.Options{Modes: registry.Modes{
	Retriever:   provider.ModeFallback,
	Classifier:  provider.ModeFallback,
	Scorer:      provider.ModeFallback,
	Analyst:     provider.ModeFallback,
	Recommender: provider.ModeFallback,
	Aggregator:  provider.ModeFallback,
}}

func request(comps ...string) model.Request {
	req := model.Request{
		Regions: []string{"US", "EU"},
		Config:  model.RunConfig{SearchTimeframeDays: 7, MaxArticlesPerCompany: 2},
		CompanyProfile: model.CompanyProfile{
			Size: "Medium", MarketPosition: "Challenger", Strengths: []string{"battery_life"},
		},
	}
	for _, c := range comps {
		req.Competitors = append(req.Competitors, model.Competitor{Name: c})
	}
	return req
}

func waitFinished(svc *service.Service, id string) model.Run {
	deadline := time.Now().Add(5 * time.Second)
	for {
		run, err := svc.Get(context.Background(), id)
		So(err, ShouldBeNil)
		if run.Status == model.RunSucceeded || run.Status == model.RunFailed || time.Now().After(deadline) {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithProviders(allFallback))
		ctx := context.Background()

		Convey("Calls before Start report ErrNotStarted", func() {
			_, _, err := svc.Submit(ctx, service.SubmitRequest{Request: request("Acme")})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Get(ctx, "x")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("Start and Stop toggle the started flag", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["queueLength"], ShouldEqual, 0)

			svc.Stop(ctx)
			So(svc.GetStats()["started"], ShouldEqual, false)
			svc.Stop(ctx)
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service on fallback providers", t, func() {
		var n atomic.Int64
		svc := service.New(
			service.WithProviders(allFallback),
			service.WithWorkerCount(2),
			service.WithIDGenerator(func() string { return "run-" + strconv.FormatInt(n.Add(1), 10) }),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("A submitted run completes with a full result", func() {
			id, dup, err := svc.Submit(ctx, service.SubmitRequest{Request: request("Samsung", "Apple")})
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
			So(id, ShouldEqual, "run-1")

			run := waitFinished(svc, id)
			So(run.Status, ShouldEqual, model.RunSucceeded)
			So(run.Result, ShouldNotBeNil)
			So(len(run.Result.Final), ShouldEqual, 4)
			So(run.Result.DailyReport.ReportType, ShouldEqual, "Daily Brief")
			So(run.FinishedAt.IsZero(), ShouldBeFalse)

			text, err := svc.Report(ctx, id)
			So(err, ShouldBeNil)
			So(string(text), ShouldContainSubstring, "Daily Brief")

			runs, err := svc.List(ctx, 10)
			So(err, ShouldBeNil)
			So(len(runs), ShouldEqual, 1)
		})

		Convey("A repeated request id returns the first run", func() {
			sub := service.SubmitRequest{RequestID: "req-1", Request: request("Acme")}
			first, dup, err := svc.Submit(ctx, sub)
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)

			second, dup, err := svc.Submit(ctx, sub)
			So(err, ShouldBeNil)
			So(dup, ShouldBeTrue)
			So(second, ShouldEqual, first)
			So(svc.GetStats()["requestIds"], ShouldEqual, int64(1))
		})

		Convey("A request without competitors is rejected", func() {
			_, _, err := svc.Submit(ctx, service.SubmitRequest{Request: model.Request{}})
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
		})

		Convey("Unknown runs are not found", func() {
			_, err := svc.Get(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = svc.Report(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_Defaults(t *testing.T) {
	Convey("Given a service with a default request", t, func() {
		svc := service.New(
			service.WithProviders(allFallback),
			service.WithDefaults(request("Globex")),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("An empty submission runs the default watchlist", func() {
			id, _, err := svc.Submit(ctx, service.SubmitRequest{})
			So(err, ShouldBeNil)

			run := waitFinished(svc, id)
			So(run.Status, ShouldEqual, model.RunSucceeded)
			So(run.Request.CompetitorNames(), ShouldResemble, []string{"Globex"})
			So(run.Request.Regions, ShouldResemble, []string{"US", "EU"})
		})
	})
}

func TestService_Execute(t *testing.T) {
	Convey("Execute runs synchronously without Start", t, func() {
		svc := service.New(service.WithProviders(allFallback))
		out, err := svc.Execute(context.Background(), request("Acme"))
		So(err, ShouldBeNil)
		So(len(out.Result.Raw), ShouldEqual, 2)
		So(out.Variants[provider.CapClassifier], ShouldEqual, provider.VariantFallback)
	})
}
