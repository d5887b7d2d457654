package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/compintel/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then service defaults are set", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.RunQueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
			convey.So(cfg.RunHistory, convey.ShouldEqual, 50)
		})

		convey.Convey("Then run defaults match the dashboard defaults", func() {
			convey.So(cfg.Regions, convey.ShouldResemble, []string{"US", "EU", "KSA", "UAE", "IN"})
			convey.So(cfg.SearchTimeframeDays, convey.ShouldEqual, 7)
			convey.So(cfg.MaxArticlesPerCompany, convey.ShouldEqual, 15)
			convey.So(cfg.CompanyMarketPosition, convey.ShouldEqual, "Value midrange challenger")
		})

		convey.Convey("Then every capability starts in auto mode", func() {
			for _, m := range []string{cfg.RetrievalMode, cfg.ClassifierMode, cfg.ScorerMode,
				cfg.AnalystMode, cfg.RecommenderMode, cfg.AggregatorMode} {
				convey.So(m, convey.ShouldEqual, config.ModeAuto)
			}
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then timeouts convert from milliseconds", func() {
			convey.So(cfg.LLMTimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.NewsTimeout(), convey.ShouldEqual, 15*time.Second)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("An unknown mode is rejected", func() {
			cfg.ScorerMode = "magic"
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "scorer_mode")
		})

		convey.Convey("Mode names are case-insensitive", func() {
			cfg.AnalystMode = "Fallback"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("A non-positive timeframe is rejected", func() {
			cfg.SearchTimeframeDays = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("A non-positive article cap is rejected", func() {
			cfg.MaxArticlesPerCompany = -1
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
