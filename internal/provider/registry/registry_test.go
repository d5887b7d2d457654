package registry

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/compintel/internal/provider"
	"github.com/okian/compintel/internal/provider/llm"
	"github.com/okian/compintel/internal/provider/news"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()

	Convey("Without credentials every capability falls back", t, func() {
		set := Resolve(ctx, Options{})
		v := set.Variants()
		So(v[provider.CapRetriever], ShouldEqual, provider.VariantFallback)
		So(v[provider.CapClassifier], ShouldEqual, provider.VariantFallback)
		So(v[provider.CapRecommender], ShouldEqual, provider.VariantFallback)
		So(set.Aggregator, ShouldBeNil)
		So(set.Fallback.Classifier, ShouldNotBeNil)
	})

	Convey("Explicit rich mode without a credential still falls back", t, func() {
		set := Resolve(ctx, Options{Modes: Modes{Classifier: provider.ModeRich, Retriever: provider.ModeRich}})
		So(set.Classifier.Variant(), ShouldEqual, provider.VariantFallback)
		So(set.Retriever.Variant(), ShouldEqual, provider.VariantFallback)
	})

	Convey("With credentials auto mode selects rich variants", t, func() {
		set := Resolve(ctx, Options{
			LLM:  llm.Config{APIKey: "k"},
			News: news.Config{APIKey: "n"},
		})
		for capName, v := range set.Variants() {
			So(capName+"="+v, ShouldEqual, capName+"="+provider.VariantRich)
		}
		So(set.Fallback.Scorer.Variant(), ShouldEqual, provider.VariantFallback)
	})

	Convey("Fallback mode wins over a present credential", t, func() {
		set := Resolve(ctx, Options{
			LLM:   llm.Config{APIKey: "k"},
			Modes: Modes{Scorer: provider.ModeFallback, Aggregator: provider.ModeFallback},
		})
		So(set.Scorer.Variant(), ShouldEqual, provider.VariantFallback)
		So(set.Analyst.Variant(), ShouldEqual, provider.VariantRich)
		So(set.Aggregator, ShouldBeNil)
	})
}
