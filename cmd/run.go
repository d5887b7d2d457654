package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	app "github.com/okian/compintel/internal/app"
	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/domain/report"
	"github.com/okian/compintel/internal/pipeline"
)

// runFlags overrides the configured default request for one run.
type runFlags struct {
	competitors []string
	regions     []string
	articles    int
	days        int
	focus       string
	format      string
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one pipeline run and print the result",
	Long: "Runs the pipeline once in process. Output is the full result as JSON\n" +
		"or the plain text daily brief and actions.",
	RunE: runOnce,
}

func init() {
	f := runCmd.Flags()
	f.StringSliceVar(&runOpts.competitors, "competitor", nil, "competitor to watch (repeatable)")
	f.StringSliceVar(&runOpts.regions, "region", nil, "region to watch (repeatable)")
	f.IntVar(&runOpts.articles, "articles", 0, "max articles per competitor")
	f.IntVar(&runOpts.days, "days", 0, "search timeframe in days")
	f.StringVar(&runOpts.focus, "focus", "", "recommendation focus")
	f.StringVarP(&runOpts.format, "format", "f", "json", "output format: json or text")
}

func runOnce(cmd *cobra.Command, _ []string) error {
	if runOpts.format != "json" && runOpts.format != "text" {
		return fmt.Errorf("unknown format %q", runOpts.format)
	}
	ctx := cmd.Context()
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	opts, err := serviceOptions(cfg, log)
	if err != nil {
		return err
	}

	out, err := app.New(opts...).Execute(ctx, runOpts.request())
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}
	return writeOutcome(cmd.OutOrStdout(), runOpts.format, out)
}

// request builds the run request from flags. Empty fields are filled from
// configuration by the service.
func (f runFlags) request() model.Request {
	req := model.Request{
		Regions: f.regions,
		Config: model.RunConfig{
			SearchTimeframeDays:   f.days,
			MaxArticlesPerCompany: f.articles,
			RecommendationFocus:   f.focus,
		},
	}
	for _, c := range f.competitors {
		req.Competitors = append(req.Competitors, model.Competitor{Name: c})
	}
	return req
}

func writeOutcome(w io.Writer, format string, out pipeline.Outcome) error {
	if format == "text" {
		res := out.Result
		_, err := w.Write(report.ExportText(res.DailyReport, res.Final, res.Aggregated))
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Fallback bool              `json:"fallback"`
		Variants map[string]string `json:"variants"`
		Result   model.ResultBag   `json:"result"`
	}{out.Fallback, out.Variants, out.Result})
}
