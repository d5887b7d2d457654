// Package pipeline runs the staged competitor intelligence workflow.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/provider"
	"github.com/okian/compintel/pkg/logger"
	"github.com/okian/compintel/pkg/metrics"
)

// DefaultAnalyzeLimit caps how many scored events reach strategic analysis.
const DefaultAnalyzeLimit = 10

// Outcome is the result of one run.
type Outcome struct {
	Result model.ResultBag
	// Fallback is set when the graph produced nothing usable and the
	// sequential fallback run supplied the result.
	Fallback bool
	Variants map[string]string
}

// Orchestrator executes the compiled stage graph.
type Orchestrator struct {
	nodes        []node
	table        map[string]stageFunc
	log          logger.Logger
	now          func() time.Time
	analyzeLimit int
	definition   []byte
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithAnalyzeLimit overrides DefaultAnalyzeLimit.
func WithAnalyzeLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.analyzeLimit = n
		}
	}
}

// WithDefinition replaces the embedded graph definition.
func WithDefinition(yamlDef []byte) Option {
	return func(o *Orchestrator) {
		o.definition = yamlDef
	}
}

// New compiles the stage graph. Any failure is fatal and wraps ErrPipelineUnavailable.
func New(opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		table:        stageTable(),
		log:          logger.Nop(),
		now:          time.Now,
		analyzeLimit: DefaultAnalyzeLimit,
		definition:   defaultDefinition,
	}
	for _, opt := range opts {
		opt(o)
	}
	def, err := LoadDefinition(o.definition)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipelineUnavailable, err)
	}
	nodes, err := compile(def, o.table)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipelineUnavailable, err)
	}
	o.nodes = nodes
	return o, nil
}

// Run executes one pipeline run with set. When the graph fails or yields an
// empty result, the fallback providers are run through the same stages in
// their fixed order. Cancellation is checked between stages and discards
// partial results.
func (o *Orchestrator) Run(ctx context.Context, set provider.Set, req model.Request) (Outcome, error) {
	start := time.Now()
	e := &executor{set: set, log: o.log, now: o.now(), analyzeLimit: o.analyzeLimit}

	st, err := o.walk(ctx, e, req, o.nodes)
	if err == nil && !st.Result().Empty() {
		metrics.RecordRun(metrics.OutcomeSucceeded, msSince(start))
		return Outcome{Result: st.Result(), Variants: set.Variants()}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		metrics.RecordRun(metrics.OutcomeCancelled, msSince(start))
		return Outcome{}, ctxErr
	}
	if err != nil {
		o.log.Warn(ctx, "pipeline run failed, starting fallback run", logger.Error(err))
	} else {
		o.log.Warn(ctx, "pipeline run produced no output, starting fallback run")
	}

	fallbackSet := set.FallbackOnly()
	e = &executor{set: fallbackSet, log: o.log, now: e.now, analyzeLimit: o.analyzeLimit}
	st, err = o.walk(ctx, e, req, o.sequence())
	if err != nil {
		outcome := metrics.OutcomeFailed
		if ctx.Err() != nil {
			outcome = metrics.OutcomeCancelled
		}
		metrics.RecordRun(outcome, msSince(start))
		return Outcome{}, fmt.Errorf("fallback run: %w", err)
	}
	if st.Result().Empty() {
		metrics.RecordRun(metrics.OutcomeFailed, msSince(start))
		return Outcome{}, ErrNoOutput
	}
	metrics.RecordRun(metrics.OutcomeFallback, msSince(start))
	return Outcome{Result: st.Result(), Fallback: true, Variants: fallbackSet.Variants()}, nil
}

// sequence is the fixed stage order of the fallback run, independent of the graph.
func (o *Orchestrator) sequence() []node {
	out := make([]node, 0, len(stageOrder))
	for _, name := range stageOrder {
		out = append(out, node{name: name, stage: name, run: o.table[name]})
	}
	return out
}

func (o *Orchestrator) walk(ctx context.Context, e *executor, req model.Request, nodes []node) (State, error) {
	st := State{Request: req}
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return State{}, err
		}
		next, err := o.step(ctx, e, n, st)
		if err != nil {
			return State{}, err
		}
		st = next
	}
	return st, nil
}

func (o *Orchestrator) step(ctx context.Context, e *executor, n node, st State) (out State, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrStagePanic, n.name, r)
		}
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			metrics.RecordErrorByComponent("pipeline", n.stage)
			o.log.Error(ctx, "stage failed", logger.String("stage", n.name), logger.Error(err))
		}
	}()

	out, err = n.run(e, ctx, st)
	if err != nil {
		return State{}, err
	}
	metrics.RecordStage(n.stage, msSince(start), out.emitted(n.stage))
	o.log.Debug(ctx, "stage finished",
		logger.String("stage", n.name),
		logger.Int("events", out.emitted(n.stage)),
		logger.Duration("took", time.Since(start)))
	return out, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
