// Package service hosts pipeline runs behind a queue and exposes what the
// HTTP API and CLI need.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/compintel/internal/adapters/mq/queue"
	"github.com/okian/compintel/internal/adapters/mq/worker"
	"github.com/okian/compintel/internal/adapters/repository"
	"github.com/okian/compintel/internal/domain/dedupe"
	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/domain/report"
	"github.com/okian/compintel/internal/pipeline"
	"github.com/okian/compintel/internal/provider/registry"
	"github.com/okian/compintel/pkg/logger"
	"github.com/okian/compintel/pkg/metrics"
)

// SubmitRequest is one run submission. RequestID, when set, makes the
// submission idempotent.
type SubmitRequest struct {
	RequestID string        `json:"request_id,omitempty"`
	Request   model.Request `json:"request"`
}

// Service runs pipelines asynchronously and keeps their results.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   *repository.MemoryStore
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool

	orchMu    sync.Mutex
	orch      *pipeline.Orchestrator
	providers registry.Options
	defaults  model.Request

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	runHistory  int

	now   func() time.Time
	newID func() string

	// State
	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: 1,
		queueSize:   64,
		dedupeSize:  10_000,
		runHistory:  50,
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the pipeline and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting pipeline service...")

	if _, err := s.orchestrator(); err != nil {
		return err
	}
	s.store = repository.NewMemoryStore(ctx, repository.WithMaxRuns(s.runHistory))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s, s.store,
		worker.WithLogger(s.logger.Named("worker")),
		worker.WithClock(s.now),
	)
	// Workers outlive the start context; Stop ends them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "pipeline service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("runHistory", s.runHistory),
	)
	return nil
}

// Stop drains queued runs and shuts the service down.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping pipeline service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	_ = s.store.Close()

	s.started = false
	s.logger.Info(ctx, "pipeline service stopped")
}

// orchestrator returns the shared orchestrator, building it on first use.
func (s *Service) orchestrator() (*pipeline.Orchestrator, error) {
	s.orchMu.Lock()
	defer s.orchMu.Unlock()

	if s.orch == nil {
		o, err := pipeline.New(
			pipeline.WithLogger(s.logger.Named("pipeline")),
			pipeline.WithClock(s.now),
		)
		if err != nil {
			return nil, err
		}
		s.orch = o
	}
	return s.orch, nil
}

// Execute resolves providers and runs the pipeline synchronously.
func (s *Service) Execute(ctx context.Context, req model.Request) (pipeline.Outcome, error) {
	o, err := s.orchestrator()
	if err != nil {
		return pipeline.Outcome{}, err
	}
	opts := s.providers
	if opts.Logger == nil {
		opts.Logger = s.logger.Named("providers")
	}
	set := registry.Resolve(ctx, opts)
	return o.Run(ctx, set, s.withDefaults(req))
}

// withDefaults fills the fields req leaves empty from the configured defaults.
func (s *Service) withDefaults(req model.Request) model.Request {
	d := s.defaults
	if len(req.CompetitorNames()) == 0 {
		req.Competitors = d.Competitors
	}
	if len(req.Regions) == 0 {
		req.Regions = d.Regions
	}
	if req.Config.SearchTimeframeDays <= 0 {
		req.Config.SearchTimeframeDays = d.Config.SearchTimeframeDays
	}
	if req.Config.MaxArticlesPerCompany <= 0 {
		req.Config.MaxArticlesPerCompany = d.Config.MaxArticlesPerCompany
	}
	if req.Config.RecommendationFocus == "" {
		req.Config.RecommendationFocus = d.Config.RecommendationFocus
	}
	if req.CompanyProfile.Size == "" && req.CompanyProfile.MarketPosition == "" &&
		len(req.CompanyProfile.Strengths) == 0 && len(req.CompanyProfile.Markets) == 0 {
		req.CompanyProfile = d.CompanyProfile
	}
	return req
}

// Submit queues a run. A repeated RequestID returns the run that first
// claimed it with duplicate set.
func (s *Service) Submit(ctx context.Context, sub SubmitRequest) (runID string, duplicate bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return "", false, ErrNotStarted
	}
	req := s.withDefaults(sub.Request)
	if len(req.CompetitorNames()) == 0 {
		return "", false, fmt.Errorf("%w: at least one competitor is required", ErrInvalidRequest)
	}

	runID = s.newID()
	if sub.RequestID != "" {
		if owner, seen := s.deduper.Claim(ctx, sub.RequestID, runID); seen {
			metrics.RecordRunDuplicate()
			s.logger.Debug(ctx, "duplicate submission",
				logger.String("request_id", sub.RequestID), logger.String("run_id", owner))
			return owner, true, nil
		}
	}

	now := s.now()
	run := model.Run{
		ID:        runID,
		RequestID: sub.RequestID,
		Status:    model.RunQueued,
		Request:   req,
		CreatedAt: now,
	}
	if err := s.store.Save(ctx, run); err != nil {
		s.release(ctx, sub.RequestID)
		return "", false, fmt.Errorf("save run: %w", err)
	}
	if !s.queue.Enqueue(ctx, queue.Job{RunID: runID, Request: req, EnqueuedAt: now}) {
		s.store.Delete(ctx, runID)
		s.release(ctx, sub.RequestID)
		return "", false, ErrQueueFull
	}

	s.logger.Debug(ctx, "run queued", logger.String("run_id", runID),
		logger.Int("competitors", len(req.Competitors)))
	return runID, false, nil
}

func (s *Service) release(ctx context.Context, requestID string) {
	if requestID != "" {
		s.deduper.Release(ctx, requestID)
	}
}

// Get returns one run.
func (s *Service) Get(ctx context.Context, id string) (model.Run, error) {
	st, err := s.runStore()
	if err != nil {
		return model.Run{}, err
	}
	return st.Get(ctx, id)
}

// List returns up to limit runs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]model.Run, error) {
	st, err := s.runStore()
	if err != nil {
		return nil, err
	}
	return st.List(ctx, limit)
}

// Report renders the plain text report of a succeeded run.
func (s *Service) Report(ctx context.Context, id string) ([]byte, error) {
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Result == nil {
		return nil, fmt.Errorf("%w: status %s", ErrRunNotFinished, run.Status)
	}
	res := run.Result
	return report.ExportText(res.DailyReport, res.Final, res.Aggregated), nil
}

func (s *Service) runStore() (*repository.MemoryStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"runHistory":  s.runHistory,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		runs := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["runs"] = runs
		stats["requestIds"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateRunStoreSize(runs)
	}
	return stats
}
