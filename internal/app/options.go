package service

import (
	"time"

	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/pipeline"
	"github.com/okian/compintel/internal/provider/registry"
	"github.com/okian/compintel/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of run workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued runs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the number of remembered request ids.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRunHistory sets the number of finished runs kept in memory.
func WithRunHistory(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.runHistory = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPipeline sets a prebuilt orchestrator instead of the default graph.
func WithPipeline(o *pipeline.Orchestrator) Option {
	return func(s *Service) {
		if o != nil {
			s.orch = o
		}
	}
}

// WithProviders sets how each run resolves its capability providers.
func WithProviders(opts registry.Options) Option {
	return func(s *Service) {
		s.providers = opts
	}
}

// WithDefaults sets the request used to fill fields a submission omits.
func WithDefaults(req model.Request) Option {
	return func(s *Service) {
		s.defaults = req
	}
}

// WithClock sets the time source for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}
