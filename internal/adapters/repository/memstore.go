package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/pkg/metrics"
)

const (
	defaultMaxRuns               = 100
	defaultMetricsUpdateInterval = 5 * time.Second
)

// MemoryStore is an in-memory Store ordered by insertion.
//
// When more than maxRuns runs are held, the oldest finished runs are
// evicted first. Queued and running runs are never evicted.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*model.Run
	order []string // oldest first

	maxRuns               int
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewMemoryStore constructs a store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:                  make(map[string]*model.Run),
		maxRuns:               defaultMaxRuns,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	metrics.UpdateRunStoreSize(0)
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics goroutine.
func (s *MemoryStore) Close() error {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// Save implements Store.Save.
func (s *MemoryStore) Save(ctx context.Context, run model.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[run.ID]; ok {
		return ErrDuplicateRun
	}
	r := run
	s.byID[run.ID] = &r
	s.order = append(s.order, run.ID)
	s.evictLocked()
	return nil
}

// Update implements Store.Update.
func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*model.Run)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(r)
	r.ID = id
	s.evictLocked()
	return nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, id string) (model.Run, error) {
	if err := ctx.Err(); err != nil {
		return model.Run{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return model.Run{}, ErrNotFound
	}
	return *r, nil
}

// Delete implements Store.Delete.
func (s *MemoryStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// List implements Store.List. A limit of zero lists every run.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]model.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.Run, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *s.byID[s.order[i]])
	}
	return out, nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// evictLocked drops the oldest finished runs while over capacity.
func (s *MemoryStore) evictLocked() {
	over := len(s.order) - s.maxRuns
	if over <= 0 {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if over > 0 && finished(s.byID[id].Status) {
			delete(s.byID, id)
			over--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

func finished(status string) bool {
	return status == model.RunSucceeded || status == model.RunFailed
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateRunStoreSize(s.Count(ctx))
			}
		}
	}()
}
