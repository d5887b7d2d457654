// Package repository stores submitted pipeline runs.
package repository

import (
	"context"

	"github.com/okian/compintel/internal/domain/model"
)

// Store provides read/write access to run history.
type Store interface {
	// Save adds a new run. Returns ErrDuplicateRun if the id is taken.
	Save(ctx context.Context, run model.Run) error

	// Update applies fn to the stored run under the store lock.
	// Returns ErrNotFound if the run is unknown or was evicted.
	Update(ctx context.Context, id string, fn func(*model.Run)) error

	// Get returns a copy of the run.
	Get(ctx context.Context, id string) (model.Run, error)

	// Delete removes a run. Unknown ids are ignored.
	Delete(ctx context.Context, id string)

	// List returns up to limit runs, newest first.
	List(ctx context.Context, limit int) ([]model.Run, error)

	// Count returns the number of retained runs.
	Count(ctx context.Context) int
}
