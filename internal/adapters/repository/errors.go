package repository

import "errors"

// Sentinel kinds for run store errors.
var (
	ErrNotFound     = errors.New("run not found")
	ErrDuplicateRun = errors.New("run already exists")
	ErrInvalidLimit = errors.New("invalid list limit")
)
