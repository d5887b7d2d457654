package service

import "errors"

// Sentinel kinds returned by the service.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrInvalidRequest = errors.New("invalid run request")
	ErrQueueFull      = errors.New("run queue full")
	ErrRunNotFinished = errors.New("run has not finished")
)
