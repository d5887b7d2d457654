package provider

import "errors"

// Sentinel kinds for provider errors.
var (
	ErrInvalidMode         = errors.New("invalid provider mode")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrEmptyResponse       = errors.New("provider returned an empty response")
	ErrMalformedResponse   = errors.New("provider returned a malformed response")
)
