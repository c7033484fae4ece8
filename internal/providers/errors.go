package providers

import "errors"

var (
	// ErrProviderUnavailable marks a single vendor failure. Non-fatal,
	// advances the fallback chain.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrDataKindUnavailable means every provider in a chain failed.
	// Callers skip the data kind for the asset, never the whole scan.
	ErrDataKindUnavailable = errors.New("data kind unavailable")

	// ErrNotConfigured marks a provider whose API key is missing. Treated
	// like any other provider failure: the chain advances.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrEmptyResult marks a 2xx response carrying no usable data.
	ErrEmptyResult = errors.New("provider returned empty result")
)
