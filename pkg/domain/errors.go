package domain

import "errors"

var (
	// ErrBudgetExhausted means the daily provider-call budget was spent
	// before the call. Surfaced as an empty result set, never a failure.
	ErrBudgetExhausted = errors.New("daily provider call budget exhausted")

	// ErrProviderUnavailable covers transport, decode, and throttling
	// failures on a shopping-provider call after retries.
	ErrProviderUnavailable = errors.New("shopping provider unavailable")

	// ErrNotConfigured means a required provider credential is missing.
	// A deployment precondition failure, not a per-request error.
	ErrNotConfigured = errors.New("provider credential not configured")
)

func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}
