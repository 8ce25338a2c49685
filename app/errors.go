package app

import (
	"errors"
	"fmt"

	"github.com/IsaacKoome/glowscanweb/app/models"
)

// ErrEmptyResponse is reported when the AI backend returned no text at all.
var ErrEmptyResponse = errors.New("model returned an empty response")

// ErrBackendUnavailable is reported when no eligible AI backend is
// configured, or the chosen backend call failed or timed out.
var ErrBackendUnavailable = errors.New("ai backend unavailable")

// ErrStoreUnavailable is reported when the user record store is not
// configured or unreachable. Record-dependent paths fail closed on it.
var ErrStoreUnavailable = errors.New("user record store unavailable")

// ErrUserNotFound is returned by record-store lookups keyed on payment
// processor identifiers.
var ErrUserNotFound = errors.New("user not found")

// unparseableError carries the raw model output for server-side logging.
// The raw text is never echoed back to clients.
type unparseableError struct {
	raw string
}

func (e unparseableError) Error() string {
	return "model response is not valid JSON"
}

// quotaError means every eligible backend for the user's plan is exhausted
// for today. User-actionable: upgrade the plan.
type quotaError struct {
	Plan models.Plan
}

func (e quotaError) Error() string {
	return fmt.Sprintf("daily analysis quota exceeded for plan %q", e.Plan)
}
