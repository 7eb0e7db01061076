package provider

import (
	"errors"
	"fmt"
)

// ErrAuth marks a provider login failure. It is fatal to the surrounding run;
// only the orchestrator retries, at the next scheduled slot.
var ErrAuth = errors.New("provider authentication failed")

// RequestError carries the upstream message of a failed provider call. The
// client never retries internally.
type RequestError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s failed with status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s failed: %s", e.Op, e.Message)
}
