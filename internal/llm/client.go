// Package llm wraps the external text-completion collaborator. The pipeline
// only ever needs "prompt in, text out", optionally JSON-constrained for the
// planner and the builder's needs-list.
package llm

import (
	"context"
	"errors"
)

// Request is one completion call.
type Request struct {
	System string
	Prompt string
	// JSONOutput asks the provider to constrain the response to a JSON
	// object. Callers still validate: providers are not trusted to comply.
	JSONOutput bool
}

// Client is the language-model collaborator boundary.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrTimeout marks a completion attempt that exceeded its per-call deadline.
// It is recoverable at the chapter level: the caller degrades to placeholder
// content rather than failing the chapter.
var ErrTimeout = errors.New("language model call timed out")

// IsTimeout reports whether err represents a per-call deadline expiry.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
