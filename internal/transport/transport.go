// Package transport defines the capability that attempts delivery of one
// message to one destination, and its concrete implementations.
package transport

import (
	"context"
	"fmt"
)

// Transport attempts delivery of a single message. It is best-effort:
// there are no delivery receipts beyond the immediate accept/reject.
type Transport interface {
	Send(ctx context.Context, message, destination string) error
}

// Error is a transport-level failure. It is local to one send task and is
// recorded as that task's failure reason, never propagated further.
type Error struct {
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport error: %s", e.Description)
}
