package transport

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// SandboxMessage is a message captured by the sandbox instead of being
// delivered.
type SandboxMessage struct {
	Destination string    `json:"destination"`
	Message     string    `json:"message"`
	CapturedAt  time.Time `json:"captured_at"`
}

// Sandbox is a Transport that records messages instead of sending them.
// Used for dry runs and tests; failures can be injected per destination.
type Sandbox struct {
	mu       sync.Mutex
	captured []SandboxMessage
	failures map[string]string
	logger   *slog.Logger
}

// NewSandbox creates a recording transport.
func NewSandbox(logger *slog.Logger) *Sandbox {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sandbox{
		failures: map[string]string{},
		logger:   logger,
	}
}

// FailDestination makes every send to the given destination fail with the
// given reason.
func (s *Sandbox) FailDestination(destination, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[destination] = reason
}

// Send records the message, or fails if a failure was injected for the
// destination.
func (s *Sandbox) Send(ctx context.Context, message, destination string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reason, ok := s.failures[destination]; ok {
		s.logger.Debug("sandbox rejecting message", "destination", destination, "reason", reason)
		return &Error{Description: reason}
	}

	s.captured = append(s.captured, SandboxMessage{
		Destination: destination,
		Message:     message,
		CapturedAt:  time.Now(),
	})
	s.logger.Debug("sandbox captured message", "destination", destination)
	return nil
}

// Captured returns a copy of the recorded messages.
func (s *Sandbox) Captured() []SandboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SandboxMessage, len(s.captured))
	copy(out, s.captured)
	return out
}
