package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/foxzi/textry/internal/metrics"
	"github.com/foxzi/textry/internal/recipient"
	"github.com/foxzi/textry/internal/template"
	"github.com/foxzi/textry/internal/transport"
)

// Recorder receives the final states of the tasks a run attempted. Used
// to append outcomes to the persisted history log; a retry run reports
// only the retried tasks.
type Recorder func(tasks []Task)

// Orchestrator executes send sessions: one task per recipient, dispatched
// strictly in order against the transport, with a pacing delay between
// sends. A task's transport failure never aborts the session; the only
// way to stop early is Cancel.
type Orchestrator struct {
	mu           sync.Mutex
	tasks        []*Task
	currentIndex int
	running      bool
	stopCh       chan struct{}

	delay     time.Duration
	transport transport.Transport
	recorder  Recorder
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator sending through the given
// transport. A delay <= 0 disables pacing.
func NewOrchestrator(t transport.Transport, delay time.Duration, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		delay:     delay,
		transport: t,
		logger:    logger,
	}
}

// SetRecorder registers a hook invoked with the final task states after
// each run (start or retry) finishes.
func (o *Orchestrator) SetRecorder(r Recorder) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recorder = r
}

// Start sends the literal message unmodified to every recipient.
// It is a no-op if recipients or message is empty, or if a session is
// already running.
func (o *Orchestrator) Start(ctx context.Context, recipients []recipient.Sendable, message string) {
	o.start(ctx, recipients, message, false)
}

// StartPersonalized personalizes the message per recipient via placeholder
// substitution before sending.
func (o *Orchestrator) StartPersonalized(ctx context.Context, recipients []recipient.Sendable, message string) {
	o.start(ctx, recipients, message, true)
}

func (o *Orchestrator) start(ctx context.Context, recipients []recipient.Sendable, message string, personalize bool) {
	if len(recipients) == 0 || message == "" {
		return
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return
	}

	// Recipients without a usable destination are dropped, not failed.
	o.tasks = nil
	for _, r := range recipients {
		if r.Destination() == "" {
			continue
		}
		o.tasks = append(o.tasks, newTask(r.DisplayName(), r.Destination(), r.SubstitutionFields()))
	}
	if len(o.tasks) == 0 {
		o.mu.Unlock()
		return
	}

	o.currentIndex = 0
	o.running = true
	o.stopCh = make(chan struct{})
	tasks := o.tasks
	o.mu.Unlock()

	o.logger.Info("send session started", "tasks", len(tasks), "personalized", personalize)
	metrics.SetSessionRunning(true)
	o.run(ctx, tasks, message, personalize)
}

// run executes tasks in order. Both suspension points (the transport call
// and the pacing delay) honor cancellation.
func (o *Orchestrator) run(ctx context.Context, tasks []*Task, message string, personalize bool) {
	for i, task := range tasks {
		if !o.IsRunning() {
			// Remaining tasks stay pending (or were reclassified by Cancel).
			break
		}

		o.mu.Lock()
		o.currentIndex = i
		task.Status = StatusSending
		o.mu.Unlock()

		body := message
		if personalize {
			body = template.Substitute(message, task.Recipient.Fields)
		}

		err := o.transport.Send(ctx, body, task.Recipient.Phone)

		o.mu.Lock()
		if err != nil {
			task.Status = StatusFailed
			task.FailureReason = err.Error()
			o.mu.Unlock()
			metrics.IncMessagesFailed()
			o.logger.Warn("send failed", "recipient", task.Recipient.Name, "error", err)
		} else {
			task.Status = StatusSent
			task.FailureReason = ""
			o.mu.Unlock()
			metrics.IncMessagesSent()
			o.logger.Info("message sent", "recipient", task.Recipient.Name)
		}

		metrics.SetSessionProgress(o.Progress())

		// Pacing avoids tripping anti-spam throttling in the external
		// messaging surface. Skipped entirely after the final task.
		if i < len(tasks)-1 && o.IsRunning() {
			o.pause(ctx)
		}
	}

	o.mu.Lock()
	o.running = false
	recorder := o.recorder
	o.mu.Unlock()

	metrics.SetSessionRunning(false)
	o.logger.Info("send session finished", "summary", o.Summary())
	if recorder != nil {
		// Only this run's tasks: a retry run must not re-record outcomes
		// the first run already reported.
		o.mu.Lock()
		out := make([]Task, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, *t)
		}
		o.mu.Unlock()
		recorder(out)
	}
}

// pause sleeps for the configured delay, waking early on cancellation.
func (o *Orchestrator) pause(ctx context.Context) {
	if o.delay <= 0 {
		return
	}

	o.mu.Lock()
	stop := o.stopCh
	o.mu.Unlock()

	timer := time.NewTimer(o.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-stop:
	case <-timer.C:
	}
}

// Cancel stops the session immediately. Every task still pending or
// sending is reclassified to Failed("Cancelled") in one synchronous pass;
// a task already dispatched to the transport is allowed to complete, and
// its eventual transport outcome overwrites the reclassification.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		o.running = false
		if o.stopCh != nil {
			// Left closed so a concurrent pause always wakes.
			close(o.stopCh)
		}
	}

	for _, t := range o.tasks {
		if t.Status == StatusPending || t.Status == StatusSending {
			t.Status = StatusFailed
			t.FailureReason = CancelledReason
		}
	}

	o.logger.Info("send session cancelled")
}

// RetryFailed re-sends exactly the tasks currently failed, preserving
// their original order. Each retry re-personalizes the message from the
// task's own frozen field snapshot. No-op if a session is running.
func (o *Orchestrator) RetryFailed(ctx context.Context, message string) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return
	}

	var failed []*Task
	for _, t := range o.tasks {
		if t.Status == StatusFailed {
			failed = append(failed, t)
		}
	}
	if len(failed) == 0 {
		o.mu.Unlock()
		return
	}

	for _, t := range failed {
		t.Status = StatusPending
		t.FailureReason = ""
	}
	o.running = true
	o.stopCh = make(chan struct{})
	o.mu.Unlock()

	o.logger.Info("retrying failed tasks", "count", len(failed))
	metrics.SetSessionRunning(true)
	o.run(ctx, failed, message, true)
}

// Reset clears all tasks and counters. Only meaningful when not running.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return
	}
	o.tasks = nil
	o.currentIndex = 0
}

// IsRunning reports whether a session is actively dispatching.
func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Summary returns the aggregated task counts.
func (o *Orchestrator) Summary() Summary {
	o.mu.Lock()
	defer o.mu.Unlock()
	return summarize(o.tasks)
}

// Progress returns the completed fraction in 0..1, where completed means
// sent or failed.
func (o *Orchestrator) Progress() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.tasks) == 0 {
		return 0
	}
	completed := 0
	for _, t := range o.tasks {
		if t.Status == StatusSent || t.Status == StatusFailed {
			completed++
		}
	}
	return float64(completed) / float64(len(o.tasks))
}

// Snapshot returns a copy of the task list for external readers. Readers
// must never mutate task state; only the orchestrator does.
func (o *Orchestrator) Snapshot() []Task {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Task, 0, len(o.tasks))
	for _, t := range o.tasks {
		out = append(out, *t)
	}
	return out
}
