package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/foxzi/textry/internal/recipient"
)

// mockTransport records sent messages and can be told to fail specific
// destinations or to run a hook on each send.
type mockTransport struct {
	mu     sync.Mutex
	sent   []string
	bodies map[string]string
	fail   map[string]error
	onSend func(dest string)
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		bodies: map[string]string{},
		fail:   map[string]error{},
	}
}

func (m *mockTransport) Send(ctx context.Context, message, destination string) error {
	m.mu.Lock()
	m.sent = append(m.sent, destination)
	m.bodies[destination] = message
	err := m.fail[destination]
	hook := m.onSend
	m.mu.Unlock()

	if hook != nil {
		hook(destination)
	}
	return err
}

func (m *mockTransport) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func testRecipients(phones ...string) []recipient.Sendable {
	out := make([]recipient.Sendable, 0, len(phones))
	for i, p := range phones {
		r := recipient.New("User", string(rune('A'+i)), p, nil)
		out = append(out, r)
	}
	return out
}

func TestStartSendsAllTasks(t *testing.T) {
	tr := newMockTransport()
	tr.fail["+12025550101"] = errors.New("gateway rejected")

	orch := NewOrchestrator(tr, 0, nil)
	orch.Start(context.Background(), testRecipients("+12025550100", "+12025550101", "+12025550102"), "hello")

	summary := orch.Summary()
	if summary.Total != 3 || summary.Sent != 2 || summary.Failed != 1 || summary.Pending != 0 {
		t.Errorf("summary = %+v, want total 3, sent 2, failed 1, pending 0", summary)
	}
	if !summary.IsComplete() {
		t.Error("session should be complete")
	}
	if got := summary.SuccessRate(); got < 66.6 || got > 66.7 {
		t.Errorf("SuccessRate() = %v, want ~66.67", got)
	}

	tasks := orch.Snapshot()
	if tasks[1].Status != StatusFailed || tasks[1].FailureReason != "gateway rejected" {
		t.Errorf("failed task = %+v", tasks[1])
	}
}

func TestStartPreservesOrder(t *testing.T) {
	tr := newMockTransport()
	orch := NewOrchestrator(tr, 0, nil)
	orch.Start(context.Background(), testRecipients("+12025550100", "+12025550101", "+12025550102"), "hello")

	want := []string{"+12025550100", "+12025550101", "+12025550102"}
	for i, dest := range want {
		if tr.sent[i] != dest {
			t.Errorf("send order[%d] = %q, want %q", i, tr.sent[i], dest)
		}
	}
}

func TestStartPersonalized(t *testing.T) {
	tr := newMockTransport()
	orch := NewOrchestrator(tr, 0, nil)

	r := recipient.New("Ann", "Lee", "+12025550100", map[string]string{"company": "Acme"})
	orch.StartPersonalized(context.Background(), []recipient.Sendable{r}, "Hi {{firstname}} from {{company}}, re {{missing}}!")

	if got := tr.bodies["+12025550100"]; got != "Hi Ann from Acme, re !" {
		t.Errorf("personalized body = %q", got)
	}
}

func TestStartNoOps(t *testing.T) {
	tr := newMockTransport()
	orch := NewOrchestrator(tr, 0, nil)
	ctx := context.Background()

	orch.Start(ctx, nil, "hello")
	orch.Start(ctx, testRecipients("+12025550100"), "")
	if tr.sentCount() != 0 {
		t.Errorf("no-op starts sent %d messages", tr.sentCount())
	}
	if orch.Summary().Total != 0 {
		t.Error("no-op start should not create tasks")
	}
}

func TestStartDropsEmptyDestinations(t *testing.T) {
	tr := newMockTransport()
	orch := NewOrchestrator(tr, 0, nil)

	recipients := []recipient.Sendable{
		recipient.New("Ann", "", "+12025550100", nil),
		recipient.New("NoPhone", "", "", nil),
	}
	orch.Start(context.Background(), recipients, "hello")

	if got := orch.Summary().Total; got != 1 {
		t.Errorf("total = %d, want 1 (empty destination dropped)", got)
	}
}

func TestCancelReclassifiesRemaining(t *testing.T) {
	tr := newMockTransport()
	orch := NewOrchestrator(tr, 0, nil)

	// Cancel from inside the first send: the in-flight task's transport
	// outcome wins, the rest become Failed("Cancelled").
	tr.onSend = func(dest string) {
		if dest == "+12025550100" {
			orch.Cancel()
		}
	}

	orch.Start(context.Background(), testRecipients("+12025550100", "+12025550101", "+12025550102"), "hello")

	if tr.sentCount() != 1 {
		t.Fatalf("sent %d messages after cancel, want 1", tr.sentCount())
	}

	tasks := orch.Snapshot()
	if tasks[0].Status != StatusSent {
		t.Errorf("in-flight task status = %q, want sent", tasks[0].Status)
	}
	for _, task := range tasks[1:] {
		if task.Status != StatusFailed || task.FailureReason != CancelledReason {
			t.Errorf("remaining task = %+v, want failed/Cancelled", task)
		}
	}

	summary := orch.Summary()
	if summary.Pending != 0 {
		t.Errorf("pending = %d after cancel, want 0", summary.Pending)
	}
	if !summary.IsComplete() {
		t.Error("cancelled session should be complete")
	}
}

func TestCancelWakesPacingDelay(t *testing.T) {
	tr := newMockTransport()
	orch := NewOrchestrator(tr, time.Minute, nil)

	tr.onSend = func(dest string) {
		go orch.Cancel()
	}

	done := make(chan struct{})
	go func() {
		orch.Start(context.Background(), testRecipients("+12025550100", "+12025550101"), "hello")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("cancel did not interrupt the pacing delay")
	}
}

func TestRetryFailed(t *testing.T) {
	tr := newMockTransport()
	tr.fail["+12025550101"] = errors.New("temporary outage")

	orch := NewOrchestrator(tr, 0, nil)
	orch.Start(context.Background(), testRecipients("+12025550100", "+12025550101"), "hello")

	if s := orch.Summary(); s.Failed != 1 {
		t.Fatalf("failed = %d, want 1", s.Failed)
	}

	tr.mu.Lock()
	delete(tr.fail, "+12025550101")
	tr.mu.Unlock()

	orch.RetryFailed(context.Background(), "hello")

	summary := orch.Summary()
	if summary.Sent != 2 || summary.Failed != 0 {
		t.Errorf("summary after retry = %+v, want sent 2, failed 0", summary)
	}
	// First run sends both, retry re-sends only the failed one.
	if tr.sentCount() != 3 {
		t.Errorf("total sends = %d, want 3", tr.sentCount())
	}
}

func TestRetryFailedNoFailedTasks(t *testing.T) {
	tr := newMockTransport()
	orch := NewOrchestrator(tr, 0, nil)
	orch.Start(context.Background(), testRecipients("+12025550100"), "hello")

	before := tr.sentCount()
	orch.RetryFailed(context.Background(), "hello")
	if tr.sentCount() != before {
		t.Error("retry with no failed tasks should be a no-op")
	}
}

func TestRecorderInvokedWithFinalStates(t *testing.T) {
	tr := newMockTransport()
	tr.fail["+12025550101"] = errors.New("rejected")

	orch := NewOrchestrator(tr, 0, nil)

	var recorded []Task
	orch.SetRecorder(func(tasks []Task) { recorded = tasks })

	orch.Start(context.Background(), testRecipients("+12025550100", "+12025550101"), "hello")

	if len(recorded) != 2 {
		t.Fatalf("recorder got %d tasks, want 2", len(recorded))
	}
	if recorded[0].Status != StatusSent || recorded[1].Status != StatusFailed {
		t.Errorf("recorded statuses = %q, %q", recorded[0].Status, recorded[1].Status)
	}
}

func TestRecorderOnRetryReceivesOnlyRetriedTasks(t *testing.T) {
	tr := newMockTransport()
	tr.fail["+12025550101"] = errors.New("temporary outage")

	orch := NewOrchestrator(tr, 0, nil)

	var invocations [][]Task
	orch.SetRecorder(func(tasks []Task) { invocations = append(invocations, tasks) })

	orch.Start(context.Background(), testRecipients("+12025550100", "+12025550101"), "hello")

	tr.mu.Lock()
	delete(tr.fail, "+12025550101")
	tr.mu.Unlock()

	orch.RetryFailed(context.Background(), "hello")

	if len(invocations) != 2 {
		t.Fatalf("recorder invoked %d times, want 2", len(invocations))
	}
	if len(invocations[0]) != 2 {
		t.Errorf("first run recorded %d tasks, want 2", len(invocations[0]))
	}
	// The retry run reports only the task it attempted; re-recording the
	// already-sent task would duplicate its history entry.
	if len(invocations[1]) != 1 {
		t.Fatalf("retry run recorded %d tasks, want 1", len(invocations[1]))
	}
	if invocations[1][0].Recipient.Phone != "+12025550101" || invocations[1][0].Status != StatusSent {
		t.Errorf("retry run recorded %+v", invocations[1][0])
	}
}

func TestResetClearsTasksWhenIdle(t *testing.T) {
	tr := newMockTransport()
	orch := NewOrchestrator(tr, 0, nil)
	orch.Start(context.Background(), testRecipients("+12025550100"), "hello")

	orch.Reset()
	if got := orch.Summary().Total; got != 0 {
		t.Errorf("total after reset = %d, want 0", got)
	}
}

func TestProgress(t *testing.T) {
	tr := newMockTransport()
	orch := NewOrchestrator(tr, 0, nil)

	if got := orch.Progress(); got != 0 {
		t.Errorf("progress with no tasks = %v, want 0", got)
	}

	orch.Start(context.Background(), testRecipients("+12025550100", "+12025550101"), "hello")
	if got := orch.Progress(); got != 1 {
		t.Errorf("progress after completion = %v, want 1", got)
	}
}

func TestSummarizeCountsSendingAsPending(t *testing.T) {
	tasks := []*Task{
		{Status: StatusSent},
		{Status: StatusSending},
		{Status: StatusPending},
	}
	s := summarize(tasks)
	if s.Pending != 2 {
		t.Errorf("pending = %d, want 2 (sending counts as pending)", s.Pending)
	}
	if s.IsComplete() {
		t.Error("session with sending task should not be complete")
	}
}

func TestSuccessRateEmptySession(t *testing.T) {
	if got := (Summary{}).SuccessRate(); got != 0 {
		t.Errorf("SuccessRate() with no tasks = %v, want 0", got)
	}
}
