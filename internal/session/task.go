// Package session drives one run of dispatching a fixed set of send
// tasks: per-task state machine, sequential pacing, cancellation and
// retry.
package session

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the status of a single send task.
type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusSending TaskStatus = "sending"
	StatusSent    TaskStatus = "sent"
	StatusFailed  TaskStatus = "failed"
)

// CancelledReason is the failure reason recorded for tasks reclassified
// by Cancel.
const CancelledReason = "Cancelled"

// Snapshot is a recipient's identity frozen at session start. Later edits
// to the source record never affect an in-flight or completed task.
type Snapshot struct {
	Name   string            `json:"name"`
	Phone  string            `json:"phone"`
	Fields map[string]string `json:"fields"`
}

// Task is one message attempt, owned exclusively by the session. Status
// transitions are driven only by the orchestrator.
type Task struct {
	ID            string     `json:"id"`
	Recipient     Snapshot   `json:"recipient"`
	Status        TaskStatus `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`

	// CreatedAt records when the attempt was scheduled, not when it
	// completed. It is never updated on status change.
	CreatedAt time.Time `json:"created_at"`
}

func newTask(name, phone string, fields map[string]string) *Task {
	frozen := make(map[string]string, len(fields))
	for k, v := range fields {
		frozen[k] = v
	}
	return &Task{
		ID: uuid.New().String(),
		Recipient: Snapshot{
			Name:   name,
			Phone:  phone,
			Fields: frozen,
		},
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// Summary is the derived read-model over a session's tasks.
type Summary struct {
	Total   int `json:"total"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

// IsComplete reports whether no task is still pending or sending.
func (s Summary) IsComplete() bool {
	return s.Pending == 0
}

// SuccessRate returns sent/total as a percentage, 0 when there are no
// tasks.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Sent) / float64(s.Total) * 100
}

func summarize(tasks []*Task) Summary {
	s := Summary{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case StatusSent:
			s.Sent++
		case StatusFailed:
			s.Failed++
		default:
			// Pending and Sending both count as pending.
			s.Pending++
		}
	}
	return s
}
