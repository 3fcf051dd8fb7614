// Package history keeps the append-only log of past send attempt
// outcomes. The log outlives any single session and is loaded and saved
// as a whole on every mutation.
package history

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketHistory = []byte("history")

// Status is the terminal outcome of a past attempt.
type Status string

const (
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Entry is one persisted attempt outcome.
type Entry struct {
	ID            string            `json:"id"`
	RecipientName string            `json:"recipient_name"`
	Phone         string            `json:"phone"`
	Message       string            `json:"message"`
	Timestamp     time.Time         `json:"timestamp"`
	Status        Status            `json:"status"`
	TemplateName  string            `json:"template_name,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Filter selects entries for the projection read-model.
type Filter struct {
	Status Status
	Search string
	Limit  int
}

// Store persists the history log in a single BoltDB key, whole-log per
// mutation. Missing or corrupt data reads as an empty log.
type Store struct {
	db *bolt.DB
}

// logKey is the fixed key the whole log is stored under.
var logKey = []byte("log")

// NewStore creates a history store.
func NewStore(db *bolt.DB) (*Store, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHistory)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create history bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Load returns all entries, newest first. A missing or unreadable log is
// an empty collection, not an error.
func (s *Store) Load() []Entry {
	var entries []Entry

	s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketHistory).Get(logKey)
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &entries); err != nil {
			entries = nil
		}
		return nil
	})

	return entries
}

// Append inserts entries at the head of the log (newest first) and saves
// the whole log back.
func (s *Store) Append(newEntries ...Entry) error {
	if len(newEntries) == 0 {
		return nil
	}

	for i := range newEntries {
		if newEntries[i].ID == "" {
			newEntries[i].ID = uuid.New().String()
		}
		if newEntries[i].Timestamp.IsZero() {
			newEntries[i].Timestamp = time.Now()
		}
	}

	// Newest batch first, newest within the batch first.
	sort.SliceStable(newEntries, func(i, j int) bool {
		return newEntries[i].Timestamp.After(newEntries[j].Timestamp)
	})

	entries := append(newEntries, s.Load()...)
	return s.save(entries)
}

// Clear removes every entry.
func (s *Store) Clear() error {
	return s.save(nil)
}

func (s *Store) save(entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHistory).Put(logKey, data)
	})
}

// List returns entries matching the filter, preserving newest-first order.
// Pure aggregation over Load; no independent logic.
func (s *Store) List(f Filter) []Entry {
	var out []Entry
	for _, e := range s.Load() {
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.Search != "" {
			search := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(e.RecipientName), search) &&
				!strings.Contains(strings.ToLower(e.Phone), search) &&
				!strings.Contains(strings.ToLower(e.Message), search) {
				continue
			}
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}
