package history

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := bolt.Open(filepath.Join(t.TempDir(), "test.db"), 0600, nil)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestLoadEmptyStore(t *testing.T) {
	store := newTestStore(t)
	if entries := store.Load(); len(entries) != 0 {
		t.Errorf("empty store loaded %d entries", len(entries))
	}
}

func TestAppendNewestFirst(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Append(Entry{RecipientName: "Ann", Timestamp: base}); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(Entry{RecipientName: "Bob", Timestamp: base.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}

	entries := store.Load()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].RecipientName != "Bob" || entries[1].RecipientName != "Ann" {
		t.Errorf("order = %s, %s; want Bob, Ann", entries[0].RecipientName, entries[1].RecipientName)
	}
	if entries[0].ID == "" {
		t.Error("Append() should assign an ID")
	}
}

func TestAppendBatchOrdering(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	err := store.Append(
		Entry{RecipientName: "First", Timestamp: base},
		Entry{RecipientName: "Second", Timestamp: base.Add(time.Minute)},
	)
	if err != nil {
		t.Fatal(err)
	}

	entries := store.Load()
	if entries[0].RecipientName != "Second" {
		t.Errorf("newest entry = %s, want Second", entries[0].RecipientName)
	}
}

func TestClear(t *testing.T) {
	store := newTestStore(t)

	if err := store.Append(Entry{RecipientName: "Ann"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if entries := store.Load(); len(entries) != 0 {
		t.Errorf("got %d entries after clear", len(entries))
	}
}

func TestList(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	err := store.Append(
		Entry{RecipientName: "Ann Lee", Phone: "+12025550100", Message: "hello", Status: StatusSent, Timestamp: base},
		Entry{RecipientName: "Bob Ray", Phone: "+12025550101", Message: "reminder", Status: StatusFailed, Timestamp: base.Add(time.Minute)},
		Entry{RecipientName: "Cal Doe", Phone: "+12025550102", Message: "hello", Status: StatusCancelled, Timestamp: base.Add(2 * time.Minute)},
	)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"Cal Doe", "Bob Ray", "Ann Lee"}},
		{"by status", Filter{Status: StatusFailed}, []string{"Bob Ray"}},
		{"by name search", Filter{Search: "ann"}, []string{"Ann Lee"}},
		{"by phone search", Filter{Search: "0101"}, []string{"Bob Ray"}},
		{"by message search", Filter{Search: "hello"}, []string{"Cal Doe", "Ann Lee"}},
		{"with limit", Filter{Limit: 2}, []string{"Cal Doe", "Bob Ray"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := store.List(tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.want))
			}
			for i, name := range tt.want {
				if got[i].RecipientName != name {
					t.Errorf("entry[%d] = %s, want %s", i, got[i].RecipientName, name)
				}
			}
		})
	}
}
