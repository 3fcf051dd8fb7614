package template

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketTemplates     = []byte("templates")
	bucketTemplateNames = []byte("template_names")
)

// defaultTemplates are seeded when the store is empty or unreadable.
var defaultTemplates = []Template{
	{
		Name:    "Greeting",
		Content: "Hi {{firstname}}, just checking in. Let me know if you have any questions!",
	},
	{
		Name:    "Reminder",
		Content: "Hi {{firstname}}, this is a reminder about your appointment on {{date}} at {{time}}. Reply to confirm.",
	},
	{
		Name:    "Promotion",
		Content: "Hi {{name}}, we have a special offer for {{company}}: {{offer}}. Valid until {{deadline}}.",
	},
}

// Storage provides template storage operations backed by BoltDB.
type Storage struct {
	db *bolt.DB
}

// NewStorage creates a template storage and seeds the built-in default
// templates when the collection is empty.
func NewStorage(db *bolt.DB) (*Storage, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketTemplates); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketTemplateNames); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create template buckets: %w", err)
	}

	s := &Storage{db: db}
	if err := s.seedDefaults(); err != nil {
		return nil, err
	}
	return s, nil
}

// seedDefaults inserts the built-in templates when the bucket holds no
// readable templates.
func (s *Storage) seedDefaults() error {
	empty := true
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketTemplates).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var tmpl Template
			if err := json.Unmarshal(v, &tmpl); err == nil {
				empty = false
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}

	for _, tmpl := range defaultTemplates {
		t := tmpl
		if err := s.Create(context.Background(), &t); err != nil {
			return fmt.Errorf("failed to seed default template %q: %w", tmpl.Name, err)
		}
	}
	return nil
}

// Create creates a new template
func (s *Storage) Create(ctx context.Context, tmpl *Template) error {
	if tmpl.Name == "" {
		return fmt.Errorf("template name is required")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		templates := tx.Bucket(bucketTemplates)
		names := tx.Bucket(bucketTemplateNames)

		// Check name uniqueness
		if existing := names.Get([]byte(tmpl.Name)); existing != nil {
			return fmt.Errorf("template with name %q already exists", tmpl.Name)
		}

		tmpl.ID = uuid.New().String()
		tmpl.CreatedAt = time.Now()
		tmpl.LastModified = tmpl.CreatedAt

		data, err := json.Marshal(tmpl)
		if err != nil {
			return fmt.Errorf("failed to marshal template: %w", err)
		}

		if err := templates.Put([]byte(tmpl.ID), data); err != nil {
			return err
		}

		// Create name index
		return names.Put([]byte(tmpl.Name), []byte(tmpl.ID))
	})
}

// Get retrieves a template by ID
func (s *Storage) Get(ctx context.Context, id string) (*Template, error) {
	var tmpl *Template

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketTemplates)
		data := bucket.Get([]byte(id))
		if data == nil {
			return nil
		}

		tmpl = &Template{}
		return json.Unmarshal(data, tmpl)
	})

	return tmpl, err
}

// GetByName retrieves a template by name
func (s *Storage) GetByName(ctx context.Context, name string) (*Template, error) {
	var tmpl *Template

	err := s.db.View(func(tx *bolt.Tx) error {
		names := tx.Bucket(bucketTemplateNames)
		id := names.Get([]byte(name))
		if id == nil {
			return nil
		}

		templates := tx.Bucket(bucketTemplates)
		data := templates.Get(id)
		if data == nil {
			return nil
		}

		tmpl = &Template{}
		return json.Unmarshal(data, tmpl)
	})

	return tmpl, err
}

// List returns templates with optional filtering
func (s *Storage) List(ctx context.Context, filter ListFilter) ([]*Template, error) {
	var templates []*Template

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketTemplates)
		c := bucket.Cursor()

		skipped := 0
		count := 0

		for k, v := c.First(); k != nil; k, v = c.Next() {
			var tmpl Template
			if err := json.Unmarshal(v, &tmpl); err != nil {
				continue
			}

			if filter.Search != "" {
				search := strings.ToLower(filter.Search)
				name := strings.ToLower(tmpl.Name)
				content := strings.ToLower(tmpl.Content)
				if !strings.Contains(name, search) && !strings.Contains(content, search) {
					continue
				}
			}

			if skipped < filter.Offset {
				skipped++
				continue
			}

			templates = append(templates, &tmpl)
			count++

			if filter.Limit > 0 && count >= filter.Limit {
				break
			}
		}

		return nil
	})

	return templates, err
}

// Update updates an existing template
func (s *Storage) Update(ctx context.Context, tmpl *Template) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		templates := tx.Bucket(bucketTemplates)
		names := tx.Bucket(bucketTemplateNames)

		existingData := templates.Get([]byte(tmpl.ID))
		if existingData == nil {
			return fmt.Errorf("template not found")
		}

		var existing Template
		if err := json.Unmarshal(existingData, &existing); err != nil {
			return err
		}

		// If name changed, update index
		if existing.Name != tmpl.Name {
			if existingID := names.Get([]byte(tmpl.Name)); existingID != nil {
				return fmt.Errorf("template with name %q already exists", tmpl.Name)
			}
			if err := names.Delete([]byte(existing.Name)); err != nil {
				return err
			}
			if err := names.Put([]byte(tmpl.Name), []byte(tmpl.ID)); err != nil {
				return err
			}
		}

		tmpl.CreatedAt = existing.CreatedAt
		tmpl.LastModified = time.Now()

		data, err := json.Marshal(tmpl)
		if err != nil {
			return fmt.Errorf("failed to marshal template: %w", err)
		}

		return templates.Put([]byte(tmpl.ID), data)
	})
}

// Delete removes a template by ID
func (s *Storage) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		templates := tx.Bucket(bucketTemplates)
		names := tx.Bucket(bucketTemplateNames)

		data := templates.Get([]byte(id))
		if data == nil {
			return nil // Already deleted
		}

		var tmpl Template
		if err := json.Unmarshal(data, &tmpl); err != nil {
			return err
		}

		if err := names.Delete([]byte(tmpl.Name)); err != nil {
			return err
		}

		return templates.Delete([]byte(id))
	})
}
