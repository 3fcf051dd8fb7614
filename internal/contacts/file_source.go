package contacts

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// FileSource reads contacts from a YAML file. File access needs no user
// consent, so the source is always authorized.
type FileSource struct {
	path string
}

// contactsFile is the YAML document shape.
type contactsFile struct {
	Contacts []Contact `yaml:"contacts"`
}

// NewFileSource creates a source backed by the given YAML file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// CheckPermission always reports Authorized.
func (s *FileSource) CheckPermission() AuthorizationStatus {
	return Authorized
}

// RequestPermission always grants access.
func (s *FileSource) RequestPermission(ctx context.Context) (AuthorizationStatus, error) {
	return Authorized, nil
}

// FetchAll loads the file and returns every contact that has at least one
// phone number.
func (s *FileSource) FetchAll(ctx context.Context) ([]Contact, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contacts file: %w", err)
	}

	var doc contactsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse contacts file: %w", err)
	}

	var out []Contact
	for _, c := range doc.Contacts {
		if len(c.Phones) == 0 {
			continue
		}
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		out = append(out, c)
	}
	return out, nil
}
