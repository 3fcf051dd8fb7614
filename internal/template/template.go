package template

import (
	"time"
)

// Template is a reusable message body containing zero or more
// {{identifier}} placeholders.
type Template struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// Variables returns the distinct placeholder names in the content, in
// order of first appearance.
func (t *Template) Variables() []string {
	return ExtractVariables(t.Content)
}

// ListFilter contains filters for listing templates
type ListFilter struct {
	Limit  int
	Offset int
	Search string
}
