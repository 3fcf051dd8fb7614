// Package mapping converts parsed delimited rows into recipient records
// according to a user-chosen column mapping.
package mapping

import (
	"strings"
)

// NoColumn marks a column slot as unset.
const NoColumn = -1

// ColumnMapping describes which parsed columns become which record fields.
// Exactly one naming strategy is expected: either a full-name column, or
// the first/last pair. Having both set at once is a conflict the caller
// should surface before building records.
type ColumnMapping struct {
	PhoneColumn     int
	FullNameColumn  int
	FirstNameColumn int
	LastNameColumn  int

	// CustomFields maps a column index to a user-chosen field name.
	CustomFields map[int]string
}

// NewColumnMapping returns a mapping with every column slot unset.
func NewColumnMapping() ColumnMapping {
	return ColumnMapping{
		PhoneColumn:     NoColumn,
		FullNameColumn:  NoColumn,
		FirstNameColumn: NoColumn,
		LastNameColumn:  NoColumn,
		CustomFields:    map[int]string{},
	}
}

// IsValid reports whether the mapping can build records: the phone column
// is set and either a full-name column or both first and last columns are
// set.
func (m ColumnMapping) IsValid() bool {
	if m.PhoneColumn < 0 {
		return false
	}
	hasFull := m.FullNameColumn >= 0
	hasParts := m.FirstNameColumn >= 0 && m.LastNameColumn >= 0
	return hasFull || hasParts
}

// HasConflict reports whether a full-name column and any of the first/last
// columns are set at the same time. A conflicting mapping is still
// accepted by BuildRecords; full-name takes priority.
func (m ColumnMapping) HasConflict() bool {
	if m.FullNameColumn < 0 {
		return false
	}
	return m.FirstNameColumn >= 0 || m.LastNameColumn >= 0
}

// claimed reports whether a column index is used for phone or naming.
func (m ColumnMapping) claimed(idx int) bool {
	return idx == m.PhoneColumn ||
		idx == m.FullNameColumn ||
		idx == m.FirstNameColumn ||
		idx == m.LastNameColumn
}

// DiscoverCustomFields suggests field names for every header column not
// already claimed by the phone or name mappings. Header names are trimmed,
// spaces replaced with underscores and lowercased.
func DiscoverCustomFields(headers []string, m ColumnMapping) []string {
	var fields []string
	for i, h := range headers {
		if m.claimed(i) {
			continue
		}
		name := normalizeFieldName(h)
		if name != "" {
			fields = append(fields, name)
		}
	}
	return fields
}

func normalizeFieldName(header string) string {
	name := strings.TrimSpace(header)
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}
