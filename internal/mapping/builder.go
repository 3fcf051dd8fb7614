package mapping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/foxzi/textry/internal/recipient"
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// ErrInvalidMapping is returned when BuildRecords is called with a mapping
// that fails IsValid.
var ErrInvalidMapping = errors.New("column mapping is not valid")

// PhoneError reports a malformed phone number at a specific data row. It
// aborts the whole import so the caller can fix the input and re-run.
type PhoneError struct {
	Row   int
	Value string
}

func (e *PhoneError) Error() string {
	return fmt.Sprintf("invalid phone number at row %d: %q", e.Row, e.Value)
}

// BuildRecords converts rows (header at index 0) into recipient records.
// Empty rows and rows with an empty phone cell are skipped silently; a
// malformed phone number fails the whole import with a PhoneError.
func BuildRecords(rows [][]string, m ColumnMapping) ([]recipient.Record, error) {
	if !m.IsValid() {
		return nil, ErrInvalidMapping
	}

	var records []recipient.Record
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) == 0 {
			continue
		}

		rawPhone := strings.TrimSpace(cellAt(row, m.PhoneColumn))
		if rawPhone == "" {
			continue
		}

		phone, ok := CleanPhone(rawPhone)
		if !ok {
			return nil, &PhoneError{Row: i, Value: rawPhone}
		}

		first, last := resolveName(row, m)

		custom := map[string]string{}
		for idx, name := range m.CustomFields {
			val := strings.TrimSpace(cellAt(row, idx))
			if val != "" {
				custom[name] = val
			}
		}

		records = append(records, recipient.New(first, last, phone, custom))
	}

	return records, nil
}

// CleanPhone strips every character that is not a digit or '+' and checks
// the cleaned length against the permissive 10..15 heuristic.
func CleanPhone(raw string) (string, bool) {
	var b strings.Builder
	for _, c := range raw {
		if c == '+' || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	cleaned := b.String()
	if len(cleaned) < minPhoneDigits || len(cleaned) > maxPhoneDigits {
		return "", false
	}
	return cleaned, true
}

// resolveName applies the naming strategy. A mapped full-name column takes
// priority and is split on the first space only; otherwise first/last are
// read independently, with out-of-range columns yielding empty strings.
func resolveName(row []string, m ColumnMapping) (first, last string) {
	if m.FullNameColumn >= 0 {
		full := strings.TrimSpace(cellAt(row, m.FullNameColumn))
		if full == "" {
			return "", ""
		}
		parts := strings.SplitN(full, " ", 2)
		first = parts[0]
		if len(parts) > 1 {
			last = parts[1]
		}
		return first, last
	}

	first = strings.TrimSpace(cellAt(row, m.FirstNameColumn))
	last = strings.TrimSpace(cellAt(row, m.LastNameColumn))
	return first, last
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
