// Package delimited parses schemaless delimited text (CSV/TSV/semicolon)
// into rows of string cells, tolerating quoting, escaped quotes and
// multi-line quoted cells.
package delimited

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrEmptyFile is returned when parsing produced zero rows.
	ErrEmptyFile = errors.New("file contains no rows")

	// ErrUnreadable is returned when the source bytes cannot be decoded
	// under any of the supported encodings.
	ErrUnreadable = errors.New("file is not readable as text")
)

// Result holds the parsed rows and the delimiter that was detected.
type Result struct {
	Rows      [][]string
	Delimiter rune
}

// Header returns the first row, or an empty slice if there are no rows.
func (r *Result) Header() []string {
	if len(r.Rows) == 0 {
		return []string{}
	}
	return r.Rows[0]
}

// DataRows returns every row after the header.
func (r *Result) DataRows() [][]string {
	if len(r.Rows) < 2 {
		return nil
	}
	return r.Rows[1:]
}

// DetectDelimiter picks the delimiter by counting candidates in the first
// non-empty line. Tab wins if strictly more frequent than both comma and
// semicolon; semicolon wins if strictly more frequent than comma; comma is
// the default. This is a heuristic, not a sniffing algorithm.
func DetectDelimiter(text string) rune {
	var line string
	for _, l := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}

	tabs := strings.Count(line, "\t")
	semis := strings.Count(line, ";")
	commas := strings.Count(line, ",")

	switch {
	case tabs > commas && tabs > semis:
		return '\t'
	case semis > commas:
		return ';'
	default:
		return ','
	}
}

// Parse decodes raw file bytes and splits them into rows of cells.
// Returns ErrUnreadable if no supported encoding applies and ErrEmptyFile
// if no rows result.
func Parse(data []byte) (*Result, error) {
	text, err := decode(data)
	if err != nil {
		return nil, err
	}

	delim := DetectDelimiter(text)
	rows := splitRows(text, delim)
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	return &Result{Rows: rows, Delimiter: delim}, nil
}

// decode tries UTF-8 first, then UTF-16 (BOM-aware), then Windows-1252.
func decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	if utf8.Valid(data) {
		return string(data), nil
	}

	// UTF-16 is only attempted when a BOM is present; without one,
	// arbitrary bytes would decode "successfully" into garbage.
	if hasUTF16BOM(data) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		if decoded, err := dec.Bytes(data); err == nil && utf8.Valid(decoded) {
			return string(decoded), nil
		}
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err == nil && utf8.Valid(decoded) {
		return string(decoded), nil
	}

	return "", fmt.Errorf("%w: tried UTF-8, UTF-16, Windows-1252", ErrUnreadable)
}

func hasUTF16BOM(data []byte) bool {
	return len(data) >= 2 &&
		((data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF))
}

// splitRows walks the text with a two-state quote machine. The delimiter is
// a cell boundary only outside quotes; a doubled quote inside quotes emits a
// literal quote; a newline inside quotes becomes cell content and the row
// continues onto the next physical line. Blank lines never produce a row.
func splitRows(text string, delim rune) [][]string {
	var (
		rows   [][]string
		row    []string
		cell   strings.Builder
		quoted bool
	)

	flushCell := func() {
		row = append(row, cell.String())
		cell.Reset()
	}
	flushRow := func() {
		flushCell()
		// A row with a single empty cell came from a blank line.
		if len(row) == 1 && row[0] == "" {
			row = nil
			return
		}
		rows = append(rows, row)
		row = nil
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if quoted {
			switch c {
			case '"':
				if i+1 < len(runes) && runes[i+1] == '"' {
					cell.WriteRune('"')
					i++
				} else {
					quoted = false
				}
			case '\r':
				if i+1 < len(runes) && runes[i+1] == '\n' {
					i++
				}
				cell.WriteRune('\n')
			default:
				cell.WriteRune(c)
			}
			continue
		}

		switch c {
		case '"':
			quoted = true
		case delim:
			flushCell()
		case '\r':
			if i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
			flushRow()
		case '\n':
			flushRow()
		default:
			cell.WriteRune(c)
		}
	}

	// Flush a trailing row without a final newline.
	if cell.Len() > 0 || len(row) > 0 {
		flushRow()
	}

	return rows
}
