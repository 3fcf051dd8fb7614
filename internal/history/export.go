package history

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// previewLength is the maximum length of the exported message preview.
const previewLength = 50

var exportHeader = []string{
	"Timestamp", "Recipient Name", "Phone Number", "Status", "Template Used", "Message Preview",
}

// ExportCSV writes entries in the fixed 6-column export format: one
// double-quoted, comma-joined row per entry, RFC 3339 timestamps, message
// preview truncated to 50 characters with internal quotes doubled.
func ExportCSV(w io.Writer, entries []Entry) error {
	if err := writeRow(w, exportHeader); err != nil {
		return err
	}

	for _, e := range entries {
		row := []string{
			e.Timestamp.Format(time.RFC3339),
			e.RecipientName,
			e.Phone,
			string(e.Status),
			e.TemplateName,
			preview(e.Message),
		}
		if err := writeRow(w, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(w io.Writer, cells []string) error {
	quoted := make([]string, len(cells))
	for i, c := range cells {
		quoted[i] = `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
	}
	_, err := fmt.Fprintln(w, strings.Join(quoted, ","))
	return err
}

func preview(message string) string {
	runes := []rune(message)
	if len(runes) <= previewLength {
		return message
	}
	return string(runes[:previewLength])
}
