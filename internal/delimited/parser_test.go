package delimited

import (
	"errors"
	"reflect"
	"testing"
)

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected rune
	}{
		{"semicolons", "a;b;c", ';'},
		{"more tabs than commas", "a\tb,c\td", '\t'},
		{"commas default", "a,b,c", ','},
		{"no delimiters", "abc", ','},
		{"tie between tab and comma", "a\tb,c", ','},
		{"semicolon beats comma", "a;b;c,d", ';'},
		{"skips leading blank lines", "\n\na;b;c", ';'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDelimiter(tt.text); got != tt.expected {
				t.Errorf("DetectDelimiter(%q) = %q, want %q", tt.text, got, tt.expected)
			}
		})
	}
}

func TestParseQuotedCells(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected [][]string
	}{
		{
			"embedded comma in quoted cell",
			`a,"b,c",d`,
			[][]string{{"a", "b,c", "d"}},
		},
		{
			"escaped quotes",
			`a,"say ""hi""",c`,
			[][]string{{"a", `say "hi"`, "c"}},
		},
		{
			"newline inside quoted cell",
			"a,\"line1\nline2\",c",
			[][]string{{"a", "line1\nline2", "c"}},
		},
		{
			"crlf inside quoted cell",
			"a,\"line1\r\nline2\",c",
			[][]string{{"a", "line1\nline2", "c"}},
		},
		{
			"blank lines skipped",
			"a,b\n\n\nc,d\n",
			[][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			"crlf rows",
			"a,b\r\nc,d\r\n",
			[][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			"trailing empty cell",
			"a,b,\n",
			[][]string{{"a", "b", ""}},
		},
		{
			"no trailing newline",
			"a,b\nc,d",
			[][]string{{"a", "b"}, {"c", "d"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Parse([]byte(tt.input))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(result.Rows, tt.expected) {
				t.Errorf("Parse() rows = %v, want %v", result.Rows, tt.expected)
			}
		})
	}
}

func TestParseDetectsSemicolon(t *testing.T) {
	result, err := Parse([]byte("name;phone\nAnn;+12025550100\n"))
	if err != nil {
		t.Fatal(err)
	}
	if result.Delimiter != ';' {
		t.Errorf("delimiter = %q, want ';'", result.Delimiter)
	}
	if !reflect.DeepEqual(result.Header(), []string{"name", "phone"}) {
		t.Errorf("header = %v", result.Header())
	}
	if len(result.DataRows()) != 1 {
		t.Errorf("data rows = %d, want 1", len(result.DataRows()))
	}
}

func TestParseTabSeparated(t *testing.T) {
	result, err := Parse([]byte("name\tphone\tcity\nAnn\t+12025550100\tBerlin\n"))
	if err != nil {
		t.Fatal(err)
	}
	if result.Delimiter != '\t' {
		t.Errorf("delimiter = %q, want tab", result.Delimiter)
	}
	if !reflect.DeepEqual(result.Rows[1], []string{"Ann", "+12025550100", "Berlin"}) {
		t.Errorf("row = %v", result.Rows[1])
	}
}

func TestParseEmptyFile(t *testing.T) {
	for _, input := range []string{"", "\n\n\n"} {
		_, err := Parse([]byte(input))
		if !errors.Is(err, ErrEmptyFile) {
			t.Errorf("Parse(%q) error = %v, want ErrEmptyFile", input, err)
		}
	}
}

func TestParseWindows1252Fallback(t *testing.T) {
	// "José,123" in Windows-1252: é is 0xE9, invalid as UTF-8.
	input := []byte{'J', 'o', 's', 0xE9, ',', '1', '2', '3'}
	result, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if result.Rows[0][0] != "José" {
		t.Errorf("cell = %q, want %q", result.Rows[0][0], "José")
	}
}

func TestParseUTF16Fallback(t *testing.T) {
	// "a,b" in UTF-16LE with BOM.
	input := []byte{0xFF, 0xFE, 'a', 0x00, ',', 0x00, 'b', 0x00}
	result, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if result.Rows[0][0] != "a" || result.Rows[0][1] != "b" {
		t.Errorf("row = %v", result.Rows[0])
	}
}

func TestParseUTF8BOM(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b\n")...)
	result, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	if result.Rows[0][0] != "a" {
		t.Errorf("BOM not stripped, cell = %q", result.Rows[0][0])
	}
}
