package template

import (
	"reflect"
	"testing"
)

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			"distinct in order, case preserved",
			"Hi {{name}}, your order from {{Company}} ships {{name}}",
			[]string{"name", "Company"},
		},
		{
			"no placeholders",
			"plain text",
			nil,
		},
		{
			"case-insensitive dedup keeps first spelling",
			"{{Name}} and {{name}} and {{NAME}}",
			[]string{"Name"},
		},
		{
			"underscores and digits",
			"{{first_name}} {{field2}}",
			[]string{"first_name", "field2"},
		},
		{
			"unclosed braces ignored",
			"Hi {{name, bye {{city}}",
			[]string{"city"},
		},
		{
			"spaces inside braces not matched",
			"Hi {{ name }}",
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractVariables(tt.text)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ExtractVariables(%q) = %v, want %v", tt.text, got, tt.expected)
			}
		})
	}
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		fields   map[string]string
		expected string
	}{
		{
			"simple substitution",
			"Hi {{name}}",
			map[string]string{"name": "Ann"},
			"Hi Ann",
		},
		{
			"missing variable becomes empty",
			"Hi {{name}}",
			map[string]string{},
			"Hi ",
		},
		{
			"case-insensitive lookup",
			"Hi {{Name}}",
			map[string]string{"name": "Ann"},
			"Hi Ann",
		},
		{
			"repeated placeholder",
			"{{name}} meet {{name}}",
			map[string]string{"name": "Ann"},
			"Ann meet Ann",
		},
		{
			"adjacent placeholders",
			"{{first}}{{last}}",
			map[string]string{"first": "Ann", "last": "Lee"},
			"AnnLee",
		},
		{
			"value containing braces is not re-expanded",
			"Hi {{name}}",
			map[string]string{"name": "{{name}}"},
			"Hi {{name}}",
		},
		{
			"no placeholders",
			"plain text",
			map[string]string{"name": "Ann"},
			"plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Substitute(tt.text, tt.fields)
			if got != tt.expected {
				t.Errorf("Substitute() = %q, want %q", got, tt.expected)
			}
		})
	}
}
