package recipient

import "testing"

func TestNewBuildsSubstitutionFields(t *testing.T) {
	r := New("Ann", "Lee", "+12025550100", map[string]string{"Company Name": "Acme", " ": "dropped"})

	fields := r.SubstitutionFields()
	tests := map[string]string{
		"firstname":    "Ann",
		"lastname":     "Lee",
		"name":         "Ann Lee",
		"fullname":     "Ann Lee",
		"company name": "Acme",
	}
	for key, want := range tests {
		if got := fields[key]; got != want {
			t.Errorf("fields[%q] = %q, want %q", key, got, want)
		}
	}
	if _, ok := fields[""]; ok {
		t.Error("blank custom field key should be dropped")
	}
	if !r.Selected {
		t.Error("new records should start selected")
	}
	if r.ID == "" {
		t.Error("new records should get an ID")
	}
}

func TestDisplayNameFallback(t *testing.T) {
	tests := []struct {
		first, last string
		want        string
	}{
		{"Ann", "Lee", "Ann Lee"},
		{"Ann", "", "Ann"},
		{"", "Lee", "Lee"},
		{"", "", FallbackName},
		{"  ", "  ", FallbackName},
	}

	for _, tt := range tests {
		r := New(tt.first, tt.last, "+12025550100", nil)
		if got := r.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%q, %q) = %q, want %q", tt.first, tt.last, got, tt.want)
		}
	}
}

func TestDestination(t *testing.T) {
	r := New("Ann", "Lee", " +12025550100 ", nil)
	if got := r.Destination(); got != "+12025550100" {
		t.Errorf("Destination() = %q, want trimmed number", got)
	}
}
