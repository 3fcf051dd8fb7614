// Package recipient defines the normalized, field-bearing representation
// of a message destination, regardless of where it was sourced from.
package recipient

import (
	"strings"

	"github.com/google/uuid"
)

// FallbackName is used when a record has no usable name parts.
const FallbackName = "Unknown"

// Sendable is anything that can be addressed by a send session: it has a
// display name, a single destination number and a set of fields for
// placeholder substitution.
type Sendable interface {
	DisplayName() string
	Destination() string
	SubstitutionFields() map[string]string
}

// Record is the identity unit flowing into a send session. It is built
// once per session and not mutated afterwards, except for the Selected
// flag which controls session membership.
type Record struct {
	ID        string
	FirstName string
	LastName  string
	Phone     string
	Fields    map[string]string
	Selected  bool
}

// New builds a Record from name parts, a destination number and optional
// custom fields. Field keys are normalized to lowercase at construction
// time so substitution lookups are case-insensitive by construction.
func New(firstName, lastName, phone string, custom map[string]string) Record {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	fields := map[string]string{
		"firstname": firstName,
		"lastname":  lastName,
	}

	full := strings.TrimSpace(firstName + " " + lastName)
	if full == "" {
		full = FallbackName
	}
	fields["name"] = full
	fields["fullname"] = full

	for k, v := range custom {
		key := strings.ToLower(strings.TrimSpace(k))
		if key != "" {
			fields[key] = v
		}
	}

	return Record{
		ID:        uuid.New().String(),
		FirstName: firstName,
		LastName:  lastName,
		Phone:     strings.TrimSpace(phone),
		Fields:    fields,
		Selected:  true,
	}
}

// DisplayName returns the full name, falling back to a placeholder when
// both name parts are blank.
func (r Record) DisplayName() string {
	full := strings.TrimSpace(r.FirstName + " " + r.LastName)
	if full == "" {
		return FallbackName
	}
	return full
}

// Destination returns the phone number selected for this session.
func (r Record) Destination() string {
	return r.Phone
}

// SubstitutionFields returns the field map used for placeholder
// substitution.
func (r Record) SubstitutionFields() map[string]string {
	return r.Fields
}
