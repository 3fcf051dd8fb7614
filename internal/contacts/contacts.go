// Package contacts defines the address-book source capability: a
// permission-gated provider of contacts with one or more phone numbers.
package contacts

import (
	"context"

	"github.com/foxzi/textry/internal/recipient"
)

// AuthorizationStatus is the permission state the caller must branch on.
// Denied and Restricted are states, not error paths.
type AuthorizationStatus int

const (
	NotDetermined AuthorizationStatus = iota
	Authorized
	Denied
	Restricted
)

func (s AuthorizationStatus) String() string {
	switch s {
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	case Restricted:
		return "restricted"
	default:
		return "not_determined"
	}
}

// Contact is an address-book entry. Sources exclude contacts with zero
// phone numbers; a Contact always has at least one.
type Contact struct {
	ID        string   `yaml:"id" json:"id"`
	FirstName string   `yaml:"first_name" json:"first_name"`
	LastName  string   `yaml:"last_name" json:"last_name"`
	Phones    []string `yaml:"phones" json:"phones"`
}

// Record builds a session recipient record from the contact, selecting
// its first phone number as the destination.
func (c Contact) Record() recipient.Record {
	phone := ""
	if len(c.Phones) > 0 {
		phone = c.Phones[0]
	}
	return recipient.New(c.FirstName, c.LastName, phone, nil)
}

// Source is the address-book capability.
type Source interface {
	// CheckPermission returns the current authorization state without
	// prompting.
	CheckPermission() AuthorizationStatus

	// RequestPermission prompts for access and returns the resulting
	// state, Authorized or Denied.
	RequestPermission(ctx context.Context) (AuthorizationStatus, error)

	// FetchAll returns every contact with at least one phone number.
	FetchAll(ctx context.Context) ([]Contact, error)
}
