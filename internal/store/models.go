package store

import (
	"fmt"
	"strings"
)

type MailType string

const (
	Incoming MailType = "incoming"
	Outgoing MailType = "outgoing"
)

func ParseMailType(value string) (MailType, error) {
	switch MailType(strings.ToLower(strings.TrimSpace(value))) {
	case Incoming:
		return Incoming, nil
	case Outgoing:
		return Outgoing, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMailType, value)
}

// MailRecord is one tracked letter. Date is an ISO calendar date (YYYY-MM-DD)
// and Image, when set, is a data URL.
type MailRecord struct {
	ID      string   `json:"id"`
	Type    MailType `json:"type"`
	Number  string   `json:"number"`
	Name    string   `json:"name"`
	Subject string   `json:"subject"`
	Date    string   `json:"date"`
	Notes   string   `json:"notes,omitempty"`
	Image   string   `json:"image,omitempty"`
}

// Validate reports the required fields that are empty.
func (r MailRecord) Validate() error {
	var missing []string
	if r.Number == "" {
		missing = append(missing, "number")
	}
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.Subject == "" {
		missing = append(missing, "subject")
	}
	if r.Date == "" {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// UserProfile is the single active user. Password is accepted at signup and
// kept for the session only; it is never verified and never persisted.
type UserProfile struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Avatar     string `json:"avatar,omitempty"`
	Password   string `json:"-"`
}

// ProfileUpdate carries the fields to merge into the active profile. Nil
// fields are left untouched.
type ProfileUpdate struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Department *string `json:"department,omitempty"`
	Avatar     *string `json:"avatar,omitempty"`
}

type SignupRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Department string `json:"department"`
}

// Snapshot is a copy of the store contents. Callers may modify it freely.
type Snapshot struct {
	User     *UserProfile
	Incoming []MailRecord
	Outgoing []MailRecord
	Archived []MailRecord
}

type Collection string

const (
	CollectionUser     Collection = "user"
	CollectionIncoming Collection = "incoming"
	CollectionOutgoing Collection = "outgoing"
	CollectionArchived Collection = "archived"
)

func collectionFor(t MailType) Collection {
	if t == Outgoing {
		return CollectionOutgoing
	}
	return CollectionIncoming
}

// Change describes one completed mutation.
type Change struct {
	Op          string       `json:"op"`
	Collections []Collection `json:"collections"`
	RecordID    string       `json:"recordId,omitempty"`
}

// Observer is called after every mutation, outside the store lock.
type Observer func(Change)
