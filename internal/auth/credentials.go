// Package auth holds the local session rules. Login is a session-creation
// shortcut: credentials are required to be present but are never verified
// against anything.
package auth

import (
	"errors"
	"strings"
)

const DefaultDepartment = "General"

var ErrEmailRequired = errors.New("email is required")

// NormalizeEmail trims and lower-cases an address. The address format is not
// checked.
func NormalizeEmail(email string) (string, error) {
	trimmed := strings.TrimSpace(strings.ToLower(email))
	if trimmed == "" {
		return "", ErrEmailRequired
	}
	return trimmed, nil
}

// DisplayName derives a name from the local part of an address.
func DisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// FirstName returns the first word of a full name, used for greetings.
func FirstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
