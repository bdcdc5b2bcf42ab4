// Package validate holds input validation helpers shared by the
// authentication services.
package validate

import (
	"fmt"
	"strings"
)

const maxNameLength = 100

// Email reports whether the address is structurally valid: exactly one
// '@', a non-empty local part, and a domain with an interior dot.
func Email(email string) bool {
	if len(email) < 3 {
		return false
	}

	at := strings.Count(email, "@")
	if at != 1 {
		return false
	}

	local, dom, _ := strings.Cut(email, "@")
	if local == "" || dom == "" {
		return false
	}
	if !strings.Contains(dom, ".") {
		return false
	}
	if strings.HasPrefix(dom, ".") || strings.HasSuffix(dom, ".") {
		return false
	}

	return true
}

// NormalizeEmail lowercases and trims an email address. Emails are
// compared case-insensitively everywhere in the system.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NameFromEmail derives a display name from the email's local part,
// e.g. "john.doe@example.com" -> "john.doe".
func NameFromEmail(email string) string {
	local, _, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "User"
	}
	return local
}

// Name validates a display name and returns it trimmed.
func Name(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("name cannot be empty")
	}
	if len(trimmed) > maxNameLength {
		return "", fmt.Errorf("name is too long (max %d characters)", maxNameLength)
	}
	return trimmed, nil
}

// Phone normalizes a phone number to E.164. Numbers without a country
// code are assumed to be US.
func Phone(phone string) (string, error) {
	hasPlus := strings.HasPrefix(strings.TrimSpace(phone), "+")

	var digits strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	d := digits.String()

	switch {
	case d == "":
		return "", fmt.Errorf("phone number contains no digits")
	case hasPlus:
		if len(d) < 7 || len(d) > 15 {
			return "", fmt.Errorf("phone number must be 7-15 digits")
		}
		return "+" + d, nil
	case len(d) == 10:
		return "+1" + d, nil
	case len(d) == 11 && d[0] == '1':
		return "+" + d, nil
	case len(d) < 7:
		return "", fmt.Errorf("phone number too short")
	case len(d) > 15:
		return "", fmt.Errorf("phone number too long")
	default:
		return "+" + d, nil
	}
}
