package services

import (
	"net/mail"
	"strings"
)

const (
	minPasswordLength = 5
	minTitleLength    = 5
	minContentLength  = 5
)

// ValidateEmail checks standard address syntax.
func ValidateEmail(email string) []Violation {
	address, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || address.Address != strings.TrimSpace(email) {
		return []Violation{{Message: "invalid e-mail"}}
	}
	return nil
}

// ValidatePassword checks the registration password rule.
func ValidatePassword(password string) []Violation {
	if password == "" || len(password) < minPasswordLength {
		return []Violation{{Message: "password too short"}}
	}
	return nil
}

// ValidatePostFields checks title and content independently so multiple
// violations can be reported together.
func ValidatePostFields(title, content string) []Violation {
	var violations []Violation
	if strings.TrimSpace(title) == "" || len(title) < minTitleLength {
		violations = append(violations, Violation{Message: "title is invalid"})
	}
	if strings.TrimSpace(content) == "" || len(content) < minContentLength {
		violations = append(violations, Violation{Message: "content is invalid"})
	}
	return violations
}
