package services

import "strings"

// normaliseEmail lower-cases and trims an address so uniqueness checks are
// case-insensitive.
func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normaliseName(name string) string {
	return strings.TrimSpace(name)
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
