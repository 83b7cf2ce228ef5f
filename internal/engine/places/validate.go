package places

import (
	"fmt"
	"strings"
)

const minKeyLength = 20

// ValidateAPIKey does a basic shape check on an API key before any
// request is attempted.
func ValidateAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("api key is empty")
	}
	if len(key) < minKeyLength {
		return fmt.Errorf("api key is too short")
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("api key contains invalid character %q", r)
		}
	}
	return nil
}

// ValidateQuery rejects queries too short to search for.
func ValidateQuery(query string) error {
	if len(strings.TrimSpace(query)) < 2 {
		return fmt.Errorf("query must be at least 2 characters")
	}
	return nil
}
