package validate

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

var modelPattern = regexp.MustCompile(`^[a-zA-Z0-9._:-]{1,64}$`)

// ValidateModel checks the model identifier format
func ValidateModel(model string) error {
	if model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if !modelPattern.MatchString(model) {
		return fmt.Errorf("invalid model identifier format (alphanumeric, dot, dash, colon only, max 64 chars)")
	}
	return nil
}

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// ValidateSessionID checks the backend-issued session id format
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid session id format")
	}
	return nil
}

// ValidateDocumentPath validates an input document path (for security)
func ValidateDocumentPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("document path cannot be empty")
	}

	cleaned := filepath.Clean(path)

	// Block path traversal attempts
	if strings.Contains(cleaned, "..") {
		return fmt.Errorf("path traversal detected")
	}

	// Block dangerous patterns
	dangerous := []string{"$(", "`", "&", "|", ";", "\n", "\r"}
	for _, d := range dangerous {
		if strings.Contains(path, d) {
			return fmt.Errorf("invalid characters in path")
		}
	}

	return nil
}

// ClampPercent normalizes a progress value to [0,100].
// The transport does not enforce the range, so callers must.
func ClampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// ValidateLimit validates list limits
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
