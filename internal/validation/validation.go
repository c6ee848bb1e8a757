package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"
)

// FieldErrors maps field names to validation messages. It is returned by
// model validation and request sanitization so handlers can render a
// 400 response keyed by field.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// Field length ceilings applied on write
const (
	MaxKeyLength     = 255
	MaxValueSize     = 65536
	MaxTitleLength   = 500
	MaxContentSize   = 100000
	MaxNotesSize     = 10000
	MaxURLLength     = 2048
	MaxTagNameLength = 80
)

var (
	// Request-level key rule. Laxer than the model rule on purpose: the
	// model additionally requires uppercase. Do not unify the two without
	// clarifying intended behavior.
	keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	workspaceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-_\.]+$`)

	dangerousSchemes = []string{"javascript:", "data:", "vbscript:", "file:", "about:"}
)

// stripNullBytes removes NUL characters which some databases reject
func stripNullBytes(v string) string {
	return strings.ReplaceAll(v, "\x00", "")
}

// SanitizeKey trims and validates an environment variable key
func SanitizeKey(v string) (string, error) {
	if v == "" {
		return v, nil
	}
	v = strings.TrimSpace(v)
	if len(v) > MaxKeyLength {
		return "", fmt.Errorf("Key too long. Maximum length is %d characters.", MaxKeyLength)
	}
	if !keyPattern.MatchString(v) {
		return "", errors.New("Key can only contain letters, numbers, underscores, and hyphens.")
	}
	return v, nil
}

// SanitizeValue strips null bytes and enforces the value size ceiling
func SanitizeValue(v string) (string, error) {
	if v == "" {
		return v, nil
	}
	v = stripNullBytes(v)
	if len(v) > MaxValueSize {
		return "", fmt.Errorf("Value too large. Maximum size is %d characters.", MaxValueSize)
	}
	return v, nil
}

// SanitizeTitle trims, strips null bytes and enforces the title ceiling
func SanitizeTitle(v string) (string, error) {
	if v == "" {
		return v, nil
	}
	v = stripNullBytes(strings.TrimSpace(v))
	if len(v) > MaxTitleLength {
		return "", fmt.Errorf("Title too long. Maximum length is %d characters.", MaxTitleLength)
	}
	return v, nil
}

// SanitizeContent strips null bytes and enforces the content ceiling
func SanitizeContent(v string) (string, error) {
	if v == "" {
		return v, nil
	}
	v = stripNullBytes(v)
	if len(v) > MaxContentSize {
		return "", fmt.Errorf("Content too large. Maximum size is %d characters.", MaxContentSize)
	}
	return v, nil
}

// SanitizeNotes strips null bytes and enforces the notes ceiling
func SanitizeNotes(v string) (string, error) {
	if v == "" {
		return v, nil
	}
	v = stripNullBytes(v)
	if len(v) > MaxNotesSize {
		return "", fmt.Errorf("Notes too large. Maximum size is %d characters.", MaxNotesSize)
	}
	return v, nil
}

// SanitizeURL validates a documentation link URL. Only http and https are
// accepted; javascript:, data: and friends are rejected outright.
func SanitizeURL(v string) (string, error) {
	if v == "" {
		return v, nil
	}
	v = strings.TrimSpace(v)
	if len(v) > MaxURLLength {
		return "", fmt.Errorf("URL too long. Maximum length is %d characters.", MaxURLLength)
	}

	lower := strings.ToLower(v)
	for _, scheme := range dangerousSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", errors.New("Invalid URL scheme. Only http:// and https:// are allowed.")
		}
	}
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", errors.New("URL must start with http:// or https://")
	}
	if !govalidator.IsURL(v) {
		return "", errors.New("Enter a valid URL.")
	}
	return v, nil
}

// ValidateWorkspaceName trims and validates a workspace name
func ValidateWorkspaceName(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", errors.New("Workspace name cannot be empty")
	}
	if len(v) > 255 {
		return "", errors.New("Workspace name cannot exceed 255 characters")
	}
	if !workspaceNamePattern.MatchString(v) {
		return "", errors.New("Workspace name can only contain letters, numbers, spaces, hyphens, underscores, and periods")
	}
	return v, nil
}

// ValidateTagName trims and validates a tag name
func ValidateTagName(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", errors.New("Name cannot be empty")
	}
	if len(v) > MaxTagNameLength {
		return "", fmt.Errorf("Name cannot exceed %d characters", MaxTagNameLength)
	}
	return v, nil
}
