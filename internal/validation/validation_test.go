package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeKey(t *testing.T) {
	got, err := SanitizeKey("  API_KEY  ")
	require.NoError(t, err)
	assert.Equal(t, "API_KEY", got)

	// Lowercase and hyphens pass at this layer
	got, err = SanitizeKey("my-key_1")
	require.NoError(t, err)
	assert.Equal(t, "my-key_1", got)

	_, err = SanitizeKey("has space")
	assert.Error(t, err)

	_, err = SanitizeKey("dots.not.allowed")
	assert.Error(t, err)

	_, err = SanitizeKey(strings.Repeat("A", MaxKeyLength+1))
	assert.Error(t, err)
}

func TestSanitizeValueStripsNullBytes(t *testing.T) {
	got, err := SanitizeValue("se\x00cret")
	require.NoError(t, err)
	assert.Equal(t, "secret", got)

	_, err = SanitizeValue(strings.Repeat("a", MaxValueSize+1))
	assert.Error(t, err)
}

func TestSanitizeURL(t *testing.T) {
	valid := []string{
		"https://docs.example.com/api",
		"http://localhost:8080/path?q=1",
	}
	for _, u := range valid {
		got, err := SanitizeURL(u)
		require.NoError(t, err, u)
		assert.Equal(t, strings.TrimSpace(u), got)
	}

	invalid := []string{
		"javascript:alert(1)",
		"JavaScript:alert(1)",
		"data:text/html,<h1>x</h1>",
		"vbscript:msgbox",
		"file:///etc/passwd",
		"about:blank",
		"ftp://files.example.com",
		"not a url",
	}
	for _, u := range invalid {
		_, err := SanitizeURL(u)
		assert.Error(t, err, u)
	}
}

func TestValidateWorkspaceName(t *testing.T) {
	got, err := ValidateWorkspaceName("  My Project v1.0  ")
	require.NoError(t, err)
	assert.Equal(t, "My Project v1.0", got)

	for _, name := range []string{"", "   ", "bad/name", "name<tag>", strings.Repeat("a", 256)} {
		_, err := ValidateWorkspaceName(name)
		assert.Error(t, err, name)
	}
}

func TestValidateTagName(t *testing.T) {
	got, err := ValidateTagName("  backend  ")
	require.NoError(t, err)
	assert.Equal(t, "backend", got)

	_, err = ValidateTagName("")
	assert.Error(t, err)

	_, err = ValidateTagName(strings.Repeat("a", MaxTagNameLength+1))
	assert.Error(t, err)
}

func TestFieldErrorsError(t *testing.T) {
	errs := FieldErrors{"key": "required"}
	assert.Equal(t, "key: required", errs.Error())
}
