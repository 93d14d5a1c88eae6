package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStripsScripts(t *testing.T) {
	out := Sanitize(`<p>hello</p><script>alert("x")</script>`)
	assert.Contains(t, out, "<p>hello</p>")
	assert.NotContains(t, out, "script")
}

func TestSanitizeKeepsBasicFormatting(t *testing.T) {
	out := Sanitize(`<b>bold</b> and <a href="https://example.com" rel="nofollow">link</a>`)
	assert.Contains(t, out, "<b>bold</b>")
	assert.Contains(t, out, "example.com")
}
