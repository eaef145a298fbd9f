package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "secret123", false},
		{"Exactly Min Length", "abcdefg1", false},
		{"Too Short", "abc1", true},
		{"Too Long", strings.Repeat("a", 72) + "1", true},
		{"No Digit", "onlyletters", true},
		{"No Letter", "1234567890", true},
		{"Unicode Letters", "Ångström1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateUsername("jane_doe"))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername(strings.Repeat("a", 31)))
	assert.Error(t, ValidateUsername("bad name"))
	assert.Error(t, ValidateUsername("_edge"))
	assert.Error(t, ValidateUsername("edge-"))
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateEmail("jane@example.com"))
	assert.Error(t, ValidateEmail("jane@"))
	assert.Error(t, ValidateEmail("no-at-sign.com"))
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hello", SanitizeText("  <b>hello</b> "))
	assert.Equal(t, "", SanitizeText("<script>alert(1)</script>"))
	assert.Equal(t, "Tom & Jerry", SanitizeText("Tom & Jerry"))
	assert.Equal(t, "Tom & Jerry", SanitizeText("Tom &amp; Jerry"))
}

func TestSanitizeText_EncodedMarkup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
	}{
		{"script", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{"img onerror", "&lt;img src=x onerror=alert(1)&gt;"},
		{"double encoded", "&amp;lt;img src=x onerror=alert(1)&amp;gt;"},
		{"mixed", "hi &lt;b onmouseover=alert(1)&gt;there&lt;/b&gt;"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SanitizeText(tt.in)
			assert.NotContains(t, got, "<")
			assert.NotContains(t, got, "onerror=alert")
			assert.NotContains(t, got, "onmouseover")
		})
	}
}

func TestSanitizeRichText(t *testing.T) {
	t.Parallel()
	out := SanitizeRichText(`<p onclick="x()">Body <a href="https://example.com">link</a></p><script>bad()</script>`)
	assert.Contains(t, out, "<p>Body")
	assert.Contains(t, out, `href="https://example.com"`)
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "onclick")
}

func TestNormalizeTagNames(t *testing.T) {
	t.Parallel()
	got := NormalizeTagNames([]string{" Tech ", "", "Go", "Tech", "   ", "go"})
	assert.Equal(t, []string{"Tech", "Go", "go"}, got)
}
