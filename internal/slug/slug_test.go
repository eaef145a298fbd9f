package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"Punctuation", "Hello, World!", "hello-world"},
		{"Whitespace runs", "  Go   is\tfun  ", "go-is-fun"},
		{"Underscores", "snake_case_title", "snake-case-title"},
		{"Digits", "Top 10 Tips", "top-10-tips"},
		{"Accents", "Crème Brûlée", "creme-brulee"},
		{"Repeated separators", "a -- b", "a-b"},
		{"Only symbols", "!!!", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Derive(tt.title))
		})
	}
}

func TestDerive_Deterministic(t *testing.T) {
	t.Parallel()
	title := "The Same Title, Twice"
	assert.Equal(t, Derive(title), Derive(title))
}
