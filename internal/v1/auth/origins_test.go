package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "http://localhost:3000", []string{"http://localhost:3000"}},
		{"comma separated", "http://a.example,http://b.example", []string{"http://a.example", "http://b.example"}},
		{"bracketed", "[http://a.example,http://b.example]", []string{"http://a.example", "http://b.example"}},
		{"whitespace and empties", " http://a.example , , http://b.example ", []string{"http://a.example", "http://b.example"}},
		{"only brackets", "[]", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOrigins(tt.raw))
		})
	}
}

func TestGetAllowedOriginsFromEnv(t *testing.T) {
	defaults := []string{"http://localhost:3000"}

	t.Run("unset falls back to defaults", func(t *testing.T) {
		assert.Equal(t, defaults, GetAllowedOriginsFromEnv("ORIGINS_TEST_UNSET", defaults))
	})

	t.Run("set value is parsed", func(t *testing.T) {
		t.Setenv("ORIGINS_TEST_SET", "[http://a.example,http://b.example]")
		assert.Equal(t, []string{"http://a.example", "http://b.example"},
			GetAllowedOriginsFromEnv("ORIGINS_TEST_SET", defaults))
	})
}
