package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/attrmap/pkg/errors"
)

func TestSetMatch(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		id       string
		want     bool
	}{
		{"exact", []string{"COLOR"}, "COLOR", true},
		{"case insensitive", []string{"color"}, "COLOR", true},
		{"prefix glob", []string{"SELLER_PACKAGE_*"}, "SELLER_PACKAGE_WEIGHT", true},
		{"prefix glob miss", []string{"SELLER_PACKAGE_*"}, "PACKAGE_WEIGHT", false},
		{"single char", []string{"SIZ?"}, "SIZE", true},
		{"class", []string{"[BM]*"}, "MODEL", true},
		{"any of several", []string{"BRAND", "MODEL"}, "MODEL", true},
		{"no patterns", nil, "BRAND", false},
		{"blank pattern skipped", []string{"  "}, "BRAND", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Compile(tt.patterns...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Match(tt.id))
		})
	}
}

func TestCompileRejectsInvalidPattern(t *testing.T) {
	_, err := Compile("BRAND", "[unclosed")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestFilter(t *testing.T) {
	s, err := Compile("SELLER_PACKAGE_*", "gtin")
	require.NoError(t, err)

	got := s.Filter("SELLER_PACKAGE_WIDTH", "BRAND", "GTIN", "SELLER_PACKAGE_HEIGHT")
	assert.Equal(t, []string{"GTIN", "SELLER_PACKAGE_HEIGHT", "SELLER_PACKAGE_WIDTH"}, got)
	assert.Equal(t, 2, s.Len())
	assert.Empty(t, s.Filter("BRAND"))
}

func TestIsGlobPattern(t *testing.T) {
	assert.True(t, IsGlobPattern("SELLER_*"))
	assert.True(t, IsGlobPattern("SIZ?"))
	assert.False(t, IsGlobPattern("COLOR"))
}
