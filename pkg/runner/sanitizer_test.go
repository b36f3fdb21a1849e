package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput_SizeLimit(t *testing.T) {
	limit := DefaultMaxInputSize

	for _, size := range []int{limit - 1, limit} {
		_, err := SanitizeInput(strings.Repeat("1", size))
		assert.NoError(t, err, "size %d", size)
	}
	_, err := SanitizeInput(strings.Repeat("1", limit+1))
	assert.ErrorIs(t, err, ErrInputTooLarge)
}

func TestSanitizeInput_Cleans(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"keys pass through", "12+3=", "12+3="},
		{"keypad glyphs", "7×6÷2−1", "7×6÷2−1"},
		{"safe controls", "1+1\n2*2\t\r", "1+1\n2*2\t\r"},
		{"ansi escape", "\x1b[31m5\x1b[0m", "[31m5[0m"},
		{"null byte", "4\x002", "42"},
		{"bell and delete", "9\x07\x7f", "9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInput(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeInput_EnvOverride(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "10")

	_, err := SanitizeInput("12345678901")
	assert.ErrorIs(t, err, ErrInputTooLarge)

	_, err = SanitizeInput("1+2+3")
	assert.NoError(t, err)
}

func TestSanitizeInput_EnvOverrideIsCapped(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "999999999")

	_, err := SanitizeInput(strings.Repeat("1", MaxInputSizeLimit+1))
	assert.ErrorIs(t, err, ErrInputTooLarge)

	_, err = SanitizeInput(strings.Repeat("1", MaxInputSizeLimit))
	assert.NoError(t, err)
}

func TestSanitizeInput_IgnoresBadEnv(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "lots")
	_, err := SanitizeInput(strings.Repeat("1", 100))
	assert.NoError(t, err)
}

func TestSanitizeInput_InvalidUTF8(t *testing.T) {
	_, err := SanitizeInput("1+\xbd\xb2")
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestSanitizeInputLimit(t *testing.T) {
	_, err := SanitizeInputLimit("1+1", 2)
	assert.ErrorIs(t, err, ErrInputTooLarge)

	got, err := SanitizeInputLimit("1+1\x1b", 8)
	require.NoError(t, err)
	assert.Equal(t, "1+1", got)
}
