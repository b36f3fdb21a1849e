package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize caps one line of keys, in bytes. Hosts set it from
	// input.max_size; TALLY_MAX_INPUT_SIZE wins over both.
	DefaultMaxInputSize = 4096
	EnvMaxInputSize     = "TALLY_MAX_INPUT_SIZE"
)

// MaxInputSizeLimit is the largest limit TALLY_MAX_INPUT_SIZE may raise the cap to.
const MaxInputSizeLimit = 1 << 20

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput is the gate every external adapter puts in front of the
// engine: it rejects oversized or non-UTF-8 input and drops control
// characters other than newline, tab and carriage return, so escape
// sequences never reach the terminal or the logs.
func SanitizeInput(input string) (string, error) {
	return SanitizeInputLimit(input, maxInputSize())
}

// SanitizeInputLimit is SanitizeInput with an explicit byte limit.
// Oversized input is rejected, never truncated.
func SanitizeInputLimit(input string, limit int) (string, error) {
	switch {
	case len(input) > limit:
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	case !utf8.ValidString(input):
		return "", ErrInvalidUTF8
	case strings.IndexFunc(input, unsafeControl) < 0:
		return input, nil
	}
	return strings.Map(func(r rune) rune {
		if unsafeControl(r) {
			return -1
		}
		return r
	}, input), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

func maxInputSize() int {
	if size, err := strconv.Atoi(os.Getenv(EnvMaxInputSize)); err == nil && size > 0 {
		return min(size, MaxInputSizeLimit)
	}
	return DefaultMaxInputSize
}
