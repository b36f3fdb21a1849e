// Package editor implements the edit rules applied to the expression text as
// tokens arrive. Every function is pure: it takes the current text and returns
// the new one, and never fails.
package editor

import (
	"strings"
	"unicode/utf8"
)

// Operators is the set of binary operators subject to substitution.
const Operators = "+-*/"

// IsOperator reports whether token is a single binary operator.
func IsOperator(token string) bool {
	return len(token) == 1 && strings.Contains(Operators, token)
}

func endsWithOperator(text string) bool {
	return text != "" && strings.ContainsRune(Operators, rune(text[len(text)-1]))
}

// Append returns text with token added.
//
// Rules, in order:
//  1. An operator on empty text is dropped, except "-" (unary minus).
//  2. An operator after a trailing operator replaces it.
//  3. Anything else is concatenated.
func Append(text, token string) string {
	if token == "" {
		return text
	}
	if IsOperator(token) {
		if text == "" && token != "-" {
			return text
		}
		if endsWithOperator(text) {
			return text[:len(text)-1] + token
		}
	}
	return text + token
}

// Type applies Append once per character of keys, as if each were pressed in turn.
func Type(text, keys string) string {
	for _, r := range keys {
		text = Append(text, string(r))
	}
	return text
}

// Backspace removes the last character. Empty text is returned unchanged.
func Backspace(text string) string {
	if text == "" {
		return text
	}
	_, size := utf8.DecodeLastRuneInString(text)
	return text[:len(text)-size]
}

// Clear returns the empty expression.
func Clear() string {
	return ""
}

// Chain turns a displayed result into the next expression.
func Chain(result string) string {
	return result
}

var glyphs = strings.NewReplacer("×", "*", "÷", "/", "−", "-")

// CanonicalToken maps keypad display glyphs (× ÷ −) to operator characters.
func CanonicalToken(token string) string {
	return glyphs.Replace(token)
}
