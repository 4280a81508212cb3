// Package hexrgb normalizes 6-hex-digit RGB color values and adds the
// per-consumer prefixes. Configuration stores colors bare ("fefefe"); the
// renderer wants "#fefefe" and the compositor wants "0xfefefe".
package hexrgb

import (
	"fmt"
	"strings"
)

// Valid reports whether s is exactly six hexadecimal digits with no prefix.
func Valid(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Normalize strips a leading "#" or "0x"/"0X" and lowercases the digits.
// It returns an error when the result is not a bare six-digit value.
func Normalize(s string) (string, error) {
	trimmed := strings.TrimPrefix(s, "#")
	if len(trimmed) == len(s) {
		trimmed = strings.TrimPrefix(trimmed, "0x")
		trimmed = strings.TrimPrefix(trimmed, "0X")
	}
	trimmed = strings.ToLower(trimmed)
	if !Valid(trimmed) {
		return "", fmt.Errorf("hexrgb: %q is not a 6-hex-digit RGB value", s)
	}
	return trimmed, nil
}

// Hash returns the "#rrggbb" form used by the text renderer.
func Hash(s string) string {
	return "#" + s
}

// Hex0x returns the "0xrrggbb" form used by the compositor.
func Hex0x(s string) string {
	return "0x" + s
}

// Component returns the red, green, and blue bytes of a bare six-digit value.
// Invalid input yields zero components.
func Component(s string) (r, g, b uint8) {
	if !Valid(s) {
		return 0, 0, 0
	}
	var rv, gv, bv uint8
	_, err := fmt.Sscanf(strings.ToLower(s), "%02x%02x%02x", &rv, &gv, &bv)
	if err != nil {
		return 0, 0, 0
	}
	return rv, gv, bv
}
