// Package lang handles the supported-language set and best-effort language
// detection of message contents.
package lang

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Set is the closed set of ISO-639-1 codes this deployment translates
// between. Joins declaring anything else are rejected at handshake time.
type Set struct {
	codes map[string]struct{}
}

func NewSet(codes []string) Set {
	s := Set{codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		c = Normalize(c)
		if c != "" {
			s.codes[c] = struct{}{}
		}
	}
	return s
}

func (s Set) Contains(code string) bool {
	_, ok := s.codes[Normalize(code)]
	return ok
}

func (s Set) Len() int {
	return len(s.codes)
}

// Normalize lowercases and trims a language code. "EN " -> "en".
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Detect guesses the language of a text. The boolean is false when the
// detector is not confident enough to override a declared language; short or
// mixed texts routinely fall in that bucket.
func Detect(text string) (string, bool) {
	info := whatlanggo.Detect(text)
	iso := info.Lang.Iso6391()
	if iso == "" || !info.IsReliable() {
		return "", false
	}
	return iso, true
}
