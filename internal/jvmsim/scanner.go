package jvmsim

import (
	"strings"
	"unicode"
)

// scanner models java.util.Scanner with the white space delimiter, or with
// the empty delimiter, which makes every character a token.
type scanner struct {
	in    []rune
	pos   int
	chars bool
}

func newScanner(input string) *scanner {
	return &scanner{in: []rune(input)}
}

func (s *scanner) token() (string, bool) {
	if s.chars {
		if s.pos >= len(s.in) {
			return "", false
		}
		s.pos++
		return string(s.in[s.pos-1]), true
	}
	for s.pos < len(s.in) && unicode.IsSpace(s.in[s.pos]) {
		s.pos++
	}
	if s.pos >= len(s.in) {
		return "", false
	}
	start := s.pos
	for s.pos < len(s.in) && !unicode.IsSpace(s.in[s.pos]) {
		s.pos++
	}
	return string(s.in[start:s.pos]), true
}

func (s *scanner) hasNext() bool {
	pos := s.pos
	_, ok := s.token()
	s.pos = pos
	return ok
}

// line returns the rest of the current line and skips its separator.
func (s *scanner) line() (string, bool) {
	if s.pos >= len(s.in) {
		return "", false
	}
	start := s.pos
	for s.pos < len(s.in) && s.in[s.pos] != '\n' {
		s.pos++
	}
	line := string(s.in[start:s.pos])
	if s.pos < len(s.in) {
		s.pos++
	}
	return strings.TrimSuffix(line, "\r"), true
}
