// Package tag extracts RFID tag identifiers from reader output lines.
package tag

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Prefix marks a line that carries a tag identifier.
const Prefix = "ID:"

var (
	// ErrNotTag means the line is empty or lacks Prefix.
	ErrNotTag = errors.New("tag: line has no ID: prefix")

	// ErrMalformed means the line is not valid UTF-8 text.
	ErrMalformed = errors.New("tag: line is not valid UTF-8")
)

// Reading is one tag identifier as sent by the reader, prefix removed.
type Reading string

func (r Reading) String() string { return string(r) }

// Parse trims surrounding whitespace from line and returns the text after
// Prefix. The remainder is not validated; "ID:" yields an empty Reading.
func Parse(line string) (Reading, error) {
	if !utf8.ValidString(line) {
		return "", ErrMalformed
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ErrNotTag
	}
	rest, ok := strings.CutPrefix(line, Prefix)
	if !ok {
		return "", ErrNotTag
	}
	return Reading(rest), nil
}
