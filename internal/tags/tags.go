// Package tags derives marker tokens for user-defined tags and extracts
// them from AI response text.
package tags

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mailquill/backend/internal/models"
)

// maxRemovalIterations bounds the marker excision loop. The loop normally
// terminates when no occurrence is left; the cap turns a removal that stops
// making progress into a detected fault instead of an infinite loop.
const maxRemovalIterations = 1000

// MarkerFor derives the marker token the AI is instructed to emit for a tag,
// deterministically from its name.
func MarkerFor(name string) string {
	return "[[" + name + "]]"
}

// ValidateSet rejects tag sets in which two tags share a name or a marker,
// compared case-insensitively. Such sets are a configuration error and are
// refused at definition time, not detected at extraction time.
func ValidateSet(tagDefs []models.Tag) error {
	names := make(map[string]string)
	markers := make(map[string]string)

	for _, tag := range tagDefs {
		nameKey := strings.ToLower(tag.Name)
		if other, exists := names[nameKey]; exists {
			return fmt.Errorf("tags %q and %q share a name", other, tag.Name)
		}
		names[nameKey] = tag.Name

		markerKey := strings.ToLower(tag.Marker)
		if other, exists := markers[markerKey]; exists {
			return fmt.Errorf("tags %q and %q share a marker", other, tag.Name)
		}
		markers[markerKey] = tag.Name
	}

	return nil
}

// Extract scans the response text for each defined tag's marker,
// case-insensitively. A tag that occurs at least once is recorded once in
// the match set, and every occurrence of its marker is removed from the
// text. Matched names come back in tag definition order, not order of
// appearance. Text without matches is returned unchanged.
func Extract(text string, tagDefs []models.Tag) (string, []string) {
	cleaned := text
	var matched []string

	for _, tag := range tagDefs {
		if tag.Marker == "" {
			continue
		}

		next, found := removeAllOccurrences(cleaned, tag.Marker)
		if found {
			matched = append(matched, tag.Name)
		}
		cleaned = next
	}

	return cleaned, matched
}

// removeAllOccurrences excises every case-insensitive occurrence of marker
// from text. Matching and splicing both happen on the original string with
// rune-aware offsets: lowercasing can change a rune's byte length, so byte
// indexes found in a lowered copy do not transfer back. If an excision ever
// fails to shrink the text, the marker is abandoned and the text cleaned so
// far is kept.
func removeAllOccurrences(text, marker string) (string, bool) {
	found := false

	for i := 0; i < maxRemovalIterations; i++ {
		start, end, ok := foldIndex(text, marker)
		if !ok {
			break
		}
		found = true

		next := text[:start] + text[end:]
		if len(next) >= len(text) {
			// No progress; stop attempting this marker.
			break
		}
		text = next
	}

	return text, found
}

// foldIndex finds the first case-insensitive occurrence of marker in text
// and returns its byte bounds within text itself. The matched region's byte
// length can differ from the marker's.
func foldIndex(text, marker string) (start, end int, ok bool) {
	for i := 0; i < len(text); {
		if n, matched := foldPrefixLen(text[i:], marker); matched {
			return i, i + n, true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return 0, 0, false
}

// foldPrefixLen reports how many bytes of s a case-insensitive match of
// marker covers, rune by rune.
func foldPrefixLen(s, marker string) (int, bool) {
	n := 0
	for _, markerRune := range marker {
		r, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 {
			return 0, false
		}
		if r != markerRune && unicode.ToLower(r) != unicode.ToLower(markerRune) {
			return 0, false
		}
		n += size
	}
	return n, true
}
