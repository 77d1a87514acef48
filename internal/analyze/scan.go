// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"regexp"
	"strings"
)

// referencesHeadingRe matches a line that opens the bibliography, with an
// optional markdown or section-number prefix.
var referencesHeadingRe = regexp.MustCompile(`(?i)^(?:#+\s*)?(?:\d+\.?\s*)?(references|bibliography)\s*$`)

var blankLinesRe = regexp.MustCompile(`\n\s*\n`)

// mainText returns text up to the last references heading. Text without a
// heading is returned whole.
func mainText(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if referencesHeadingRe.MatchString(strings.TrimSpace(lines[i])) {
			return strings.Join(lines[:i], "\n")
		}
	}
	return text
}

// scanParagraphs returns the main-text paragraphs that contain marker
// literally, in document order. Paragraphs are separated by blank lines.
func scanParagraphs(text, marker string) []string {
	if marker == "" {
		return nil
	}
	var out []string
	for _, p := range blankLinesRe.Split(mainText(text), -1) {
		if !strings.Contains(p, marker) {
			continue
		}
		out = append(out, strings.Join(strings.Fields(p), " "))
	}
	return out
}
