// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workitem

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

// MaxSlugLen caps directory and document names derived from titles.
const MaxSlugLen = 100

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._\-]`)
	underscores = regexp.MustCompile(`_+`)
)

// Sanitize returns the filesystem-safe slug for a paper title. Every character
// outside letters, digits, '.', '_' and '-' becomes '_', runs of '_' collapse,
// leading '_' and '.' are trimmed so no slug names a hidden directory, and
// trailing '_' are trimmed. Titles longer than MaxSlugLen keep a
// prefix and gain a short hash of the full title so that long titles sharing a
// prefix land in different directories.
func Sanitize(title string) string {
	s := unsafeChars.ReplaceAllString(strings.TrimSpace(title), "_")
	s = underscores.ReplaceAllString(s, "_")
	s = strings.TrimRight(strings.TrimLeft(s, "._"), "_")

	if strings.Trim(s, ".") == "" {
		return "untitled-" + titleHash(title)
	}
	if len(s) <= MaxSlugLen {
		return s
	}

	suffix := "-" + titleHash(title)
	prefix := strings.TrimRight(s[:MaxSlugLen-len(suffix)], "_")
	return prefix + suffix
}

func titleHash(title string) string {
	h := sha256.Sum256([]byte(title))
	return fmt.Sprintf("%x", h[:4])
}

// normalizeTitle lowercases a title and keeps only letters and digits, for
// loose matching of document file names against record titles.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
