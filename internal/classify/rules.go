// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"strings"

	"github.com/pdiddy/citereview/pkg/types"
)

// containsFold reports whether s contains sub, ignoring case.
func containsFold(s, sub string) bool {
	return sub != "" && strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// matchAny returns the first pattern contained in any of values.
func matchAny(values, patterns []string) (string, bool) {
	for _, v := range values {
		for _, p := range patterns {
			if containsFold(v, p) {
				return p, true
			}
		}
	}
	return "", false
}

// excludedAuthor returns the exclusion-list entry matched by an author name.
func excludedAuthor(rules types.RulesConfig, rec types.CitationRecord) (string, bool) {
	return matchAny(rec.Authors, rules.ExcludeAuthors)
}

// excludedAffiliation matches known affiliations against the exclusion list.
// Records without affiliation data never match.
func excludedAffiliation(rules types.RulesConfig, rec types.CitationRecord) (string, bool) {
	if len(rec.Affiliations) == 0 {
		return "", false
	}
	return matchAny(rec.Affiliations, rules.ExcludeInstitutions)
}

// influentialVenue returns the configured venue contained in the record's
// publication. Matching is by substring, so "Nature" also matches
// "Nature Communications" and any venue that merely contains the word.
func influentialVenue(rules types.RulesConfig, rec types.CitationRecord) (string, bool) {
	venue := rec.Venue()
	if venue == "" {
		return "", false
	}
	return matchAny([]string{venue}, rules.InfluentialVenues)
}

// seniorAuthors returns the last n authors in byline order.
func seniorAuthors(authors []string, n int) []string {
	if len(authors) <= n {
		return authors
	}
	return authors[len(authors)-n:]
}
