// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseResult records how a reply's JSON payload was recovered.
type ParseResult int

const (
	// Unparseable means no field could be recovered.
	Unparseable ParseResult = iota
	// Strict means the whole reply (minus code fences) was valid JSON.
	Strict
	// Embedded means a JSON object was found inside surrounding prose.
	Embedded
	// Heuristic means individual "field": value pairs were scraped.
	Heuristic
)

func (r ParseResult) String() string {
	switch r {
	case Strict:
		return "strict"
	case Embedded:
		return "embedded"
	case Heuristic:
		return "heuristic"
	default:
		return "unparseable"
	}
}

// Ok reports whether any payload was recovered.
func (r ParseResult) Ok() bool {
	return r != Unparseable
}

var (
	thinkRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
	fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

	// fieldRe matches "key": value where value is a JSON scalar, string or
	// flat array.
	fieldRe = regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_]*)"\s*:\s*(true|false|null|-?\d+(?:\.\d+)?|"(?:[^"\\]|\\.)*"|\[(?:[^\[\]"]|"(?:[^"\\]|\\.)*")*\])`)

	quotedRe = regexp.MustCompile(`"([^"]*?)"`)
)

// ParseJSON decodes a model reply into out. It tries, in order: the whole
// reply as JSON, the first balanced {...} object inside it, then scraping
// known "field": value pairs. It never returns an error; Unparseable leaves
// out untouched.
func ParseJSON(reply string, out any) ParseResult {
	text := strings.TrimSpace(thinkRe.ReplaceAllString(reply, ""))
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if text == "" {
		return Unparseable
	}

	if json.Unmarshal([]byte(text), out) == nil {
		return Strict
	}

	for start := strings.IndexByte(text, '{'); start >= 0; {
		if obj, ok := balancedObject(text[start:]); ok && json.Unmarshal([]byte(obj), out) == nil {
			return Embedded
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	fields := map[string]json.RawMessage{}
	for _, m := range fieldRe.FindAllStringSubmatch(text, -1) {
		if _, seen := fields[m[1]]; seen {
			continue
		}
		var v any
		if json.Unmarshal([]byte(m[2]), &v) == nil {
			fields[m[1]] = json.RawMessage(m[2])
		}
	}
	if len(fields) == 0 {
		return Unparseable
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return Unparseable
	}
	// Type mismatches on single fields still fill the rest of out.
	_ = json.Unmarshal(data, out)
	return Heuristic
}

// balancedObject returns the prefix of s that closes the object opened at
// s[0], skipping braces inside strings.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// QuotedStrings returns every double-quoted run in reply, in order.
func QuotedStrings(reply string) []string {
	var out []string
	for _, m := range quotedRe.FindAllStringSubmatch(reply, -1) {
		out = append(out, m[1])
	}
	return out
}
