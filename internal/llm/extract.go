package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	braceSpanRe  = regexp.MustCompile(`(?s)\{.*\}`)
)

// smartQuoteReplacer normalizes typographic quotes that some models emit
// inside otherwise valid JSON.
var smartQuoteReplacer = strings.NewReplacer(
	"“", `"`,
	"”", `"`,
	"‘", "'",
	"’", "'",
)

// ExtractJSON pulls a JSON object out of a model response. Models wrap
// JSON in prose, code fences or both; the strategies below are tried in
// order and the first candidate that parses wins. The returned string is
// the raw JSON text.
func ExtractJSON(response string) (string, bool) {
	trimmed := strings.TrimSpace(response)
	if isJSONObject(trimmed) {
		return trimmed, true
	}

	// Fenced code blocks, preferring the later ones: a model that
	// corrects itself puts the final answer last.
	fences := fencedJSONRe.FindAllStringSubmatch(trimmed, -1)
	for i := len(fences) - 1; i >= 0; i-- {
		candidate := strings.TrimSpace(fences[i][1])
		if isJSONObject(candidate) {
			return candidate, true
		}
	}

	// Balanced top-level brace spans anywhere in the text, last valid
	// one wins.
	if candidate, ok := lastBalancedObject(trimmed); ok {
		return candidate, true
	}

	// Widest brace span with quote cleanup, for responses where prose
	// precedes and follows a single object.
	if span := braceSpanRe.FindString(trimmed); span != "" {
		cleaned := smartQuoteReplacer.Replace(span)
		if isJSONObject(cleaned) {
			return cleaned, true
		}
	}

	return "", false
}

// isJSONObject reports whether s parses as a JSON object.
func isJSONObject(s string) bool {
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var doc map[string]json.RawMessage

	return json.Unmarshal([]byte(s), &doc) == nil
}

// lastBalancedObject scans for top-level {...} spans, honoring strings
// and escapes, and returns the last span that parses as JSON.
func lastBalancedObject(s string) (string, bool) {
	found := ""
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}

			continue
		}
		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				candidate := s[start : i+1]
				if isJSONObject(candidate) {
					found = candidate
				}
			}
		}
	}

	return found, found != ""
}
