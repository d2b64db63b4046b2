package aiclient

import "strings"

// ExtractJSON pulls a JSON object out of possibly-fenced text. Generative
// collaborators routinely wrap JSON in Markdown code fences (```json ... ```)
// or surround it with prose; this recovers the object without attempting to
// parse it. Unfenced, clean JSON passes through unchanged.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)

	if fenced, ok := extractFenced(s); ok {
		s = fenced
	}

	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		return s
	}

	// Prose around an object: slice from the first brace to the last.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}

	return s
}

// extractFenced returns the content of the first code fence, with any
// language tag on the opening line removed.
func extractFenced(s string) (string, bool) {
	open := strings.Index(s, "```")
	if open < 0 {
		return "", false
	}

	rest := s[open+3:]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		// Opening line may carry a language tag ("json"); content starts on
		// the next line.
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "" || isLanguageTag(firstLine) {
			rest = rest[nl+1:]
		}
	} else {
		rest = strings.TrimPrefix(rest, "json")
	}

	if closing := strings.Index(rest, "```"); closing >= 0 {
		rest = rest[:closing]
	}

	return rest, true
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
