package generation

import (
	"regexp"
	"strings"
)

var arrayPattern = regexp.MustCompile(`(?s)\[\s*\{.*?\}\s*\]`)

// JSONArrayCandidates returns substrings of an LLM response that may hold a
// JSON array of objects: first the span from the first '[' to the last ']',
// then every shortest "[{...}]" match. Code fences and prose around the
// array are ignored. Candidates are not guaranteed to decode.
func JSONArrayCandidates(response string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	if start := strings.Index(response, "["); start >= 0 {
		if end := strings.LastIndex(response, "]"); end > start {
			add(response[start : end+1])
		}
	}
	for _, m := range arrayPattern.FindAllString(response, -1) {
		add(m)
	}
	return out
}
