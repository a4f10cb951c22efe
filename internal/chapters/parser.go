package chapters

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/phrazzld/scry-reader/internal/generation"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Candidate is a chapter proposed by the model, before its markers are
// located in the text.
type Candidate struct {
	Title       string
	StartMarker string
	EndMarker   string
}

// ParseResult is the outcome of parsing one model response. Tier names the
// strategy that produced the candidates. UsedFallback is set when no
// strategy produced any.
type ParseResult struct {
	Candidates   []Candidate
	Tier         generation.ParseTier
	UsedFallback bool
}

const candidateSchema = `{
  "type": "object",
  "required": ["title"],
  "properties": {
    "title": {"type": "string", "minLength": 1}
  },
  "anyOf": [
    {"required": ["start_marker"], "properties": {"start_marker": {"type": "string", "minLength": 1}}},
    {"required": ["start_text"], "properties": {"start_text": {"type": "string", "minLength": 1}}}
  ]
}`

var (
	candidateValidator = jsonschema.MustCompileString("chapter_candidate.json", candidateSchema)
	linePattern        = regexp.MustCompile(`(?i)Chapter:?\s+([^\n]+)\s+Start:?\s+([^\n]+)\s+End:?\s+([^\n]+)`)
)

type strategy struct {
	tier  generation.ParseTier
	parse func(response string) []Candidate
}

var strategies = []strategy{
	{tier: generation.TierJSON, parse: parseJSON},
	{tier: generation.TierLines, parse: parseLines},
}

// Parse runs the strategies in order and returns the first non-empty result.
func Parse(response string) ParseResult {
	for _, s := range strategies {
		if candidates := s.parse(response); len(candidates) > 0 {
			return ParseResult{Candidates: candidates, Tier: s.tier}
		}
	}
	return ParseResult{Tier: generation.TierFallback, UsedFallback: true}
}

func parseJSON(response string) []Candidate {
	for _, span := range generation.JSONArrayCandidates(response) {
		var elements []any
		if err := json.Unmarshal([]byte(span), &elements); err != nil {
			continue
		}
		var out []Candidate
		for _, el := range elements {
			if candidateValidator.Validate(el) != nil {
				continue
			}
			obj := el.(map[string]any)
			c := Candidate{
				Title:       strings.TrimSpace(obj["title"].(string)),
				StartMarker: firstString(obj, "start_marker", "start_text"),
				EndMarker:   firstString(obj, "end_marker", "end_text"),
			}
			if c.Title != "" && c.StartMarker != "" {
				out = append(out, c)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func parseLines(response string) []Candidate {
	var out []Candidate
	for _, m := range linePattern.FindAllStringSubmatch(response, -1) {
		c := Candidate{
			Title:       cleanMarker(m[1]),
			StartMarker: cleanMarker(m[2]),
			EndMarker:   cleanMarker(m[3]),
		}
		if c.Title != "" && c.StartMarker != "" {
			out = append(out, c)
		}
	}
	return out
}

// firstString returns the first of keys holding a non-empty string.
func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func cleanMarker(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`+"`")
	return strings.TrimSpace(s)
}
