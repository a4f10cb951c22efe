package generation

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// QuizPair is one generated question with its answer.
type QuizPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ParseTier records which parsing strategy produced a result.
type ParseTier string

// Parse tiers, in the order they are tried.
const (
	TierJSON     ParseTier = "json"
	TierLines    ParseTier = "lines"
	TierFallback ParseTier = "fallback"
)

const quizItemSchema = `{
  "type": "object",
  "required": ["question", "answer"],
  "properties": {
    "question": {"type": "string", "minLength": 1},
    "answer": {"type": "string", "minLength": 1}
  }
}`

var (
	quizSchema  = jsonschema.MustCompileString("quiz_item.json", quizItemSchema)
	quizPattern = regexp.MustCompile(`(?i)(?:Question|Q)\s*\d*\s*[:.]\s*([^\n]+)\s*(?:Answer|A)\s*[:.]\s*([^\n]+)`)
)

// ParseQuiz extracts question/answer pairs from a model response. It tries
// a JSON array first, then "Question: ... Answer: ..." lines. Elements that
// fail validation are skipped. TierFallback with no pairs means nothing
// usable was found.
func ParseQuiz(response string) ([]QuizPair, ParseTier) {
	if pairs := parseQuizJSON(response); len(pairs) > 0 {
		return pairs, TierJSON
	}
	if pairs := parseQuizLines(response); len(pairs) > 0 {
		return pairs, TierLines
	}
	return nil, TierFallback
}

func parseQuizJSON(response string) []QuizPair {
	for _, candidate := range JSONArrayCandidates(response) {
		var elements []any
		if err := json.Unmarshal([]byte(candidate), &elements); err != nil {
			continue
		}
		var pairs []QuizPair
		for _, el := range elements {
			if quizSchema.Validate(el) != nil {
				continue
			}
			obj := el.(map[string]any)
			pair := QuizPair{
				Question: strings.TrimSpace(obj["question"].(string)),
				Answer:   strings.TrimSpace(obj["answer"].(string)),
			}
			if pair.Question != "" && pair.Answer != "" {
				pairs = append(pairs, pair)
			}
		}
		if len(pairs) > 0 {
			return pairs
		}
	}
	return nil
}

func parseQuizLines(response string) []QuizPair {
	var pairs []QuizPair
	for _, m := range quizPattern.FindAllStringSubmatch(response, -1) {
		q, a := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if q != "" && a != "" {
			pairs = append(pairs, QuizPair{Question: q, Answer: a})
		}
	}
	return pairs
}
