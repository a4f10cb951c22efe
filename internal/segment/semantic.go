package segment

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// MinHeaders is the number of usable headers semantic mode needs.
	MinHeaders = 4
	// MinHeaderGap is the minimum distance between two kept headers.
	MinHeaderGap = 500

	maxHeaderLen = 80
	maxCapsLen   = 60
)

var (
	markdownHeading = regexp.MustCompile(`^#{1,6}\s+\S`)
	emphasizedLine  = regexp.MustCompile(`^(\*\*|__)[^*_].*(\*\*|__)$`)
	chapterWord     = regexp.MustCompile(`^(?i:(?:chapter|part|section|book)\s+(?:\d+|[ivxlcdm]+|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\b)`)
	numberedHeading = regexp.MustCompile(`^\d+(?:\.\d+)*\.?\s+\p{Lu}|^[IVXLCDM]+\.\s+\S`)
)

// SegmentSemantic cuts text at detected section headers when at least
// MinHeaders headers at least MinHeaderGap apart are found. Spans between
// headers larger than maxSize are split further with Segment. Otherwise it
// behaves exactly like Segment.
func SegmentSemantic(text string, maxSize int) []string {
	return slice(text, SemanticSpans(text, maxSize))
}

// SemanticSpans is SegmentSemantic returning byte ranges.
func SemanticSpans(text string, maxSize int) []Span {
	headers := keptHeaders(HeaderOffsets(text))
	if len(headers) < MinHeaders {
		return Spans(text, maxSize)
	}

	bounds := headers
	if bounds[0] != 0 {
		bounds = append([]int{0}, bounds...)
	}
	bounds = append(bounds, len(text))

	var spans []Span
	for i := 0; i+1 < len(bounds); i++ {
		from, to := bounds[i], bounds[i+1]
		if maxSize > 0 && to-from > maxSize {
			spans = append(spans, spansFrom(text, from, to, maxSize)...)
			continue
		}
		spans = append(spans, Span{Start: from, End: to})
	}
	return spans
}

// HeaderOffsets returns the byte offset of every line that looks like a
// section header, in order.
func HeaderOffsets(text string) []int {
	var offsets []int
	pos := 0
	for pos < len(text) {
		end := strings.IndexByte(text[pos:], '\n')
		line := text[pos:]
		next := len(text)
		if end >= 0 {
			line = text[pos : pos+end]
			next = pos + end + 1
		}
		if IsHeader(line) {
			offsets = append(offsets, pos)
		}
		pos = next
	}
	return offsets
}

// IsHeader reports whether a single line looks like a section header:
// a short all-caps line, a numbered heading, or a short emphasized line.
func IsHeader(line string) bool {
	s := strings.TrimSpace(line)
	if len(s) < 3 || len(s) > maxHeaderLen {
		return false
	}
	if markdownHeading.MatchString(s) || emphasizedLine.MatchString(s) {
		return true
	}
	if chapterWord.MatchString(s) {
		return true
	}
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, ",") {
		return false
	}
	return numberedHeading.MatchString(s) || (len(s) <= maxCapsLen && isAllCaps(s))
}

// keptHeaders drops headers closer than MinHeaderGap to the previous kept one.
func keptHeaders(offsets []int) []int {
	var kept []int
	for _, off := range offsets {
		if len(kept) > 0 && off-kept[len(kept)-1] < MinHeaderGap {
			continue
		}
		kept = append(kept, off)
	}
	return kept
}

func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}
