package segment

import (
	"regexp"
	"unicode/utf8"
)

// SentenceLookback is how far back from the size boundary the sentence
// search reaches.
const SentenceLookback = 200

var paragraphBreak = regexp.MustCompile(`\n[ \t\r]*\n`)

// Span is a [Start,End) byte range of the segmented text.
type Span struct {
	Start int
	End   int
}

// Len returns the span length.
func (s Span) Len() int { return s.End - s.Start }

// Segment splits text into chunks of at most maxSize bytes. Text that already
// fits, or a non-positive maxSize, yields the text unchanged as one chunk.
func Segment(text string, maxSize int) []string {
	return slice(text, Spans(text, maxSize))
}

// Spans is Segment returning byte ranges instead of substrings.
func Spans(text string, maxSize int) []Span {
	if maxSize <= 0 || len(text) <= maxSize {
		return []Span{{Start: 0, End: len(text)}}
	}
	return spansFrom(text, 0, len(text), maxSize)
}

// spansFrom segments text[from:to] and returns absolute spans.
func spansFrom(text string, from, to, maxSize int) []Span {
	var spans []Span
	cursor := from
	for cursor < to {
		if to-cursor <= maxSize {
			spans = append(spans, Span{Start: cursor, End: to})
			break
		}
		cut := nextCut(text, cursor, cursor+maxSize, maxSize)
		spans = append(spans, Span{Start: cursor, End: cut})
		cursor = cut
	}
	return spans
}

// nextCut picks where the chunk starting at cursor ends. limit is
// cursor+maxSize and always lies inside the text.
func nextCut(text string, cursor, limit, maxSize int) int {
	if cut, ok := paragraphCut(text, cursor+maxSize/2, limit); ok {
		return cut
	}
	if cut, ok := sentenceCut(text, cursor, limit); ok {
		return cut
	}
	return hardCut(text, cursor, limit)
}

// paragraphCut returns the position just after the last blank line wholly
// inside text[lo:hi].
func paragraphCut(text string, lo, hi int) (int, bool) {
	matches := paragraphBreak.FindAllStringIndex(text[lo:hi], -1)
	if len(matches) == 0 {
		return 0, false
	}
	return lo + matches[len(matches)-1][1], true
}

// sentenceCut scans backward from hi for sentence punctuation followed by
// whitespace and cuts after the whitespace.
func sentenceCut(text string, cursor, hi int) (int, bool) {
	floor := hi - SentenceLookback
	if floor < cursor+1 {
		floor = cursor + 1
	}
	for j := hi - 1; j >= floor; j-- {
		if isSpace(text[j]) && isSentenceEnd(text[j-1]) {
			return j + 1, true
		}
	}
	return 0, false
}

// hardCut cuts at limit, moved back to a rune boundary. A chunk that would
// become empty grows forward to the next boundary instead.
func hardCut(text string, cursor, limit int) int {
	cut := limit
	for cut > cursor && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut > cursor {
		return cut
	}
	cut = limit
	for cut < len(text) && !utf8.RuneStart(text[cut]) {
		cut++
	}
	return cut
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

func slice(text string, spans []Span) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = text[s.Start:s.End]
	}
	return out
}
