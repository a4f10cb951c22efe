package chapters

import (
	"sort"
	"strings"
)

// Titles of chapters the resolver synthesizes.
const (
	TitleBookContent    = "Book Content"
	TitleContentSection = "Content Section"
	TitleUntitled       = "Untitled Section"
	TitleClosing        = "Closing Section"
)

// MinGap is the smallest uncovered interior span that becomes its own
// chapter. Smaller interior gaps are absorbed by the preceding chapter.
const MinGap = 100

// refine orders chapters, removes overlap and fills gaps so the result is
// sorted, non-overlapping and covers [0, len(text)).
//
// The earlier of two overlapping chapters is clipped. A leading gap becomes
// an untitled chapter unless it is only whitespace, in which case the first
// chapter absorbs it. The trailing gap becomes a closing chapter under the
// same whitespace rule.
func refine(text string, chapters []Chapter) []Chapter {
	if len(text) == 0 {
		return nil
	}
	if len(chapters) == 0 {
		return []Chapter{withContent(text, Chapter{Title: TitleBookContent, Start: 0, End: len(text), Synthetic: true})}
	}

	sorted := make([]Chapter, len(chapters))
	copy(sorted, chapters)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i := range sorted {
		if sorted[i].End > len(text) {
			sorted[i].End = len(text)
		}
		if i+1 < len(sorted) && sorted[i].End > sorted[i+1].Start {
			sorted[i].End = sorted[i+1].Start
		}
	}

	var out []Chapter
	cursor := 0
	for _, ch := range sorted {
		if ch.End <= ch.Start {
			continue
		}
		if gap := ch.Start - cursor; gap > 0 {
			switch {
			case len(out) == 0 && isBlank(text[cursor:ch.Start]):
				ch.Start = cursor
			case len(out) == 0 || gap >= MinGap:
				out = append(out, Chapter{Title: TitleUntitled, Start: cursor, End: ch.Start, Synthetic: true})
			default:
				out[len(out)-1].End = ch.Start
			}
		}
		out = append(out, ch)
		cursor = ch.End
	}

	if cursor < len(text) {
		if isBlank(text[cursor:]) {
			out[len(out)-1].End = len(text)
		} else {
			out = append(out, Chapter{Title: TitleClosing, Start: cursor, End: len(text), Synthetic: true})
		}
	}

	for i := range out {
		out[i] = withContent(text, out[i])
	}
	return out
}

func withContent(text string, ch Chapter) Chapter {
	ch.Content = text[ch.Start:ch.End]
	return ch
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
