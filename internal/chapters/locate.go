package chapters

import (
	"regexp"
	"strings"
)

// Chapter is a titled [Start,End) byte range of the resolved text.
type Chapter struct {
	Title   string
	Start   int
	End     int
	Content string
	// Synthetic is set for chapters the resolver made up: fallbacks and
	// gap fillers.
	Synthetic bool
}

// Len returns the chapter length in bytes.
func (c Chapter) Len() int { return c.End - c.Start }

// locate finds a candidate's span in text. The start marker is searched at
// or after offset; the end marker after start. A missing or unknown end
// marker extends the chapter to the end of the text.
func locate(text string, offset int, c Candidate) (Chapter, bool) {
	start, ok := find(text, c.StartMarker, offset)
	if !ok {
		return Chapter{}, false
	}

	end := len(text)
	if c.EndMarker != "" {
		if pos, ok := find(text, c.EndMarker, start+1); ok {
			end = pos
		}
	}
	return Chapter{Title: c.Title, Start: start, End: end}, true
}

// find returns the first position of marker in text at or after from.
// Markers copied from extracted text often differ in line breaks, so an
// exact miss is retried with whitespace runs treated as equivalent.
func find(text, marker string, from int) (int, bool) {
	if marker == "" || from >= len(text) {
		return 0, false
	}
	if i := strings.Index(text[from:], marker); i >= 0 {
		return from + i, true
	}

	fields := strings.Fields(marker)
	if len(fields) < 2 {
		return 0, false
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = regexp.QuoteMeta(f)
	}
	re, err := regexp.Compile(strings.Join(quoted, `\s+`))
	if err != nil {
		return 0, false
	}
	if loc := re.FindStringIndex(text[from:]); loc != nil {
		return from + loc[0], true
	}
	return 0, false
}
