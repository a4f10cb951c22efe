// Package chapters resolves a document into an ordered, non-overlapping list
// of titled chapters that together cover the whole text.
//
// Boundaries come from an external text generator asked for verbatim start
// and end markers. Responses are parsed by an ordered set of strategies
// (JSON array, then "Chapter/Start/End" lines). Candidates whose markers are
// not in the text are dropped, and when nothing survives a single fallback
// chapter is used. A refinement pass removes overlaps and fills gaps so the
// result always covers [0, len(text)).
package chapters
