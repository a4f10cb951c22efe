// Package segment splits long text into size-bounded chunks.
//
// Segment prefers paragraph breaks, then sentence ends, then a hard cut, and
// never loses or reorders bytes: concatenating the chunks reproduces the
// input. SegmentSemantic first tries to cut at detected section headers.
// Both are pure functions of their arguments. Sizes and offsets are in bytes.
package segment
