// Package extract turns uploaded documents into plain text.
//
// Extractors are registered by lowercase file extension. Every extractor
// keeps paragraph breaks as blank lines and headings as lines of their own,
// which is what the segmenter and the chapter resolver look for.
package extract
