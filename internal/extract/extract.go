package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for file extensions with no extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrTextTooShort is returned when a document yields (almost) no text.
	ErrTextTooShort = errors.New("extracted text is too short")
)

// ExtractionError describes a document that could not be turned into text.
type ExtractionError struct {
	Path   string
	Format string
	Err    error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("extract %s: %v", filepath.Base(e.Path), e.Err)
	}
	return fmt.Sprintf("extract %s (%s): %v", filepath.Base(e.Path), e.Format, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor reads the text of one document format from a file on disk.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, path string) (string, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Registry dispatches extraction by file extension.
type Registry struct {
	extractors    map[string]Extractor
	minTextLength int
}

// NewRegistry returns a registry with every built-in format registered.
// Documents whose trimmed text is shorter than minTextLength are rejected.
func NewRegistry(minTextLength int) *Registry {
	r := &Registry{extractors: make(map[string]Extractor), minTextLength: minTextLength}
	r.Register(".pdf", ExtractorFunc(extractPDF))
	r.Register(".epub", ExtractorFunc(extractEPUB))
	r.Register(".docx", ExtractorFunc(extractDOCX))
	r.Register(".md", ExtractorFunc(extractMarkdown))
	r.Register(".markdown", ExtractorFunc(extractMarkdown))
	r.Register(".txt", ExtractorFunc(extractText))
	r.Register(".fb2", ExtractorFunc(extractFB2))
	return r
}

// Register adds or replaces the extractor for ext, e.g. ".pdf".
func (r *Registry) Register(ext string, e Extractor) {
	r.extractors[strings.ToLower(ext)] = e
}

// Supports reports whether filename has a registered extension.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.extractors[Format(filename)]
	return ok
}

// Formats returns the registered extensions in sorted order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Extract returns the text of the document at path. All failures are
// *ExtractionError values wrapping ErrUnsupportedFormat, ErrTextTooShort or
// the reader's error.
func (r *Registry) Extract(ctx context.Context, path string) (string, error) {
	format := Format(path)
	e, ok := r.extractors[format]
	if !ok {
		return "", &ExtractionError{Path: path, Format: format, Err: ErrUnsupportedFormat}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := e.Extract(ctx, path)
	if err != nil {
		return "", &ExtractionError{Path: path, Format: format, Err: err}
	}
	if err := r.CheckLength(text); err != nil {
		return "", &ExtractionError{Path: path, Format: format, Err: err}
	}
	return text, nil
}

// CheckLength rejects text whose trimmed length is below the minimum.
func (r *Registry) CheckLength(text string) error {
	if n := len(strings.TrimSpace(text)); n < r.minTextLength {
		return fmt.Errorf("%w: %d characters, need at least %d", ErrTextTooShort, n, r.minTextLength)
	}
	return nil
}

// Format returns the lowercase extension of filename including the dot.
func Format(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// normalize unifies line endings and collapses runs of blank lines.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
