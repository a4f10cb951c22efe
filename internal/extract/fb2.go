package extract

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html/charset"
)

// fb2Blocks end a paragraph when they close.
var fb2Blocks = map[string]bool{"p": true, "title": true, "subtitle": true, "v": true, "section": true, "epigraph": true, "text-author": true}

// extractFB2 collects the text inside <body> elements. FictionBook files
// often declare a legacy encoding, so the decoder resolves charsets by label.
func extractFB2(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open fb2: %w", err)
	}
	defer f.Close()
	return fb2Text(f)
}

func fb2Text(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false

	var (
		b     strings.Builder
		depth int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse fb2: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "body" {
				depth++
			}
		case xml.EndElement:
			switch {
			case t.Name.Local == "body":
				depth--
				b.WriteString("\n\n")
			case depth > 0 && fb2Blocks[t.Name.Local]:
				b.WriteString("\n\n")
			}
		case xml.CharData:
			if depth > 0 {
				b.Write(t)
			}
		}
	}
	return normalize(b.String()), nil
}
