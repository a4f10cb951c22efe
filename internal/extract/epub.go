package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

// extractEPUB reads the spine documents of the first rootfile in reading order.
func extractEPUB(ctx context.Context, path string) (string, error) {
	rc, err := epub.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return "", errors.New("no rootfiles found in epub")
	}
	book := rc.Rootfiles[0]

	var parts []string
	for _, ref := range book.Spine.Itemrefs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		text, err := htmlText(r)
		r.Close()
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return normalize(strings.Join(parts, "\n\n")), nil
}
