package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"
)

func extractText(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text file: %w", err)
	}
	if !utf8.Valid(data) {
		return "", errors.New("text file is not valid UTF-8")
	}
	return normalize(string(data)), nil
}
