package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/docrag/internal/errors"
)

// textExtensions are the file types ingested as plain text.
var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".rst":      true,
	".csv":      true,
	".log":      true,
	".json":     true,
	".yaml":     true,
	".yml":      true,
	".html":     true,
	".xml":      true,
}

// SupportedFile reports whether the path has an ingestable extension.
func SupportedFile(path string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(path))]
}

// extractText reads a document file as UTF-8 text. Binary or empty
// files are rejected rather than indexed as garbage.
func extractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIngestFailed,
			fmt.Errorf("read %s: %w", path, err))
	}

	if !utf8.Valid(data) {
		return "", errors.New(errors.ErrCodeIngestFailed,
			fmt.Sprintf("file %s is not valid UTF-8 text", filepath.Base(path)), nil)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New(errors.ErrCodeIngestFailed,
			fmt.Sprintf("file %s contains no text", filepath.Base(path)), nil)
	}
	return text, nil
}
