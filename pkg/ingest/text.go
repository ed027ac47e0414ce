package ingest

import (
	"errors"
	"unicode/utf8"
)

// extractText passes plain and structured text through unchanged. Binary
// content pretending to be text is rejected rather than fed to the model.
func extractText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("not valid utf-8 text")
	}
	return string(data), nil
}
