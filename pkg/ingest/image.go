package ingest

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// extractImage produces a metadata summary; pixel content is not sent to
// text models.
func extractImage(data []byte) (string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return fmt.Sprintf("Image Analysis:\n- Format: %s\n- Size: %dx%d pixels", format, cfg.Width, cfg.Height), nil
}
