package testgen

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
)

// supportedImageMIMEs are the raster formats both providers accept as-is.
var supportedImageMIMEs = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// NormalizeImage prepares an image for a provider call. Images already in a
// supported format keep their source encoding; anything else is decoded and
// re-encoded as PNG. Callers treat an error as skip-this-image, never as a
// call failure.
func NormalizeImage(img Image) (Image, error) {
	if supportedImageMIMEs[img.MIME] {
		return img, nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return Image{}, fmt.Errorf("decode image (%s): %w", img.MIME, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return Image{}, fmt.Errorf("re-encode image as png: %w", err)
	}
	return Image{Data: buf.Bytes(), MIME: "image/png"}, nil
}
