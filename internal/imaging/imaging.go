// Package imaging handles decoding of uploaded slide images and derivation
// of the two renditions the service needs: an inline preview thumbnail and
// the fixed-size input the scoring model expects.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

const (
	// ThumbnailMax bounds both thumbnail dimensions.
	ThumbnailMax = 400
	// ModelInputSize matches the preprocessing used to train the model.
	ModelInputSize = 512
)

// Decode parses uploaded image bytes. TIFF is the primary format; PNG and
// JPEG decoders are registered as well so model round-trips reuse this path.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Thumbnail scales the image down to at most ThumbnailMax on its longest
// side and returns it as a self-contained PNG data URL. Images already small
// enough are re-encoded unscaled.
func Thumbnail(img image.Image) (string, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > ThumbnailMax || h > ThumbnailMax {
		scale := float64(ThumbnailMax) / float64(w)
		if h > w {
			scale = float64(ThumbnailMax) / float64(h)
		}
		tw := int(float64(w) * scale)
		th := int(float64(h) * scale)
		if tw < 1 {
			tw = 1
		}
		if th < 1 {
			th = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, tw, th))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ModelInput resizes to the square ModelInputSize x ModelInputSize rendition
// the regressor was trained on. Aspect ratio is intentionally not preserved.
func ModelInput(img image.Image) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, ModelInputSize, ModelInputSize))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// EncodePNG renders an image as PNG bytes for transport to the model server.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
