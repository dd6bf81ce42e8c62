package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func tiffBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestDecodeTIFF(t *testing.T) {
	img, err := Decode(tiffBytes(t, 64, 48))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("not an image at all"))
	assert.Error(t, err)
}

func TestThumbnailIsBoundedDataURL(t *testing.T) {
	img, err := Decode(tiffBytes(t, 2000, 1000))
	require.NoError(t, err)

	url, err := Thumbnail(img)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
	require.NoError(t, err)
	thumb, _, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.LessOrEqual(t, thumb.Bounds().Dx(), ThumbnailMax)
	assert.LessOrEqual(t, thumb.Bounds().Dy(), ThumbnailMax)
}

func TestThumbnailKeepsSmallImages(t *testing.T) {
	img, err := Decode(tiffBytes(t, 100, 80))
	require.NoError(t, err)

	url, err := Thumbnail(img)
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
	require.NoError(t, err)
	thumb, _, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 100, thumb.Bounds().Dx())
	assert.Equal(t, 80, thumb.Bounds().Dy())
}

func TestModelInputIsFixedSize(t *testing.T) {
	img, err := Decode(tiffBytes(t, 123, 456))
	require.NoError(t, err)

	resized := ModelInput(img)
	assert.Equal(t, ModelInputSize, resized.Bounds().Dx())
	assert.Equal(t, ModelInputSize, resized.Bounds().Dy())
}
