package filename

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		sample string
		serial string
	}{
		{"standard tile", "S-3602-10X_Image001_ch00.tif", "S-3602", "S-3602-01"},
		{"large image number keeps last two digits", "S-4500-10X_Image0123_ch00.tif", "S-4500", "S-4500-23"},
		{"single digit index is zero padded", "S-12-10X_Image7.tif", "S-12", "S-12-07"},
		{"missing image index", "S-3602-10X.tif", "S-3602", "S-3602-00"},
		{"path components are ignored", "slides/batch1/S-3602-10X_Image001.tif", "S-3602", "S-3602-01"},
		{"no sample token falls back to the stem", "weird_filename.tif", "weird_filename", "weird_filename-00"},
		{"fallback still honors the image index", "scan_Image042.tif", "scan_Image042", "scan_Image042-42"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := Parse(tc.in)
			assert.Equal(t, tc.sample, id.SampleID)
			assert.Equal(t, tc.serial, id.SerialNumber)
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	first := Parse("S-3602-10X_Image001_ch00.tif")
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Parse("S-3602-10X_Image001_ch00.tif"))
	}
	assert.NotEqual(t, first.SampleID, first.SerialNumber)
}
