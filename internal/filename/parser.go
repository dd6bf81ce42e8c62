// Package filename extracts sample and serial identifiers from whole-slide
// image filenames such as "S-3602-10X_Image001_ch00.tif".
package filename

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Identity is the pair of identifiers parsed from one filename. SampleID
// groups slides cut from the same sample; SerialNumber is unique per image.
type Identity struct {
	SampleID     string
	SerialNumber string
}

var (
	samplePattern = regexp.MustCompile(`[A-Za-z]+-\d+`)
	imagePattern  = regexp.MustCompile(`(?i)image(\d+)`)
)

// Parse never fails: filenames without a recognizable sample token fall back
// to identifiers derived from the filename stem, so the result is always a
// usable, deterministic key.
func Parse(name string) Identity {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	sample := samplePattern.FindString(base)
	if sample == "" {
		sample = stem
	}
	if sample == "" {
		sample = "UNKNOWN"
	}

	// The serial disambiguates slides within a sample using the trailing two
	// digits of the image index ("Image0123" -> "23").
	suffix := "00"
	if m := imagePattern.FindStringSubmatch(base); m != nil {
		digits := m[1]
		if len(digits) >= 2 {
			suffix = digits[len(digits)-2:]
		} else {
			suffix = "0" + digits
		}
	}

	return Identity{
		SampleID:     sample,
		SerialNumber: sample + "-" + suffix,
	}
}
