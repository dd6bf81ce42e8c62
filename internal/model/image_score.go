package model

import (
	"math"
	"time"
)

// Metric names as they appear in API payloads and the CSV export. The order
// matches the output vector of the scoring model.
const (
	MetricArchitecture = "Pancreatic Architecture"
	MetricAtrophy      = "Glandular Atrophy"
	MetricComplexes    = "Pseudotubular Complexes"
	MetricFibrosis     = "Fibrosis"
)

// MetricOrder is the canonical ordering of the four severity metrics.
var MetricOrder = [4]string{MetricArchitecture, MetricAtrophy, MetricComplexes, MetricFibrosis}

// MaxScores caps each metric; index matches MetricOrder.
var MaxScores = [4]float64{4.0, 3.0, 3.0, 4.0}

// ImageScore is one scored whole-slide image. Filename is the sole upsert
// identity: at most one row ever exists per filename. The four score columns
// may be corrected by a pathologist after creation; everything else is
// immutable once inserted.
type ImageScore struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	Filename     string `json:"filename" gorm:"not null;uniqueIndex"`
	SerialNumber string `json:"serial_number" gorm:"index"`
	SampleID     string `json:"sample_id" gorm:"index"`

	ScoreArchitecture float64 `json:"score_architecture"`
	ScoreAtrophy      float64 `json:"score_atrophy"`
	ScoreComplexes    float64 `json:"score_complexes"`
	ScoreFibrosis     float64 `json:"score_fibrosis"`

	// Thumbnail is a self-contained data URL (base64 PNG), no file reference.
	Thumbnail string `json:"thumbnail,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Round2 rounds to two decimal places, the precision used everywhere scores
// are surfaced.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Total is derived from the four stored metrics, never stored itself.
func (s *ImageScore) Total() float64 {
	return Round2(s.ScoreArchitecture + s.ScoreAtrophy + s.ScoreComplexes + s.ScoreFibrosis)
}

// Metrics returns the four scores keyed by metric name.
func (s *ImageScore) Metrics() map[string]float64 {
	return map[string]float64{
		MetricArchitecture: s.ScoreArchitecture,
		MetricAtrophy:      s.ScoreAtrophy,
		MetricComplexes:    s.ScoreComplexes,
		MetricFibrosis:     s.ScoreFibrosis,
	}
}

// ColumnForMetric maps an API metric name to its database column. The second
// return is false for unknown metric names.
func ColumnForMetric(name string) (string, bool) {
	switch name {
	case MetricArchitecture:
		return "score_architecture", true
	case MetricAtrophy:
		return "score_atrophy", true
	case MetricComplexes:
		return "score_complexes", true
	case MetricFibrosis:
		return "score_fibrosis", true
	}
	return "", false
}
