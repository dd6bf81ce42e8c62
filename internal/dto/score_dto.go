package dto

import (
	"time"

	"github.com/jinzhu/copier"
	"github.com/lshigami/Pathoscore/internal/model"
)

// ScoreRecordDTO is the payload the upload endpoint returns, both for fresh
// inference results and for previously persisted records.
type ScoreRecordDTO struct {
	Status       string             `json:"status"`
	DBID         uint               `json:"db_id"`
	Filename     string             `json:"filename"`
	SerialNumber string             `json:"serial_number"`
	SampleID     string             `json:"sample_id"`
	Scores       map[string]float64 `json:"scores"`
	DisplayURL   string             `json:"display_url"`
	CreatedAt    time.Time          `json:"created_at"`
}

// NewScoreRecordDTO maps a stored record into the API shape. Total is derived
// here from the four stored metrics; it is never read from the database.
func NewScoreRecordDTO(record *model.ImageScore, status string) (*ScoreRecordDTO, error) {
	var out ScoreRecordDTO
	if err := copier.Copy(&out, record); err != nil {
		return nil, err
	}
	out.Status = status
	out.DBID = record.ID
	out.DisplayURL = record.Thumbnail

	out.Scores = record.Metrics()
	out.Scores["Total"] = record.Total()
	return &out, nil
}

// ScoreUpdateRequest carries one or more corrected metric values, keyed by
// metric name.
type ScoreUpdateRequest map[string]float64

type ScoreUpdateAck struct {
	Status string `json:"status"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}
