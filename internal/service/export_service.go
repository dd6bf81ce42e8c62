package service

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/lshigami/Pathoscore/internal/model"
)

// ExportService dumps the full score history as CSV. No pagination: the
// dataset is one row per slide and reviewers want the whole study at once.
type ExportService interface {
	WriteCSV(w io.Writer) error
}

type exportService struct {
	scores ScoreService
}

func NewExportService(scores ScoreService) ExportService {
	return &exportService{scores: scores}
}

var exportHeader = []string{
	"filename",
	"serial_number",
	model.MetricArchitecture,
	model.MetricAtrophy,
	model.MetricComplexes,
	model.MetricFibrosis,
	"total",
}

func (s *exportService) WriteCSV(w io.Writer) error {
	records, err := s.scores.History()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for i := range records {
		r := &records[i]
		row := []string{
			r.Filename,
			r.SerialNumber,
			formatScore(r.ScoreArchitecture),
			formatScore(r.ScoreAtrophy),
			formatScore(r.ScoreComplexes),
			formatScore(r.ScoreFibrosis),
			formatScore(r.Total()),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
