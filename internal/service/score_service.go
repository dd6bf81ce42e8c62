package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/lshigami/Pathoscore/config"
	"github.com/lshigami/Pathoscore/internal/dto"
	"github.com/lshigami/Pathoscore/internal/filename"
	"github.com/lshigami/Pathoscore/internal/imaging"
	"github.com/lshigami/Pathoscore/internal/inference"
	"github.com/lshigami/Pathoscore/internal/model"
	"github.com/lshigami/Pathoscore/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ScoreService owns the upsert protocol: one upload either returns the
// record already stored for that filename, untouched, or runs inference
// exactly once and persists the result.
type ScoreService interface {
	Upload(ctx context.Context, name string, content []byte) (*dto.ScoreRecordDTO, error)
	UpdateScores(id uint, updates dto.ScoreUpdateRequest) error
	History() ([]model.ImageScore, error)
	ModelReady() bool
}

type scoreService struct {
	repo   repository.ScoreRepository
	scorer inference.Scorer
	rawDir string
}

func NewScoreService(repo repository.ScoreRepository, scorer inference.Scorer, cfg *config.Config) ScoreService {
	rawDir := ""
	if cfg.UploadDir != "" {
		rawDir = filepath.Join(cfg.UploadDir, "raw")
		if err := os.MkdirAll(rawDir, 0o755); err != nil {
			log.Warn().Err(err).Str("dir", rawDir).Msg("Cannot create raw upload directory, originals will not be kept")
			rawDir = ""
		}
	}
	return &scoreService{repo: repo, scorer: scorer, rawDir: rawDir}
}

// Upload is the upsert. Re-uploading a known filename returns the stored
// record verbatim, including any human corrections, and performs zero
// writes; inference runs only for genuinely new filenames.
func (s *scoreService) Upload(ctx context.Context, name string, content []byte) (*dto.ScoreRecordDTO, error) {
	existing, err := s.repo.FindByFilename(name)
	if err == nil {
		log.Info().Str("filename", name).Uint("id", existing.ID).Msg("Returning stored record, skipping inference")
		return dto.NewScoreRecordDTO(existing, "success")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewErrStore(err)
	}

	if !s.scorer.Ready() {
		return nil, NewErrModelUnavailable()
	}

	img, err := imaging.Decode(content)
	if err != nil {
		return nil, NewErrDecode(name, err)
	}

	id := filename.Parse(name)

	scores, err := s.scorer.Score(ctx, img)
	if err != nil {
		return nil, NewErrInference(name, err)
	}

	thumb, err := imaging.Thumbnail(img)
	if err != nil {
		return nil, NewErrDecode(name, err)
	}

	record := &model.ImageScore{
		Filename:          name,
		SerialNumber:      id.SerialNumber,
		SampleID:          id.SampleID,
		ScoreArchitecture: scores.Architecture,
		ScoreAtrophy:      scores.Atrophy,
		ScoreComplexes:    scores.Complexes,
		ScoreFibrosis:     scores.Fibrosis,
		Thumbnail:         thumb,
	}
	if err := s.repo.Create(record); err != nil {
		return nil, NewErrStore(err)
	}

	s.keepRaw(name, content)

	log.Info().Str("filename", name).Str("serial", id.SerialNumber).Float64("total", record.Total()).Msg("Scored new image")
	return dto.NewScoreRecordDTO(record, "success")
}

// UpdateScores applies a pathologist's corrections to one record. Only the
// submitted metrics change; the total is never stored, so nothing else needs
// recomputing here.
func (s *scoreService) UpdateScores(id uint, updates dto.ScoreUpdateRequest) error {
	if len(updates) == 0 {
		return NewErrUnknownMetric("")
	}
	columns := make(map[string]interface{}, len(updates))
	for name, value := range updates {
		column, ok := model.ColumnForMetric(name)
		if !ok {
			return NewErrUnknownMetric(name)
		}
		columns[column] = value
	}

	if err := s.repo.UpdateColumns(id, columns); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewErrRecordNotFound(id)
		}
		return NewErrStore(err)
	}
	log.Info().Uint("id", id).Int("metrics", len(columns)).Msg("Score correction saved")
	return nil
}

func (s *scoreService) History() ([]model.ImageScore, error) {
	scores, err := s.repo.FindAll()
	if err != nil {
		return nil, NewErrStore(err)
	}
	return scores, nil
}

func (s *scoreService) ModelReady() bool {
	return s.scorer.Ready()
}

// keepRaw archives the original upload bytes. Best effort only, a failure
// here never fails the request.
func (s *scoreService) keepRaw(name string, content []byte) {
	if s.rawDir == "" {
		return
	}
	path := filepath.Join(s.rawDir, filepath.Base(name))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to archive raw upload")
	}
}
