package repository

import (
	"github.com/lshigami/Pathoscore/internal/model"
	"gorm.io/gorm"
)

type ScoreRepository interface {
	FindByFilename(filename string) (*model.ImageScore, error)
	FindByID(id uint) (*model.ImageScore, error)
	// FindAll returns the full history in insertion order.
	FindAll() ([]model.ImageScore, error)
	Create(score *model.ImageScore) error
	// UpdateColumns applies a partial update to a single row. The keys are
	// database column names; mapping metric names to columns is the caller's
	// concern. Returns gorm.ErrRecordNotFound when the row does not exist.
	UpdateColumns(id uint, columns map[string]interface{}) error
}

type scoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(db *gorm.DB) ScoreRepository {
	return &scoreRepository{db: db}
}

func (r *scoreRepository) FindByFilename(filename string) (*model.ImageScore, error) {
	var score model.ImageScore
	err := r.db.Where("filename = ?", filename).First(&score).Error
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func (r *scoreRepository) FindByID(id uint) (*model.ImageScore, error) {
	var score model.ImageScore
	err := r.db.First(&score, id).Error
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func (r *scoreRepository) FindAll() ([]model.ImageScore, error) {
	var scores []model.ImageScore
	err := r.db.Order("id ASC").Find(&scores).Error
	return scores, err
}

func (r *scoreRepository) Create(score *model.ImageScore) error {
	// A single Create is atomic; a failed insert leaves no partial row.
	return r.db.Create(score).Error
}

func (r *scoreRepository) UpdateColumns(id uint, columns map[string]interface{}) error {
	tx := r.db.Model(&model.ImageScore{}).Where("id = ?", id).Updates(columns)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
