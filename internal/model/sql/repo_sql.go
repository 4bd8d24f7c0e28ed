package sql

import (
	"errors"

	"gorm.io/gorm"
)

// GormRepository implements Repository using GORM
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new repository instance
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

var errNotInitialised = errors.New("repository not initialised")

// ready reports whether the repository has a usable connection.
func (r *GormRepository) ready() bool {
	return r != nil && r.db != nil
}

// notFoundAsNil folds gorm.ErrRecordNotFound into an absent result.
func notFoundAsNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
