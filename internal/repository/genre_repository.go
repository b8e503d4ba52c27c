package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yamdb/yamdb-api/internal/models"
	"gorm.io/gorm"
)

type GenreRepository struct {
	db *gorm.DB
}

func NewGenreRepository(db *gorm.DB) *GenreRepository {
	return &GenreRepository{db: db}
}

func (r *GenreRepository) Create(ctx context.Context, genre *models.Genre) error {
	return r.db.WithContext(ctx).Create(genre).Error
}

// GetBySlug returns (nil, nil) when no genre carries the slug.
func (r *GenreRepository) GetBySlug(ctx context.Context, slug string) (*models.Genre, error) {
	var genre models.Genre
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&genre).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &genre, nil
}

// GetBySlugs loads every genre whose slug is listed; unknown slugs are
// simply absent from the result.
func (r *GenreRepository) GetBySlugs(ctx context.Context, slugs []string) ([]models.Genre, error) {
	var genres []models.Genre
	if len(slugs) == 0 {
		return genres, nil
	}
	if err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&genres).Error; err != nil {
		return nil, fmt.Errorf("load genres by slug: %w", err)
	}
	return genres, nil
}

func (r *GenreRepository) List(ctx context.Context, search string, opts ListOptions) ([]models.Genre, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Genre{})
	if search != "" {
		q = q.Where("LOWER(name) LIKE ? ESCAPE '\\'", containsPattern(search))
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count genres: %w", err)
	}

	var genres []models.Genre
	if err := opts.apply(q.Order("name ASC, id ASC")).Find(&genres).Error; err != nil {
		return nil, 0, fmt.Errorf("list genres: %w", err)
	}
	return genres, total, nil
}

// Delete removes the genre and its title links.
func (r *GenreRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM title_genres WHERE genre_id = ?", id).Error; err != nil {
			return fmt.Errorf("unlink genre from titles: %w", err)
		}
		if err := tx.Delete(&models.Genre{}, id).Error; err != nil {
			return fmt.Errorf("delete genre: %w", err)
		}
		return nil
	})
}
