package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yamdb/yamdb-api/internal/models"
	"gorm.io/gorm"
)

// ratingColumn selects the mean review score of each title, NULL when unreviewed.
const ratingColumn = "(SELECT CAST(AVG(reviews.score) AS DOUBLE PRECISION) FROM reviews WHERE reviews.title_id = titles.id) AS rating"

// TitleFilter narrows a title listing. Zero values disable a criterion.
type TitleFilter struct {
	Category string
	Genre    string
	Name     string
	Year     *int
}

type TitleRepository struct {
	db *gorm.DB
}

func NewTitleRepository(db *gorm.DB) *TitleRepository {
	return &TitleRepository{db: db}
}

func (r *TitleRepository) withRating(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Title{}).
		Select("titles.*, " + ratingColumn).
		Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB {
			return db.Order("genres.name ASC")
		})
}

// Create inserts the title and links it to already persisted genres.
func (r *TitleRepository) Create(ctx context.Context, title *models.Title) error {
	title.Category = nil
	return r.db.WithContext(ctx).Omit("Category", "Genres.*").Create(title).Error
}

// Update writes the scalar columns and, when genres is non-nil, replaces the genre set.
func (r *TitleRepository) Update(ctx context.Context, title *models.Title, genres []models.Genre) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(title).
			Select("Name", "Year", "Description", "CategoryID").
			Updates(title).Error; err != nil {
			return fmt.Errorf("update title: %w", err)
		}
		if genres == nil {
			return nil
		}
		if err := tx.Exec("DELETE FROM title_genres WHERE title_id = ?", title.ID).Error; err != nil {
			return fmt.Errorf("clear title genres: %w", err)
		}
		for _, g := range genres {
			if err := tx.Exec("INSERT INTO title_genres (title_id, genre_id) VALUES (?, ?)", title.ID, g.ID).Error; err != nil {
				return fmt.Errorf("link title genre: %w", err)
			}
		}
		return nil
	})
}

// GetByID loads a title with its category, genres and rating. Returns
// (nil, nil) when the title does not exist.
func (r *TitleRepository) GetByID(ctx context.Context, id int64) (*models.Title, error) {
	var title models.Title
	err := r.withRating(ctx).Where("titles.id = ?", id).First(&title).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &title, nil
}

// Exists reports whether a title with the id is stored.
func (r *TitleRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Title{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *TitleRepository) applyFilter(ctx context.Context, q *gorm.DB, f TitleFilter) *gorm.DB {
	if f.Category != "" {
		categories := r.db.WithContext(ctx).Model(&models.Category{}).Select("id").Where("slug = ?", f.Category)
		q = q.Where("titles.category_id IN (?)", categories)
	}
	if f.Genre != "" {
		linked := r.db.WithContext(ctx).Table("title_genres").
			Select("title_genres.title_id").
			Joins("JOIN genres ON genres.id = title_genres.genre_id").
			Where("genres.slug = ?", f.Genre)
		q = q.Where("titles.id IN (?)", linked)
	}
	if f.Name != "" {
		q = q.Where("LOWER(titles.name) LIKE ? ESCAPE '\\'", containsPattern(f.Name))
	}
	if f.Year != nil {
		q = q.Where("titles.year = ?", *f.Year)
	}
	return q
}

// List returns filtered titles ordered by name with their ratings.
func (r *TitleRepository) List(ctx context.Context, filter TitleFilter, opts ListOptions) ([]models.Title, int64, error) {
	var total int64
	counted := r.applyFilter(ctx, r.db.WithContext(ctx).Model(&models.Title{}), filter)
	if err := counted.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count titles: %w", err)
	}

	var titles []models.Title
	q := r.applyFilter(ctx, r.withRating(ctx), filter).Order("titles.name ASC, titles.id ASC")
	if err := opts.apply(q).Find(&titles).Error; err != nil {
		return nil, 0, fmt.Errorf("list titles: %w", err)
	}
	return titles, total, nil
}

// Delete removes the title with its reviews, their comments and its genre links.
func (r *TitleRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviews := tx.Model(&models.Review{}).Select("id").Where("title_id = ?", id)
		if err := tx.Where("review_id IN (?)", reviews).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete title comments: %w", err)
		}
		if err := tx.Where("title_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("delete title reviews: %w", err)
		}
		if err := tx.Exec("DELETE FROM title_genres WHERE title_id = ?", id).Error; err != nil {
			return fmt.Errorf("unlink title genres: %w", err)
		}
		if err := tx.Delete(&models.Title{}, id).Error; err != nil {
			return fmt.Errorf("delete title: %w", err)
		}
		return nil
	})
}
