package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yamdb/yamdb-api/internal/models"
	"gorm.io/gorm"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts the review. A second review for the same author and title
// fails with gorm.ErrDuplicatedKey.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Omit("Author", "Title").Create(review).Error
}

// GetByID loads a review of the given title with its author. Returns
// (nil, nil) when the review does not exist or belongs to another title.
func (r *ReviewRepository) GetByID(ctx context.Context, titleID, reviewID int64) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("id = ? AND title_id = ?", reviewID, titleID).
		First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

// ExistsForAuthor reports whether the author already reviewed the title.
func (r *ReviewRepository) ExistsForAuthor(ctx context.Context, authorID uuid.UUID, titleID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("author_id = ? AND title_id = ?", authorID, titleID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByTitle returns the title's reviews oldest first.
func (r *ReviewRepository) ListByTitle(ctx context.Context, titleID int64, opts ListOptions) ([]models.Review, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Review{}).Where("title_id = ?", titleID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	var reviews []models.Review
	if err := opts.apply(q.Preload("Author").Order("pub_date ASC, id ASC")).Find(&reviews).Error; err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, total, nil
}

func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).
		Model(review).
		Select("Text", "Score", "PubDate").
		Updates(review).Error
}

// Delete removes the review and its comments.
func (r *ReviewRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete review comments: %w", err)
		}
		if err := tx.Delete(&models.Review{}, id).Error; err != nil {
			return fmt.Errorf("delete review: %w", err)
		}
		return nil
	})
}
