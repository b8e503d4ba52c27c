package service

import (
	"context"
	"net/http"
	"time"

	"github.com/yamdb/yamdb-api/internal/models"
	"github.com/yamdb/yamdb-api/internal/permissions"
	"github.com/yamdb/yamdb-api/internal/repository"
	"github.com/yamdb/yamdb-api/internal/utils"
	"github.com/yamdb/yamdb-api/pkg/logger"
	"go.uber.org/zap"
)

const msgAlreadyReviewed = "you have already reviewed this title"

// ReviewInput is a partial review write.
type ReviewInput struct {
	Text  *string
	Score *int
}

type ReviewService struct {
	reviewRepo *repository.ReviewRepository
	titleRepo  *repository.TitleRepository
	now        func() time.Time
}

func NewReviewService(reviewRepo *repository.ReviewRepository, titleRepo *repository.TitleRepository) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		titleRepo:  titleRepo,
		now:        time.Now,
	}
}

func (s *ReviewService) ensureTitle(ctx context.Context, titleID int64) error {
	exists, err := s.titleRepo.Exists(ctx, titleID)
	if err != nil {
		logger.Log.Error("Failed to check title", zap.Int64("title_id", titleID), zap.Error(err))
		return err
	}
	if !exists {
		return ErrTitleNotFound
	}
	return nil
}

func (s *ReviewService) List(ctx context.Context, titleID int64, opts repository.ListOptions) ([]models.Review, int64, error) {
	if err := s.ensureTitle(ctx, titleID); err != nil {
		return nil, 0, err
	}
	reviews, total, err := s.reviewRepo.ListByTitle(ctx, titleID, opts)
	if err != nil {
		logger.Log.Error("Failed to list reviews", zap.Int64("title_id", titleID), zap.Error(err))
		return nil, 0, err
	}
	return reviews, total, nil
}

func (s *ReviewService) Get(ctx context.Context, titleID, reviewID int64) (*models.Review, error) {
	if err := s.ensureTitle(ctx, titleID); err != nil {
		return nil, err
	}
	review, err := s.reviewRepo.GetByID(ctx, titleID, reviewID)
	if err != nil {
		logger.Log.Error("Failed to get review",
			zap.Int64("title_id", titleID),
			zap.Int64("review_id", reviewID),
			zap.Error(err),
		)
		return nil, err
	}
	if review == nil {
		return nil, ErrReviewNotFound
	}
	return review, nil
}

// Create stores the actor's review of the title. Each author may review a
// title once; the unique index settles concurrent attempts.
func (s *ReviewService) Create(ctx context.Context, actor *models.User, titleID int64, in ReviewInput) (*models.Review, error) {
	ve := &ValidationError{}
	if in.Text == nil {
		ve.Add("text", "this field is required")
	} else if *in.Text == "" {
		ve.Add("text", "this field may not be blank")
	}
	if in.Score == nil {
		ve.Add("score", "this field is required")
	} else {
		ve.AddErr("score", utils.ValidateScore(*in.Score))
	}
	if ve.HasErrors() {
		logger.Log.Warn("Review validation failed", zap.Int64("title_id", titleID), zap.Error(ve))
		return nil, ve
	}

	if err := s.ensureTitle(ctx, titleID); err != nil {
		return nil, err
	}

	exists, err := s.reviewRepo.ExistsForAuthor(ctx, actor.ID, titleID)
	if err != nil {
		logger.Log.Error("Failed to check existing review", zap.Int64("title_id", titleID), zap.Error(err))
		return nil, err
	}
	if exists {
		logger.Log.Warn("Duplicate review rejected",
			zap.String("user_id", actor.ID.String()),
			zap.Int64("title_id", titleID),
		)
		return nil, NewValidationError("title", msgAlreadyReviewed)
	}

	review := &models.Review{
		Text:     *in.Text,
		Score:    *in.Score,
		AuthorID: actor.ID,
		TitleID:  titleID,
		PubDate:  s.now().UTC(),
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if isDuplicateKey(err) {
			logger.Log.Warn("Concurrent duplicate review rejected",
				zap.String("user_id", actor.ID.String()),
				zap.Int64("title_id", titleID),
			)
			return nil, NewValidationError("title", msgAlreadyReviewed)
		}
		logger.Log.Error("Failed to create review", zap.Int64("title_id", titleID), zap.Error(err))
		return nil, err
	}
	review.Author = *actor

	logger.Log.Info("Review created",
		zap.Int64("review_id", review.ID),
		zap.Int64("title_id", titleID),
		zap.String("user_id", actor.ID.String()),
	)
	return review, nil
}

// Update edits a review the actor authored or moderates and refreshes its pub_date.
func (s *ReviewService) Update(ctx context.Context, actor *models.User, titleID, reviewID int64, in ReviewInput) (*models.Review, error) {
	review, err := s.Get(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	if !permissions.OwnerOrPrivileged(actor, http.MethodPatch, review.AuthorID) {
		logger.Log.Warn("Review update forbidden",
			zap.Int64("review_id", reviewID),
			zap.String("user_id", actor.ID.String()),
		)
		return nil, ErrForbidden
	}

	ve := &ValidationError{}
	if in.Text != nil {
		if *in.Text == "" {
			ve.Add("text", "this field may not be blank")
		}
		review.Text = *in.Text
	}
	if in.Score != nil {
		ve.AddErr("score", utils.ValidateScore(*in.Score))
		review.Score = *in.Score
	}
	if ve.HasErrors() {
		return nil, ve
	}
	review.PubDate = s.now().UTC()

	if err := s.reviewRepo.Update(ctx, review); err != nil {
		logger.Log.Error("Failed to update review", zap.Int64("review_id", reviewID), zap.Error(err))
		return nil, err
	}

	logger.Log.Info("Review updated",
		zap.Int64("review_id", reviewID),
		zap.String("actor", actor.Username),
	)
	return review, nil
}

func (s *ReviewService) Delete(ctx context.Context, actor *models.User, titleID, reviewID int64) error {
	review, err := s.Get(ctx, titleID, reviewID)
	if err != nil {
		return err
	}
	if !permissions.OwnerOrPrivileged(actor, http.MethodDelete, review.AuthorID) {
		logger.Log.Warn("Review delete forbidden",
			zap.Int64("review_id", reviewID),
			zap.String("user_id", actor.ID.String()),
		)
		return ErrForbidden
	}

	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		logger.Log.Error("Failed to delete review", zap.Int64("review_id", reviewID), zap.Error(err))
		return err
	}

	logger.Log.Info("Review deleted",
		zap.Int64("review_id", reviewID),
		zap.String("actor", actor.Username),
	)
	return nil
}
