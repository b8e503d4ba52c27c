package service

import (
	"context"
	"net/http"
	"time"

	"github.com/yamdb/yamdb-api/internal/models"
	"github.com/yamdb/yamdb-api/internal/permissions"
	"github.com/yamdb/yamdb-api/internal/repository"
	"github.com/yamdb/yamdb-api/pkg/logger"
	"go.uber.org/zap"
)

type CommentService struct {
	commentRepo *repository.CommentRepository
	reviews     *ReviewService
	now         func() time.Time
}

func NewCommentService(commentRepo *repository.CommentRepository, reviews *ReviewService) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		reviews:     reviews,
		now:         time.Now,
	}
}

func (s *CommentService) List(ctx context.Context, titleID, reviewID int64, opts repository.ListOptions) ([]models.Comment, int64, error) {
	if _, err := s.reviews.Get(ctx, titleID, reviewID); err != nil {
		return nil, 0, err
	}
	comments, total, err := s.commentRepo.ListByReview(ctx, reviewID, opts)
	if err != nil {
		logger.Log.Error("Failed to list comments", zap.Int64("review_id", reviewID), zap.Error(err))
		return nil, 0, err
	}
	return comments, total, nil
}

func (s *CommentService) Get(ctx context.Context, titleID, reviewID, commentID int64) (*models.Comment, error) {
	if _, err := s.reviews.Get(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comment, err := s.commentRepo.GetByID(ctx, reviewID, commentID)
	if err != nil {
		logger.Log.Error("Failed to get comment", zap.Int64("comment_id", commentID), zap.Error(err))
		return nil, err
	}
	if comment == nil {
		return nil, ErrCommentNotFound
	}
	return comment, nil
}

func (s *CommentService) Create(ctx context.Context, actor *models.User, titleID, reviewID int64, text *string) (*models.Comment, error) {
	if err := validateCommentText(text, true); err != nil {
		return nil, err
	}
	if _, err := s.reviews.Get(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Text:     *text,
		AuthorID: actor.ID,
		ReviewID: reviewID,
		PubDate:  s.now().UTC(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		logger.Log.Error("Failed to create comment", zap.Int64("review_id", reviewID), zap.Error(err))
		return nil, err
	}
	comment.Author = *actor

	logger.Log.Info("Comment created",
		zap.Int64("comment_id", comment.ID),
		zap.Int64("review_id", reviewID),
		zap.String("user_id", actor.ID.String()),
	)
	return comment, nil
}

func (s *CommentService) Update(ctx context.Context, actor *models.User, titleID, reviewID, commentID int64, text *string) (*models.Comment, error) {
	comment, err := s.Get(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if !permissions.OwnerOrPrivileged(actor, http.MethodPatch, comment.AuthorID) {
		logger.Log.Warn("Comment update forbidden",
			zap.Int64("comment_id", commentID),
			zap.String("user_id", actor.ID.String()),
		)
		return nil, ErrForbidden
	}
	if err := validateCommentText(text, false); err != nil {
		return nil, err
	}

	if text != nil {
		comment.Text = *text
	}

	if err := s.commentRepo.Update(ctx, comment); err != nil {
		logger.Log.Error("Failed to update comment", zap.Int64("comment_id", commentID), zap.Error(err))
		return nil, err
	}

	logger.Log.Info("Comment updated", zap.Int64("comment_id", commentID))
	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, actor *models.User, titleID, reviewID, commentID int64) error {
	comment, err := s.Get(ctx, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	if !permissions.OwnerOrPrivileged(actor, http.MethodDelete, comment.AuthorID) {
		logger.Log.Warn("Comment delete forbidden",
			zap.Int64("comment_id", commentID),
			zap.String("user_id", actor.ID.String()),
		)
		return ErrForbidden
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		logger.Log.Error("Failed to delete comment", zap.Int64("comment_id", commentID), zap.Error(err))
		return err
	}

	logger.Log.Info("Comment deleted", zap.Int64("comment_id", commentID))
	return nil
}

func validateCommentText(text *string, required bool) error {
	switch {
	case text == nil && required:
		return NewValidationError("text", "this field is required")
	case text != nil && *text == "":
		return NewValidationError("text", "this field may not be blank")
	}
	return nil
}
