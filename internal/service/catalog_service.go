package service

import (
	"context"

	"github.com/yamdb/yamdb-api/internal/models"
	"github.com/yamdb/yamdb-api/internal/repository"
	"github.com/yamdb/yamdb-api/internal/utils"
	"github.com/yamdb/yamdb-api/pkg/logger"
	"go.uber.org/zap"
)

// CatalogService manages the category and genre taxonomies.
type CatalogService struct {
	categoryRepo *repository.CategoryRepository
	genreRepo    *repository.GenreRepository
}

func NewCatalogService(categoryRepo *repository.CategoryRepository, genreRepo *repository.GenreRepository) *CatalogService {
	return &CatalogService{categoryRepo: categoryRepo, genreRepo: genreRepo}
}

func validateTaxon(name, slug string) *ValidationError {
	ve := &ValidationError{}
	ve.AddErr("name", utils.ValidateRequired(name, utils.MaxNameLength))
	ve.AddErr("slug", utils.ValidateSlug(slug))
	return ve
}

func (s *CatalogService) ListCategories(ctx context.Context, search string, opts repository.ListOptions) ([]models.Category, int64, error) {
	categories, total, err := s.categoryRepo.List(ctx, search, opts)
	if err != nil {
		logger.Log.Error("Failed to list categories", zap.Error(err))
		return nil, 0, err
	}
	return categories, total, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, name, slug string) (*models.Category, error) {
	if ve := validateTaxon(name, slug); ve.HasErrors() {
		logger.Log.Warn("Category validation failed", zap.String("slug", slug), zap.Error(ve))
		return nil, ve
	}

	existing, err := s.categoryRepo.GetBySlug(ctx, slug)
	if err != nil {
		logger.Log.Error("Failed to check category slug", zap.String("slug", slug), zap.Error(err))
		return nil, err
	}
	if existing != nil {
		return nil, NewValidationError("slug", "category with this slug already exists")
	}

	category := &models.Category{Name: name, Slug: slug}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if isDuplicateKey(err) {
			return nil, NewValidationError("slug", "category with this slug already exists")
		}
		logger.Log.Error("Failed to create category", zap.String("slug", slug), zap.Error(err))
		return nil, err
	}

	logger.Log.Info("Category created",
		zap.Int64("category_id", category.ID),
		zap.String("slug", slug),
	)
	return category, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, slug string) error {
	category, err := s.categoryRepo.GetBySlug(ctx, slug)
	if err != nil {
		logger.Log.Error("Failed to get category", zap.String("slug", slug), zap.Error(err))
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}

	if err := s.categoryRepo.Delete(ctx, category.ID); err != nil {
		logger.Log.Error("Failed to delete category", zap.String("slug", slug), zap.Error(err))
		return err
	}

	logger.Log.Info("Category deleted", zap.String("slug", slug))
	return nil
}

func (s *CatalogService) ListGenres(ctx context.Context, search string, opts repository.ListOptions) ([]models.Genre, int64, error) {
	genres, total, err := s.genreRepo.List(ctx, search, opts)
	if err != nil {
		logger.Log.Error("Failed to list genres", zap.Error(err))
		return nil, 0, err
	}
	return genres, total, nil
}

func (s *CatalogService) CreateGenre(ctx context.Context, name, slug string) (*models.Genre, error) {
	if ve := validateTaxon(name, slug); ve.HasErrors() {
		logger.Log.Warn("Genre validation failed", zap.String("slug", slug), zap.Error(ve))
		return nil, ve
	}

	existing, err := s.genreRepo.GetBySlug(ctx, slug)
	if err != nil {
		logger.Log.Error("Failed to check genre slug", zap.String("slug", slug), zap.Error(err))
		return nil, err
	}
	if existing != nil {
		return nil, NewValidationError("slug", "genre with this slug already exists")
	}

	genre := &models.Genre{Name: name, Slug: slug}
	if err := s.genreRepo.Create(ctx, genre); err != nil {
		if isDuplicateKey(err) {
			return nil, NewValidationError("slug", "genre with this slug already exists")
		}
		logger.Log.Error("Failed to create genre", zap.String("slug", slug), zap.Error(err))
		return nil, err
	}

	logger.Log.Info("Genre created",
		zap.Int64("genre_id", genre.ID),
		zap.String("slug", slug),
	)
	return genre, nil
}

func (s *CatalogService) DeleteGenre(ctx context.Context, slug string) error {
	genre, err := s.genreRepo.GetBySlug(ctx, slug)
	if err != nil {
		logger.Log.Error("Failed to get genre", zap.String("slug", slug), zap.Error(err))
		return err
	}
	if genre == nil {
		return ErrGenreNotFound
	}

	if err := s.genreRepo.Delete(ctx, genre.ID); err != nil {
		logger.Log.Error("Failed to delete genre", zap.String("slug", slug), zap.Error(err))
		return err
	}

	logger.Log.Info("Genre deleted", zap.String("slug", slug))
	return nil
}
