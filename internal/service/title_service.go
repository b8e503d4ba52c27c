package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/yamdb/yamdb-api/internal/models"
	"github.com/yamdb/yamdb-api/internal/repository"
	"github.com/yamdb/yamdb-api/internal/utils"
	"github.com/yamdb/yamdb-api/pkg/logger"
	"go.uber.org/zap"
)

// TitleInput is a title write with category and genres given by slug.
// Nil fields are left untouched on update; an empty Category clears it.
type TitleInput struct {
	Name        *string
	Year        *int
	Description *string
	Category    *string
	Genre       []string
	GenreSet    bool
}

type TitleService struct {
	titleRepo    *repository.TitleRepository
	categoryRepo *repository.CategoryRepository
	genreRepo    *repository.GenreRepository
}

func NewTitleService(
	titleRepo *repository.TitleRepository,
	categoryRepo *repository.CategoryRepository,
	genreRepo *repository.GenreRepository,
) *TitleService {
	return &TitleService{
		titleRepo:    titleRepo,
		categoryRepo: categoryRepo,
		genreRepo:    genreRepo,
	}
}

func (s *TitleService) List(ctx context.Context, filter repository.TitleFilter, opts repository.ListOptions) ([]models.Title, int64, error) {
	titles, total, err := s.titleRepo.List(ctx, filter, opts)
	if err != nil {
		logger.Log.Error("Failed to list titles", zap.Error(err))
		return nil, 0, err
	}
	return titles, total, nil
}

// Get returns the title with its rating computed from the current reviews.
func (s *TitleService) Get(ctx context.Context, id int64) (*models.Title, error) {
	title, err := s.titleRepo.GetByID(ctx, id)
	if err != nil {
		logger.Log.Error("Failed to get title", zap.Int64("title_id", id), zap.Error(err))
		return nil, err
	}
	if title == nil {
		return nil, ErrTitleNotFound
	}
	return title, nil
}

func (s *TitleService) Create(ctx context.Context, in TitleInput) (*models.Title, error) {
	ve := &ValidationError{}
	if in.Name == nil {
		ve.Add("name", "this field is required")
	}
	if in.Year == nil {
		ve.Add("year", "this field is required")
	}
	if !in.GenreSet || len(in.Genre) == 0 {
		ve.Add("genre", "at least one genre is required")
	}
	if ve.HasErrors() {
		logger.Log.Warn("Title validation failed", zap.Error(ve))
		return nil, ve
	}

	title := &models.Title{}
	genres, err := s.apply(ctx, title, in)
	if err != nil {
		return nil, err
	}
	title.Genres = genres

	if err := s.titleRepo.Create(ctx, title); err != nil {
		logger.Log.Error("Failed to create title", zap.String("name", title.Name), zap.Error(err))
		return nil, err
	}

	logger.Log.Info("Title created",
		zap.Int64("title_id", title.ID),
		zap.String("name", title.Name),
	)
	return s.Get(ctx, title.ID)
}

func (s *TitleService) Update(ctx context.Context, id int64, in TitleInput) (*models.Title, error) {
	title, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.GenreSet && len(in.Genre) == 0 {
		return nil, NewValidationError("genre", "at least one genre is required")
	}

	genres, err := s.apply(ctx, title, in)
	if err != nil {
		return nil, err
	}

	if err := s.titleRepo.Update(ctx, title, genres); err != nil {
		logger.Log.Error("Failed to update title", zap.Int64("title_id", id), zap.Error(err))
		return nil, err
	}

	logger.Log.Info("Title updated", zap.Int64("title_id", id))
	return s.Get(ctx, id)
}

func (s *TitleService) Delete(ctx context.Context, id int64) error {
	exists, err := s.titleRepo.Exists(ctx, id)
	if err != nil {
		logger.Log.Error("Failed to check title", zap.Int64("title_id", id), zap.Error(err))
		return err
	}
	if !exists {
		return ErrTitleNotFound
	}

	if err := s.titleRepo.Delete(ctx, id); err != nil {
		logger.Log.Error("Failed to delete title", zap.Int64("title_id", id), zap.Error(err))
		return err
	}

	logger.Log.Info("Title deleted", zap.Int64("title_id", id))
	return nil
}

// apply validates in, resolves slugs and copies scalar fields onto title.
// The returned genres are nil when in does not touch the genre set.
func (s *TitleService) apply(ctx context.Context, title *models.Title, in TitleInput) ([]models.Genre, error) {
	ve := &ValidationError{}

	if in.Name != nil {
		ve.AddErr("name", utils.ValidateRequired(*in.Name, utils.MaxNameLength))
		title.Name = *in.Name
	}
	if in.Year != nil {
		ve.AddErr("year", utils.ValidateYear(*in.Year))
		title.Year = *in.Year
	}
	if in.Description != nil {
		title.Description = in.Description
	}

	if in.Category != nil {
		if *in.Category == "" {
			title.CategoryID = nil
		} else {
			category, err := s.categoryRepo.GetBySlug(ctx, *in.Category)
			if err != nil {
				logger.Log.Error("Failed to resolve category", zap.String("slug", *in.Category), zap.Error(err))
				return nil, err
			}
			if category == nil {
				ve.Add("category", unknownSlug(*in.Category))
			} else {
				title.CategoryID = &category.ID
			}
		}
	}

	var genres []models.Genre
	if in.GenreSet {
		slugs := dedupe(in.Genre)
		found, err := s.genreRepo.GetBySlugs(ctx, slugs)
		if err != nil {
			logger.Log.Error("Failed to resolve genres", zap.Strings("slugs", slugs), zap.Error(err))
			return nil, err
		}
		known := make(map[string]models.Genre, len(found))
		for _, g := range found {
			known[g.Slug] = g
		}
		genres = make([]models.Genre, 0, len(slugs))
		for _, slug := range slugs {
			g, ok := known[slug]
			if !ok {
				ve.Add("genre", unknownSlug(slug))
				continue
			}
			genres = append(genres, g)
		}
	}

	if ve.HasErrors() {
		logger.Log.Warn("Title validation failed", zap.Error(ve))
		return nil, ve
	}
	return genres, nil
}

func unknownSlug(slug string) string {
	return fmt.Sprintf("object with slug=%q does not exist", slug)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
