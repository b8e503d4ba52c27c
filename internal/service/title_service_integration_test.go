package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yamdb/yamdb-api/internal/models"
	"github.com/yamdb/yamdb-api/internal/repository"
	"github.com/yamdb/yamdb-api/internal/service"
	"github.com/yamdb/yamdb-api/internal/testutil"
)

type TitleServiceIntegrationTestSuite struct {
	suite.Suite
	testDB         *testutil.TestDatabase
	titleService   *service.TitleService
	catalogService *service.CatalogService
	ctx            context.Context

	books  *models.Category
	films  *models.Category
	scifi  *models.Genre
	drama  *models.Genre
	latest repository.ListOptions
}

func (s *TitleServiceIntegrationTestSuite) SetupSuite() {
	s.testDB = testutil.SetupTestDatabase(s.T())
	db := s.testDB.DB

	categoryRepo := repository.NewCategoryRepository(db)
	genreRepo := repository.NewGenreRepository(db)
	s.titleService = service.NewTitleService(repository.NewTitleRepository(db), categoryRepo, genreRepo)
	s.catalogService = service.NewCatalogService(categoryRepo, genreRepo)
	s.ctx = context.Background()
	s.latest = repository.ListOptions{Limit: 50}
}

func (s *TitleServiceIntegrationTestSuite) TearDownSuite() {
	s.testDB.Teardown(s.T())
}

func (s *TitleServiceIntegrationTestSuite) SetupTest() {
	db := s.testDB.DB
	testutil.CleanDatabase(s.T(), db)

	s.books = testutil.CreateCategory(s.T(), db, "Books", "books")
	s.films = testutil.CreateCategory(s.T(), db, "Films", "films")
	s.scifi = testutil.CreateGenre(s.T(), db, "Science fiction", "sci-fi")
	s.drama = testutil.CreateGenre(s.T(), db, "Drama", "drama")
}

func (s *TitleServiceIntegrationTestSuite) validation(err error) map[string][]string {
	var ve *service.ValidationError
	require.True(s.T(), errors.As(err, &ve), "expected a validation error, got %v", err)
	return ve.Fields
}

func (s *TitleServiceIntegrationTestSuite) TestCreateTitleResolvesSlugs() {
	title, err := s.titleService.Create(s.ctx, service.TitleInput{
		Name:     strPtr("Dune"),
		Year:     intPtr(1965),
		Category: strPtr("books"),
		Genre:    []string{"sci-fi", "drama", "sci-fi"},
		GenreSet: true,
	})
	require.NoError(s.T(), err)

	require.NotNil(s.T(), title.Category)
	assert.Equal(s.T(), "books", title.Category.Slug)
	require.Len(s.T(), title.Genres, 2)
	assert.Equal(s.T(), "drama", title.Genres[0].Slug)
	assert.Equal(s.T(), "sci-fi", title.Genres[1].Slug)
	assert.Nil(s.T(), title.Rating)

	var genreCount int64
	s.testDB.DB.Model(&models.Genre{}).Count(&genreCount)
	assert.Equal(s.T(), int64(2), genreCount, "linking must not create genres")
}

func (s *TitleServiceIntegrationTestSuite) TestCreateTitleValidation() {
	_, err := s.titleService.Create(s.ctx, service.TitleInput{})
	fields := s.validation(err)
	assert.Contains(s.T(), fields, "name")
	assert.Contains(s.T(), fields, "year")
	assert.Contains(s.T(), fields, "genre")

	_, err = s.titleService.Create(s.ctx, service.TitleInput{
		Name:     strPtr("Future"),
		Year:     intPtr(9999),
		Genre:    []string{"drama"},
		GenreSet: true,
	})
	assert.Contains(s.T(), s.validation(err), "year")
}

func (s *TitleServiceIntegrationTestSuite) TestCreateTitleUnknownSlugs() {
	_, err := s.titleService.Create(s.ctx, service.TitleInput{
		Name:     strPtr("Dune"),
		Year:     intPtr(1965),
		Category: strPtr("comics"),
		Genre:    []string{"sci-fi", "horror"},
		GenreSet: true,
	})
	fields := s.validation(err)
	assert.Equal(s.T(), []string{`object with slug="comics" does not exist`}, fields["category"])
	assert.Equal(s.T(), []string{`object with slug="horror" does not exist`}, fields["genre"])

	var count int64
	s.testDB.DB.Model(&models.Title{}).Count(&count)
	assert.Zero(s.T(), count)
}

func (s *TitleServiceIntegrationTestSuite) TestUpdateTitle() {
	title := testutil.CreateTitle(s.T(), s.testDB.DB, "Dune", 1965, s.books, s.scifi)

	updated, err := s.titleService.Update(s.ctx, title.ID, service.TitleInput{
		Year:     intPtr(1984),
		Category: strPtr("films"),
		Genre:    []string{"drama"},
		GenreSet: true,
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Dune", updated.Name)
	assert.Equal(s.T(), 1984, updated.Year)
	assert.Equal(s.T(), "films", updated.Category.Slug)
	require.Len(s.T(), updated.Genres, 1)
	assert.Equal(s.T(), "drama", updated.Genres[0].Slug)

	updated, err = s.titleService.Update(s.ctx, title.ID, service.TitleInput{Category: strPtr("")})
	require.NoError(s.T(), err)
	assert.Nil(s.T(), updated.Category)
	assert.Len(s.T(), updated.Genres, 1, "genres untouched when absent")

	_, err = s.titleService.Update(s.ctx, title.ID, service.TitleInput{GenreSet: true})
	assert.Contains(s.T(), s.validation(err), "genre")

	_, err = s.titleService.Update(s.ctx, title.ID+100, service.TitleInput{})
	assert.ErrorIs(s.T(), err, service.ErrTitleNotFound)
}

func (s *TitleServiceIntegrationTestSuite) TestListFilters() {
	db := s.testDB.DB
	testutil.CreateTitle(s.T(), db, "Dune", 1965, s.books, s.scifi)
	testutil.CreateTitle(s.T(), db, "Dune", 1984, s.films, s.scifi, s.drama)
	testutil.CreateTitle(s.T(), db, "Solaris", 1972, s.films, s.drama)
	testutil.CreateTitle(s.T(), db, "100%_real", 2001, nil)

	year := 1984
	cases := []struct {
		name   string
		filter repository.TitleFilter
		want   int64
	}{
		{"all", repository.TitleFilter{}, 4},
		{"category", repository.TitleFilter{Category: "films"}, 2},
		{"genre", repository.TitleFilter{Genre: "drama"}, 2},
		{"name contains, case-insensitive", repository.TitleFilter{Name: "uN"}, 2},
		{"year", repository.TitleFilter{Year: &year}, 1},
		{"combined", repository.TitleFilter{Category: "films", Genre: "sci-fi"}, 1},
		{"unknown category", repository.TitleFilter{Category: "comics"}, 0},
		{"wildcards are literal", repository.TitleFilter{Name: "%_"}, 1},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			titles, total, err := s.titleService.List(s.ctx, tc.filter, s.latest)
			require.NoError(s.T(), err)
			assert.Equal(s.T(), tc.want, total)
			assert.Len(s.T(), titles, int(tc.want))
		})
	}
}

func (s *TitleServiceIntegrationTestSuite) TestListPaginates() {
	for i := 0; i < 5; i++ {
		testutil.CreateTitle(s.T(), s.testDB.DB, "Title", 2000+i, nil)
	}

	titles, total, err := s.titleService.List(s.ctx, repository.TitleFilter{}, repository.ListOptions{Offset: 4, Limit: 2})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(5), total)
	assert.Len(s.T(), titles, 1)
}

func (s *TitleServiceIntegrationTestSuite) TestDeleteTitleCascades() {
	db := s.testDB.DB
	user := testutil.CreateTestUser(s.T(), db, "reader", models.RoleUser)
	title := testutil.CreateTitle(s.T(), db, "Dune", 1965, s.books, s.scifi)
	review := testutil.CreateReview(s.T(), db, user, title, 7)
	testutil.CreateComment(s.T(), db, user, review, "me too")

	require.NoError(s.T(), s.titleService.Delete(s.ctx, title.ID))

	var reviews, comments, links int64
	db.Model(&models.Review{}).Count(&reviews)
	db.Model(&models.Comment{}).Count(&comments)
	db.Table("title_genres").Count(&links)
	assert.Zero(s.T(), reviews)
	assert.Zero(s.T(), comments)
	assert.Zero(s.T(), links)

	assert.ErrorIs(s.T(), s.titleService.Delete(s.ctx, title.ID), service.ErrTitleNotFound)
}

func (s *TitleServiceIntegrationTestSuite) TestDeleteCategoryKeepsTitles() {
	title := testutil.CreateTitle(s.T(), s.testDB.DB, "Dune", 1965, s.books, s.scifi)

	require.NoError(s.T(), s.catalogService.DeleteCategory(s.ctx, "books"))

	got, err := s.titleService.Get(s.ctx, title.ID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), got.Category)
	assert.Nil(s.T(), got.CategoryID)

	assert.ErrorIs(s.T(), s.catalogService.DeleteCategory(s.ctx, "books"), service.ErrCategoryNotFound)
}

func (s *TitleServiceIntegrationTestSuite) TestDeleteGenreUnlinksTitles() {
	title := testutil.CreateTitle(s.T(), s.testDB.DB, "Dune", 1965, nil, s.scifi, s.drama)

	require.NoError(s.T(), s.catalogService.DeleteGenre(s.ctx, "sci-fi"))

	got, err := s.titleService.Get(s.ctx, title.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), got.Genres, 1)
	assert.Equal(s.T(), "drama", got.Genres[0].Slug)
}

func (s *TitleServiceIntegrationTestSuite) TestCatalogSlugConflicts() {
	_, err := s.catalogService.CreateCategory(s.ctx, "Other books", "books")
	assert.Equal(s.T(), []string{"category with this slug already exists"}, s.validation(err)["slug"])

	_, err = s.catalogService.CreateGenre(s.ctx, "Drama again", "drama")
	assert.Equal(s.T(), []string{"genre with this slug already exists"}, s.validation(err)["slug"])

	_, err = s.catalogService.CreateGenre(s.ctx, "Bad", "not a slug!")
	assert.Contains(s.T(), s.validation(err), "slug")
}

func (s *TitleServiceIntegrationTestSuite) TestConcurrentSlugConflict() {
	testutil.CompeteBeforeCreate(s.T(), s.testDB.DB, "categories",
		"INSERT INTO categories (name, slug) VALUES (?, ?)", "Music", "music")

	_, err := s.catalogService.CreateCategory(s.ctx, "Music", "music")
	assert.Equal(s.T(), []string{"category with this slug already exists"}, s.validation(err)["slug"])

	testutil.CompeteBeforeCreate(s.T(), s.testDB.DB, "genres",
		"INSERT INTO genres (name, slug) VALUES (?, ?)", "Horror", "horror")

	_, err = s.catalogService.CreateGenre(s.ctx, "Horror", "horror")
	assert.Equal(s.T(), []string{"genre with this slug already exists"}, s.validation(err)["slug"])

	var count int64
	s.testDB.DB.Model(&models.Category{}).Where("slug = ?", "music").Count(&count)
	assert.Equal(s.T(), int64(1), count)
}

func (s *TitleServiceIntegrationTestSuite) TestCatalogSearch() {
	testutil.CreateCategory(s.T(), s.testDB.DB, "Music", "music")

	categories, total, err := s.catalogService.ListCategories(s.ctx, "MUS", s.latest)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), total)
	assert.Equal(s.T(), "music", categories[0].Slug)

	genres, total, err := s.catalogService.ListGenres(s.ctx, "", s.latest)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), total)
	assert.Equal(s.T(), "Drama", genres[0].Name)
}

func TestTitleServiceIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(TitleServiceIntegrationTestSuite))
}
