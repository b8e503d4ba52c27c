package testutil

import (
	"testing"
	"time"

	"github.com/yamdb/yamdb-api/internal/models"
	"github.com/yamdb/yamdb-api/internal/utils"
	"gorm.io/gorm"
)

const TestJWTSecret = "test-secret-key"

// CreateTestUser stores a user with the given role; admins also get staff status.
func CreateTestUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		IsStaff:  role == models.RoleAdmin,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user %s: %v", username, err)
	}
	return user
}

// AccessToken issues a bearer token for user signed with TestJWTSecret.
func AccessToken(t *testing.T, user *models.User) string {
	token, err := utils.GenerateToken(user, TestJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return token
}

func CreateCategory(t *testing.T, db *gorm.DB, name, slug string) *models.Category {
	category := &models.Category{Name: name, Slug: slug}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("Failed to create category %s: %v", slug, err)
	}
	return category
}

func CreateGenre(t *testing.T, db *gorm.DB, name, slug string) *models.Genre {
	genre := &models.Genre{Name: name, Slug: slug}
	if err := db.Create(genre).Error; err != nil {
		t.Fatalf("Failed to create genre %s: %v", slug, err)
	}
	return genre
}

// CreateTitle stores a title linked to an optional category and the given genres.
func CreateTitle(t *testing.T, db *gorm.DB, name string, year int, category *models.Category, genres ...*models.Genre) *models.Title {
	title := &models.Title{Name: name, Year: year}
	if category != nil {
		title.CategoryID = &category.ID
	}
	for _, g := range genres {
		title.Genres = append(title.Genres, *g)
	}
	if err := db.Omit("Genres.*").Create(title).Error; err != nil {
		t.Fatalf("Failed to create title %s: %v", name, err)
	}
	return title
}

func CreateReview(t *testing.T, db *gorm.DB, author *models.User, title *models.Title, score int) *models.Review {
	review := &models.Review{
		Text:     "review by " + author.Username,
		Score:    score,
		AuthorID: author.ID,
		TitleID:  title.ID,
		PubDate:  time.Now().UTC(),
	}
	if err := db.Omit("Author", "Title").Create(review).Error; err != nil {
		t.Fatalf("Failed to create review: %v", err)
	}
	return review
}

func CreateComment(t *testing.T, db *gorm.DB, author *models.User, review *models.Review, text string) *models.Comment {
	comment := &models.Comment{
		Text:     text,
		AuthorID: author.ID,
		ReviewID: review.ID,
		PubDate:  time.Now().UTC(),
	}
	if err := db.Omit("Author", "Review").Create(comment).Error; err != nil {
		t.Fatalf("Failed to create comment: %v", err)
	}
	return comment
}
