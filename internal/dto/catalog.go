package dto

import (
	"time"

	"github.com/yamdb/yamdb-api/internal/models"
	"github.com/yamdb/yamdb-api/internal/service"
)

// TaxonRequest creates a category or genre.
type TaxonRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// TaxonResponse is the wire shape of a category or genre.
type TaxonResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func FromCategory(c *models.Category) TaxonResponse {
	return TaxonResponse{Name: c.Name, Slug: c.Slug}
}

func FromGenre(g *models.Genre) TaxonResponse {
	return TaxonResponse{Name: g.Name, Slug: g.Slug}
}

// TitleRequest references its category and genres by slug.
type TitleRequest struct {
	Name        *string   `json:"name"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Genre       *[]string `json:"genre"`
}

func (r TitleRequest) ToInput() service.TitleInput {
	in := service.TitleInput{
		Name:        r.Name,
		Year:        r.Year,
		Description: r.Description,
		Category:    r.Category,
	}
	if r.Genre != nil {
		in.Genre = *r.Genre
		in.GenreSet = true
	}
	return in
}

type TitleResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Year        int             `json:"year"`
	Rating      *float64        `json:"rating"`
	Description *string         `json:"description"`
	Genre       []TaxonResponse `json:"genre"`
	Category    *TaxonResponse  `json:"category"`
}

func FromTitle(t *models.Title) TitleResponse {
	resp := TitleResponse{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Rating:      t.Rating,
		Description: t.Description,
		Genre:       MapSlice(t.Genres, FromGenre),
	}
	if t.Category != nil {
		c := FromCategory(t.Category)
		resp.Category = &c
	}
	return resp
}

type ReviewRequest struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

func (r ReviewRequest) ToInput() service.ReviewInput {
	return service.ReviewInput{Text: r.Text, Score: r.Score}
}

type ReviewResponse struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Score   int       `json:"score"`
	PubDate time.Time `json:"pub_date"`
}

func FromReview(r *models.Review) ReviewResponse {
	return ReviewResponse{
		ID:      r.ID,
		Text:    r.Text,
		Author:  r.Author.Username,
		Score:   r.Score,
		PubDate: r.PubDate,
	}
}

type CommentRequest struct {
	Text *string `json:"text"`
}

type CommentResponse struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	PubDate time.Time `json:"pub_date"`
}

func FromComment(c *models.Comment) CommentResponse {
	return CommentResponse{
		ID:      c.ID,
		Text:    c.Text,
		Author:  c.Author.Username,
		PubDate: c.PubDate,
	}
}
