package dto

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yamdb/yamdb-api/internal/models"
)

func TestPagination_Normalize(t *testing.T) {
	testCases := []struct {
		name string
		in   Pagination
		want Pagination
	}{
		{"defaults", Pagination{}, Pagination{Page: 1, PageSize: 10}},
		{"negative page", Pagination{Page: -3, PageSize: 5}, Pagination{Page: 1, PageSize: 5}},
		{"oversized page", Pagination{Page: 2, PageSize: 1000}, Pagination{Page: 2, PageSize: MaxPageSize}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Normalize(10))
		})
	}
}

func TestPagination_HugePageStaysPastTheEnd(t *testing.T) {
	p := Pagination{Page: math.MaxInt64 / 10, PageSize: 50}.Normalize(10)

	assert.Equal(t, MaxPage, p.Page)
	opts := p.Options()
	assert.Greater(t, opts.Offset, 0)
	assert.Equal(t, (MaxPage-1)*50, opts.Offset)
}

func TestPagination_Options(t *testing.T) {
	opts := Pagination{Page: 3, PageSize: 20}.Options()
	assert.Equal(t, 40, opts.Offset)
	assert.Equal(t, 20, opts.Limit)
}

func TestNewPage(t *testing.T) {
	page := NewPage([]int{1, 2, 3}, 23, Pagination{Page: 1, PageSize: 10})
	assert.Equal(t, int64(23), page.Count)
	assert.Equal(t, 3, page.TotalPages)

	empty := NewPage[int](nil, 0, Pagination{Page: 1, PageSize: 10})
	assert.NotNil(t, empty.Results)
	assert.Equal(t, 0, empty.TotalPages)

	data, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":0,"page":1,"page_size":10,"total_pages":0,"results":[]}`, string(data))
}

func TestFromTitle_ReadShape(t *testing.T) {
	rating := 8.0
	title := &models.Title{
		ID:       7,
		Name:     "Solaris",
		Year:     1972,
		Category: &models.Category{ID: 1, Name: "Movies", Slug: "movies"},
		Genres:   []models.Genre{{ID: 2, Name: "Drama", Slug: "drama"}},
		Rating:   &rating,
	}

	data, err := json.Marshal(FromTitle(title))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 7,
		"name": "Solaris",
		"year": 1972,
		"rating": 8,
		"description": null,
		"genre": [{"name": "Drama", "slug": "drama"}],
		"category": {"name": "Movies", "slug": "movies"}
	}`, string(data))

	unrated := FromTitle(&models.Title{ID: 8, Name: "Stalker", Year: 1979})
	data, err = json.Marshal(unrated)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":8,"name":"Stalker","year":1979,"rating":null,"description":null,"genre":[],"category":null}`, string(data))
}

func TestTitleRequest_ToInput_DistinguishesMissingGenre(t *testing.T) {
	var withGenre, withoutGenre TitleRequest
	require.NoError(t, json.Unmarshal([]byte(`{"genre":["drama"]}`), &withGenre))
	require.NoError(t, json.Unmarshal([]byte(`{"name":"x"}`), &withoutGenre))

	assert.True(t, withGenre.ToInput().GenreSet)
	assert.Equal(t, []string{"drama"}, withGenre.ToInput().Genre)
	assert.False(t, withoutGenre.ToInput().GenreSet)
}

func TestFromReview_UsesAuthorUsername(t *testing.T) {
	review := &models.Review{ID: 1, Text: "great", Score: 9, Author: models.User{Username: "alice"}}
	assert.Equal(t, "alice", FromReview(review).Author)
}
