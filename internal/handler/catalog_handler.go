package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yamdb/yamdb-api/internal/dto"
	"github.com/yamdb/yamdb-api/internal/service"
)

type CatalogHandler struct {
	catalogService *service.CatalogService
	pageSize       int
}

func NewCatalogHandler(catalogService *service.CatalogService, pageSize int) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, pageSize: pageSize}
}

// GET /categories?search=
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	p := pagination(c, h.pageSize)
	categories, total, err := h.catalogService.ListCategories(c.Request.Context(), c.Query("search"), p.Options())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPage(dto.MapSlice(categories, dto.FromCategory), total, p))
}

// POST /categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req dto.TaxonRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.catalogService.CreateCategory(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromCategory(category))
}

// DELETE /categories/:slug
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	if err := h.catalogService.DeleteCategory(c.Request.Context(), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /genres?search=
func (h *CatalogHandler) ListGenres(c *gin.Context) {
	p := pagination(c, h.pageSize)
	genres, total, err := h.catalogService.ListGenres(c.Request.Context(), c.Query("search"), p.Options())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPage(dto.MapSlice(genres, dto.FromGenre), total, p))
}

// POST /genres
func (h *CatalogHandler) CreateGenre(c *gin.Context) {
	var req dto.TaxonRequest
	if !bindJSON(c, &req) {
		return
	}
	genre, err := h.catalogService.CreateGenre(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromGenre(genre))
}

// DELETE /genres/:slug
func (h *CatalogHandler) DeleteGenre(c *gin.Context) {
	if err := h.catalogService.DeleteGenre(c.Request.Context(), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
