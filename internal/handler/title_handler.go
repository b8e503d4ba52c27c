package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yamdb/yamdb-api/internal/dto"
	"github.com/yamdb/yamdb-api/internal/repository"
	"github.com/yamdb/yamdb-api/internal/service"
)

type TitleHandler struct {
	titleService *service.TitleService
	pageSize     int
}

func NewTitleHandler(titleService *service.TitleService, pageSize int) *TitleHandler {
	return &TitleHandler{titleService: titleService, pageSize: pageSize}
}

// List filters by category slug, genre slug, name substring and year.
// GET /titles?category=&genre=&name=&year=
func (h *TitleHandler) List(c *gin.Context) {
	filter := repository.TitleFilter{
		Category: c.Query("category"),
		Genre:    c.Query("genre"),
		Name:     c.Query("name"),
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			respondFields(c, map[string][]string{"year": {"enter a whole number"}})
			return
		}
		filter.Year = &year
	}

	p := pagination(c, h.pageSize)
	titles, total, err := h.titleService.List(c.Request.Context(), filter, p.Options())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPage(dto.MapSlice(titles, dto.FromTitle), total, p))
}

// POST /titles
func (h *TitleHandler) Create(c *gin.Context) {
	var req dto.TitleRequest
	if !bindJSON(c, &req) {
		return
	}
	title, err := h.titleService.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromTitle(title))
}

// GET /titles/:title_id
func (h *TitleHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "title_id")
	if !ok {
		return
	}
	title, err := h.titleService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTitle(title))
}

// PATCH /titles/:title_id
func (h *TitleHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "title_id")
	if !ok {
		return
	}
	var req dto.TitleRequest
	if !bindJSON(c, &req) {
		return
	}
	title, err := h.titleService.Update(c.Request.Context(), id, req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTitle(title))
}

// DELETE /titles/:title_id
func (h *TitleHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "title_id")
	if !ok {
		return
	}
	if err := h.titleService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
