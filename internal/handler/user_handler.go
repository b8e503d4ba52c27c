package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yamdb/yamdb-api/internal/dto"
	"github.com/yamdb/yamdb-api/internal/middleware"
	"github.com/yamdb/yamdb-api/internal/service"
)

type UserHandler struct {
	userService *service.UserService
	pageSize    int
}

func NewUserHandler(userService *service.UserService, pageSize int) *UserHandler {
	return &UserHandler{userService: userService, pageSize: pageSize}
}

// GET /users/me
func (h *UserHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, dto.FromUser(middleware.CurrentUser(c)))
}

// PATCH /users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req dto.UserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateMe(c.Request.Context(), middleware.CurrentUser(c), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromUser(user))
}

// GET /users?search=
func (h *UserHandler) List(c *gin.Context) {
	p := pagination(c, h.pageSize)
	users, total, err := h.userService.List(c.Request.Context(), c.Query("search"), p.Options())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPage(dto.MapSlice(users, dto.FromUser), total, p))
}

// POST /users
func (h *UserHandler) Create(c *gin.Context) {
	var req dto.UserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Create(c.Request.Context(), middleware.CurrentUser(c), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromUser(user))
}

// GET /users/:username
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.userService.Get(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromUser(user))
}

// PATCH /users/:username
func (h *UserHandler) Update(c *gin.Context) {
	var req dto.UserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("username"), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromUser(user))
}

// DELETE /users/:username
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.userService.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("username")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
