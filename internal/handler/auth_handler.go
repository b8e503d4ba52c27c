package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yamdb/yamdb-api/internal/dto"
	"github.com/yamdb/yamdb-api/internal/service"
	"github.com/yamdb/yamdb-api/pkg/logger"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Signup issues a confirmation code, creating the account on first use.
// POST /auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	logger.Log.Info("Signup attempt",
		zap.String("username", req.Username),
		zap.String("email", req.Email),
		zap.String("ip", c.ClientIP()),
	)

	if _, err := h.authService.Signup(c.Request.Context(), req.Email, req.Username); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// Token exchanges a confirmation code for an access token.
// POST /auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.authService.Token(c.Request.Context(), req.Username, req.ConfirmationCode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TokenResponse{Token: token})
}
