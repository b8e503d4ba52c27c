package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yamdb/yamdb-api/internal/dto"
	"github.com/yamdb/yamdb-api/internal/service"
	"github.com/yamdb/yamdb-api/pkg/logger"
	"go.uber.org/zap"
)

// respondError maps a service error onto the HTTP response.
func respondError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		respondFields(c, ve.Fields)
	case errors.Is(err, service.ErrInvalidConfirmationCode):
		respondFields(c, map[string][]string{"confirmation_code": {err.Error()}})
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrGenreNotFound),
		errors.Is(err, service.ErrTitleNotFound),
		errors.Is(err, service.ErrReviewNotFound),
		errors.Is(err, service.ErrCommentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrCodeDelivery):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": service.ErrCodeDelivery.Error()})
	default:
		logger.Log.Error("Unhandled request error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func respondFields(c *gin.Context, fields map[string][]string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  "validation failed",
		"fields": fields,
	})
}

// bindJSON decodes the body into req, answering 400 itself on failure.
// A value of the wrong JSON type is reported against its field.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.Log.Warn("Request parsing failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			respondFields(c, map[string][]string{typeErr.Field: {typeMismatchMessage(typeErr.Type)}})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

func typeMismatchMessage(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "invalid value"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "a valid integer is required"
	case reflect.String:
		return "not a valid string"
	case reflect.Slice:
		return "expected a list of items"
	}
	return "invalid value"
}

// pathID parses a numeric path parameter; a malformed id cannot match any row.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context, defaultSize int) dto.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	return dto.Pagination{Page: page, PageSize: size}.Normalize(defaultSize)
}
