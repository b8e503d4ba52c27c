package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yamdb/yamdb-api/internal/dto"
	"github.com/yamdb/yamdb-api/internal/middleware"
	"github.com/yamdb/yamdb-api/internal/service"
)

type ReviewHandler struct {
	reviewService  *service.ReviewService
	commentService *service.CommentService
	pageSize       int
}

func NewReviewHandler(reviewService *service.ReviewService, commentService *service.CommentService, pageSize int) *ReviewHandler {
	return &ReviewHandler{
		reviewService:  reviewService,
		commentService: commentService,
		pageSize:       pageSize,
	}
}

// GET /titles/:title_id/reviews
func (h *ReviewHandler) ListReviews(c *gin.Context) {
	titleID, ok := pathID(c, "title_id")
	if !ok {
		return
	}
	p := pagination(c, h.pageSize)
	reviews, total, err := h.reviewService.List(c.Request.Context(), titleID, p.Options())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPage(dto.MapSlice(reviews, dto.FromReview), total, p))
}

// POST /titles/:title_id/reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	titleID, ok := pathID(c, "title_id")
	if !ok {
		return
	}
	var req dto.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.reviewService.Create(c.Request.Context(), middleware.CurrentUser(c), titleID, req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromReview(review))
}

// GET /titles/:title_id/reviews/:review_id
func (h *ReviewHandler) GetReview(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	review, err := h.reviewService.Get(c.Request.Context(), titleID, reviewID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromReview(review))
}

// PATCH /titles/:title_id/reviews/:review_id
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	var req dto.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.reviewService.Update(c.Request.Context(), middleware.CurrentUser(c), titleID, reviewID, req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromReview(review))
}

// DELETE /titles/:title_id/reviews/:review_id
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	if err := h.reviewService.Delete(c.Request.Context(), middleware.CurrentUser(c), titleID, reviewID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /titles/:title_id/reviews/:review_id/comments
func (h *ReviewHandler) ListComments(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	p := pagination(c, h.pageSize)
	comments, total, err := h.commentService.List(c.Request.Context(), titleID, reviewID, p.Options())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPage(dto.MapSlice(comments, dto.FromComment), total, p))
}

// POST /titles/:title_id/reviews/:review_id/comments
func (h *ReviewHandler) CreateComment(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	var req dto.CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.commentService.Create(c.Request.Context(), middleware.CurrentUser(c), titleID, reviewID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromComment(comment))
}

// GET /titles/:title_id/reviews/:review_id/comments/:comment_id
func (h *ReviewHandler) GetComment(c *gin.Context) {
	titleID, reviewID, commentID, ok := commentPath(c)
	if !ok {
		return
	}
	comment, err := h.commentService.Get(c.Request.Context(), titleID, reviewID, commentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromComment(comment))
}

// PATCH /titles/:title_id/reviews/:review_id/comments/:comment_id
func (h *ReviewHandler) UpdateComment(c *gin.Context) {
	titleID, reviewID, commentID, ok := commentPath(c)
	if !ok {
		return
	}
	var req dto.CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.commentService.Update(c.Request.Context(), middleware.CurrentUser(c), titleID, reviewID, commentID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromComment(comment))
}

// DELETE /titles/:title_id/reviews/:review_id/comments/:comment_id
func (h *ReviewHandler) DeleteComment(c *gin.Context) {
	titleID, reviewID, commentID, ok := commentPath(c)
	if !ok {
		return
	}
	if err := h.commentService.Delete(c.Request.Context(), middleware.CurrentUser(c), titleID, reviewID, commentID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func reviewPath(c *gin.Context) (titleID, reviewID int64, ok bool) {
	if titleID, ok = pathID(c, "title_id"); !ok {
		return
	}
	reviewID, ok = pathID(c, "review_id")
	return
}

func commentPath(c *gin.Context) (titleID, reviewID, commentID int64, ok bool) {
	if titleID, reviewID, ok = reviewPath(c); !ok {
		return
	}
	commentID, ok = pathID(c, "comment_id")
	return
}
