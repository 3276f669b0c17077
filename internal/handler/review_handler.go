package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"customer-portal/internal/repository"
	"customer-portal/internal/service/review"
)

type ReviewFetcher interface {
	Fetch(ctx context.Context, q review.Query) *review.Result
}

type ReviewModerator interface {
	SetVisibility(ctx context.Context, id string, visible bool) error
}

type ReviewHandler struct {
	reviews   ReviewFetcher
	moderator ReviewModerator
	logger    *zap.Logger
}

func NewReviewHandler(reviews ReviewFetcher, moderator ReviewModerator, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, moderator: moderator, logger: logger}
}

// List handles GET /api/reviews?minStars=&limit=&sync=
func (h *ReviewHandler) List(c *gin.Context) {
	q, err := parseReviewQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.reviews.Fetch(c.Request.Context(), q))
}

func parseReviewQuery(c *gin.Context) (review.Query, error) {
	q := review.Query{
		MinStars: review.DefaultMinStars,
		Limit:    review.DefaultLimit,
	}

	if v := c.Query("minStars"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 5 {
			return q, errors.New("minStars must be an integer between 1 and 5")
		}
		q.MinStars = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > review.MaxLimit {
			return q, errors.New("limit must be an integer between 1 and " + strconv.Itoa(review.MaxLimit))
		}
		q.Limit = n
	}
	switch c.Query("sync") {
	case "1", "true":
		q.Sync = true
	}
	return q, nil
}

// SetVisibility handles PATCH /internal/reviews/:id {is_visible}
func (h *ReviewHandler) SetVisibility(c *gin.Context) {
	var req struct {
		IsVisible *bool `json:"is_visible" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_visible required"})
		return
	}

	id := c.Param("id")
	err := h.moderator.SetVisibility(c.Request.Context(), id, *req.IsVisible)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to update review visibility", zap.String("review_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update review"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "is_visible": *req.IsVisible})
}
