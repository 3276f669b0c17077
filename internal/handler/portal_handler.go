package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"customer-portal/internal/model"
	"customer-portal/internal/service/portal"
	"customer-portal/pkg/logger"
)

type PortalService interface {
	Dashboard(ctx context.Context, customerID string) (*portal.Dashboard, error)
	Milestones(ctx context.Context, customerID string) ([]model.Milestone, error)
	Documents(ctx context.Context, customerID string) ([]model.Document, error)
	Monitoring(ctx context.Context, customerID string) ([]model.MonitoringMonthly, error)
	Referrals(ctx context.Context, customerID string) (*portal.ReferralOverview, error)
	Notifications(ctx context.Context, customerID string) ([]model.Notification, error)
	SubmitNps(ctx context.Context, customerID string, score int, comment *string) (*model.NpsResponse, error)
	MarkNotificationRead(ctx context.Context, customerID, notificationID string) error
}

type PortalHandler struct {
	portal PortalService
	logger *zap.Logger
}

func NewPortalHandler(portal PortalService, logger *zap.Logger) *PortalHandler {
	return &PortalHandler{portal: portal, logger: logger}
}

// Dashboard handles GET /api/portal/dashboard
func (h *PortalHandler) Dashboard(c *gin.Context) {
	serve(c, h, func(ctx context.Context, id string) (any, error) {
		return h.portal.Dashboard(ctx, id)
	})
}

// Milestones handles GET /api/portal/milestones
func (h *PortalHandler) Milestones(c *gin.Context) {
	serve(c, h, func(ctx context.Context, id string) (any, error) {
		ms, err := h.portal.Milestones(ctx, id)
		return gin.H{
			"milestones":       ms,
			"active_milestone": model.ActiveMilestone(ms),
			"progress_percent": model.ProgressPercent(ms),
		}, err
	})
}

// Documents handles GET /api/portal/documents
func (h *PortalHandler) Documents(c *gin.Context) {
	serve(c, h, func(ctx context.Context, id string) (any, error) {
		docs, err := h.portal.Documents(ctx, id)
		return gin.H{"documents": docs}, err
	})
}

// Monitoring handles GET /api/portal/monitoring
func (h *PortalHandler) Monitoring(c *gin.Context) {
	serve(c, h, func(ctx context.Context, id string) (any, error) {
		rows, err := h.portal.Monitoring(ctx, id)
		return gin.H{"monitoring": rows}, err
	})
}

// Referrals handles GET /api/portal/referrals
func (h *PortalHandler) Referrals(c *gin.Context) {
	serve(c, h, func(ctx context.Context, id string) (any, error) {
		return h.portal.Referrals(ctx, id)
	})
}

// Notifications handles GET /api/portal/notifications
func (h *PortalHandler) Notifications(c *gin.Context) {
	serve(c, h, func(ctx context.Context, id string) (any, error) {
		n, err := h.portal.Notifications(ctx, id)
		return gin.H{"notifications": n}, err
	})
}

// MarkNotificationRead handles POST /api/portal/notifications/:id/read
func (h *PortalHandler) MarkNotificationRead(c *gin.Context) {
	serve(c, h, func(ctx context.Context, id string) (any, error) {
		err := h.portal.MarkNotificationRead(ctx, id, c.Param("id"))
		return gin.H{"status": "read"}, err
	})
}

// SubmitNps handles POST /api/portal/nps {score, comment?}
func (h *PortalHandler) SubmitNps(c *gin.Context) {
	var req struct {
		Score   *int    `json:"score" binding:"required"`
		Comment *string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "score required"})
		return
	}

	serve(c, h, func(ctx context.Context, id string) (any, error) {
		return h.portal.SubmitNps(ctx, id, *req.Score, req.Comment)
	})
}

// serve runs fn for the session's customer and maps service errors.
func serve(c *gin.Context, h *PortalHandler, fn func(ctx context.Context, customerID string) (any, error)) {
	id, ok := customerID(c)
	if !ok {
		return
	}

	body, err := fn(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, body)
	case errors.Is(err, portal.ErrNoProject):
		c.JSON(http.StatusNotFound, gin.H{"error": "no project found"})
	case errors.Is(err, portal.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, portal.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.WithTrace(c.Request.Context(), h.logger).Error("Portal request failed",
			zap.String("customer_id", id),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load portal data"})
	}
}
