package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"customer-portal/internal/model"
	"customer-portal/internal/repository"
	"customer-portal/pkg/outbox"
)

type EventReplayer interface {
	ReplayEvent(ctx context.Context, eventID int64) error
	ReplayFailedEvents(ctx context.Context, limit int) (int, error)
}

type MilestoneUpdater interface {
	UpdateStatus(ctx context.Context, milestoneID string, status model.MilestoneStatus, doneDate *time.Time) (*model.MilestoneChange, error)
}

type NotificationLogReader interface {
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]model.NotificationLog, error)
}

// AdminHandler serves the internal back-office endpoints.
type AdminHandler struct {
	replayer   EventReplayer
	milestones MilestoneUpdater
	logs       NotificationLogReader
	logger     *zap.Logger
}

func NewAdminHandler(replayer EventReplayer, milestones MilestoneUpdater, logs NotificationLogReader, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		replayer:   replayer,
		milestones: milestones,
		logs:       logs,
		logger:     logger,
	}
}

// UpdateMilestone handles PATCH /internal/milestones/:id {status, done_date?}
func (h *AdminHandler) UpdateMilestone(c *gin.Context) {
	var req struct {
		Status   model.MilestoneStatus `json:"status" binding:"required"`
		DoneDate string                `json:"done_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of pending, active, done"})
		return
	}

	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "milestone not found"})
		return
	}

	var doneDate *time.Time
	if req.DoneDate != "" {
		d, err := time.Parse(time.DateOnly, req.DoneDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "done_date must be YYYY-MM-DD"})
			return
		}
		doneDate = &d
	}

	change, err := h.milestones.UpdateStatus(c.Request.Context(), id, req.Status, doneDate)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "milestone not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to update milestone", zap.String("milestone_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update milestone"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"milestone":       change.Milestone,
		"previous_status": change.PreviousStatus,
	})
}

// NotificationHistory handles GET /internal/customers/:id/whatsapp?limit=50
func (h *AdminHandler) NotificationHistory(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer id"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}

	logs, err := h.logs.ListByCustomer(c.Request.Context(), id, limit)
	if err != nil {
		h.logger.Error("Failed to load notification log", zap.String("customer_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load notification log"})
		return
	}
	if logs == nil {
		logs = []model.NotificationLog{}
	}

	c.JSON(http.StatusOK, gin.H{"notifications": logs})
}

// ReplayOutboxEvent re-publishes one outbox event.
// POST /internal/outbox/replay?id=xxx
func (h *AdminHandler) ReplayOutboxEvent(c *gin.Context) {
	idStr := c.Query("id")
	if idStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id parameter"})
		return
	}

	eventID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id parameter"})
		return
	}

	if err := h.replayer.ReplayEvent(c.Request.Context(), eventID); err != nil {
		if errors.Is(err, outbox.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		h.logger.Error("Failed to replay event",
			zap.Int64("event_id", eventID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to replay event",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "replayed",
		"event_id": eventID,
	})
}

// ReplayFailedEvents re-publishes failed outbox events.
// POST /internal/outbox/replay-failed?limit=100
func (h *AdminHandler) ReplayFailedEvents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	successCount, err := h.replayer.ReplayFailedEvents(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to replay failed events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to replay failed events",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "completed",
		"success_count": successCount,
		"limit":         limit,
	})
}
