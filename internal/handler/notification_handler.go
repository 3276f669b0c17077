package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"customer-portal/internal/service/notify"
	"customer-portal/pkg/logger"
)

type NotificationSender interface {
	Send(ctx context.Context, req notify.SendRequest) (*notify.SendResult, error)
	SendReminders(ctx context.Context) (*notify.SweepResult, error)
}

type NotificationHandler struct {
	sender NotificationSender
	logger *zap.Logger
}

func NewNotificationHandler(sender NotificationSender, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{sender: sender, logger: logger}
}

// Send handles POST /api/whatsapp/send
func (h *NotificationHandler) Send(c *gin.Context) {
	var req notify.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customerId and trigger required"})
		return
	}

	res, err := h.sender.Send(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "sid": res.SID, "to": res.To})
	case errors.Is(err, notify.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": detail(err, notify.ErrInvalidRequest)})
	case errors.Is(err, notify.ErrCustomerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Customer or phone not found"})
	case errors.Is(err, notify.ErrDeliveryFailed):
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": detail(err, notify.ErrDeliveryFailed)})
	default:
		logger.WithTrace(c.Request.Context(), h.logger).Error("WhatsApp send failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// Reminders handles GET /api/whatsapp/reminders. The sweep is detached from
// the request: a caller that disconnects does not stop it.
func (h *NotificationHandler) Reminders(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)

	// a serial sweep can run past the server's write timeout
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("Write deadline not lifted", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), notify.SweepTimeout)
	defer cancel()

	res, err := h.sender.SendReminders(ctx)
	if err != nil {
		log.Error("Reminder sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reminder sweep failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"sent":    res.Sent,
		"total":   res.Total,
	})
}

// detail strips the sentinel prefix from an error wrapped as "%w: detail".
func detail(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}
