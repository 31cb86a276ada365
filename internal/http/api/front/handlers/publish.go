package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mdbin/mdbin/internal/publish"
	"github.com/mdbin/mdbin/internal/quota"
	log "github.com/sirupsen/logrus"
)

// PublishHandler handles publish requests.
type PublishHandler struct {
	publisher *publish.Publisher
}

// NewPublishHandler constructs a PublishHandler.
func NewPublishHandler(publisher *publish.Publisher) *PublishHandler {
	return &PublishHandler{publisher: publisher}
}

type publishRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Publish accepts a markdown document and returns its shareable location.
func (h *PublishHandler) Publish(c *gin.Context) {
	var req publishRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	result, errPublish := h.publisher.Publish(c.Request.Context(), callerIdentity(c), req.Title, req.Content)
	if errPublish != nil {
		h.writePublishError(c, errPublish)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":    result.DocumentID,
		"url":   "/api/documents/" + result.DocumentID,
		"quota": result.Quota,
	})
}

// writePublishError maps saga failures onto HTTP statuses.
func (h *PublishHandler) writePublishError(c *gin.Context, errPublish error) {
	var insufficient *quota.InsufficientQuotaError
	var blocked *publish.ContentBlockedError

	switch {
	case errors.Is(errPublish, publish.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": errPublish.Error()})
	case errors.As(errPublish, &insufficient):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": errPublish.Error(),
			"quota": insufficient.Quota,
		})
	case errors.Is(errPublish, publish.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": errPublish.Error()})
	case errors.As(errPublish, &blocked):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "content blocked",
			"reason": blocked.Reason,
		})
	default:
		log.WithError(errPublish).Error("publish handler error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "publish failed"})
	}
}
