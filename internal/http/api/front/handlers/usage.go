package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mdbin/mdbin/internal/quota"
	"github.com/mdbin/mdbin/internal/util"
	log "github.com/sirupsen/logrus"
)

// UsageHandler serves per-identity usage statistics.
type UsageHandler struct {
	quota *quota.Service
}

// NewUsageHandler constructs a UsageHandler.
func NewUsageHandler(quotaSvc *quota.Service) *UsageHandler {
	return &UsageHandler{quota: quotaSvc}
}

// Stats returns today's usage for the calling identity. The identity in the
// response is partially redacted.
func (h *UsageHandler) Stats(c *gin.Context) {
	caller := callerIdentity(c)

	stats, errStats := h.quota.UsageStats(c.Request.Context(), caller)
	if errStats != nil {
		log.WithError(errStats).Error("usage stats query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "usage stats unavailable"})
		return
	}

	stats.Quota.Identity = util.MaskIdentity(stats.Quota.Identity)
	c.JSON(http.StatusOK, stats)
}
