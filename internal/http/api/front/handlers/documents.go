package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mdbin/mdbin/internal/docstore"
	"github.com/mdbin/mdbin/internal/quota"
	log "github.com/sirupsen/logrus"
)

// DocumentHandler serves stored documents.
type DocumentHandler struct {
	docs  *docstore.Store
	quota *quota.Service
}

// NewDocumentHandler constructs a DocumentHandler.
func NewDocumentHandler(docs *docstore.Store, quotaSvc *quota.Service) *DocumentHandler {
	return &DocumentHandler{docs: docs, quota: quotaSvc}
}

// Get returns a document by id and logs the view. The view log is advisory
// and never blocks the response.
func (h *DocumentHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document id is required"})
		return
	}

	doc, errGet := h.docs.Get(c.Request.Context(), id)
	if errGet != nil {
		log.WithError(errGet).Errorf("document lookup failed (id=%s)", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "document lookup failed"})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}

	if h.quota != nil {
		h.quota.RecordView(c.Request.Context(), callerIdentity(c), doc.ID)
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         doc.ID,
		"title":      doc.Title,
		"content":    doc.Content,
		"created_at": doc.CreatedAt,
	})
}
