// Package front registers the public paste API routes.
package front

import (
	"github.com/gin-gonic/gin"
	"github.com/mdbin/mdbin/internal/docstore"
	"github.com/mdbin/mdbin/internal/http/api/front/handlers"
	"github.com/mdbin/mdbin/internal/publish"
	"github.com/mdbin/mdbin/internal/quota"
)

// RegisterFrontRoutes registers the public endpoints.
func RegisterFrontRoutes(r *gin.Engine, publisher *publish.Publisher, quotaSvc *quota.Service, docs *docstore.Store) {
	if r == nil {
		return
	}

	api := r.Group("/api")

	publishHandler := handlers.NewPublishHandler(publisher)
	api.POST("/publish", publishHandler.Publish)

	documentHandler := handlers.NewDocumentHandler(docs, quotaSvc)
	api.GET("/documents/:id", documentHandler.Get)

	usageHandler := handlers.NewUsageHandler(quotaSvc)
	api.GET("/usage", usageHandler.Stats)

	r.GET("/healthz", handlers.Health)
}
