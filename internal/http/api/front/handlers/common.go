// Package handlers implements the public paste API endpoints.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mdbin/mdbin/internal/identity"
)

// callerIdentity resolves the requesting client's identity from the request.
func callerIdentity(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return identity.Unknown
	}
	return identity.Resolve(c.Request)
}
