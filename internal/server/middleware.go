package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/dinein/internal/observability/context"
	obsmiddleware "github.com/smallbiznis/dinein/internal/observability/logger"
)

// ActorRequired rejects requests that do not name the staff member acting.
// The X-Actor-Id header is trusted as sent; the logging middleware has
// already copied it into the request context.
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actorFromRequest(c) == "" {
			AbortWithError(c, newValidationError("actor", "actor_required", "X-Actor-Id header is required"))
			return
		}
		c.Next()
	}
}

func actorFromRequest(c *gin.Context) string {
	if actor := obscontext.ActorFromContext(c.Request.Context()); actor != "" {
		return actor
	}
	return strings.TrimSpace(c.GetHeader(obsmiddleware.HeaderActorID))
}
