package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/dinein/internal/audit/domain"
)

// ListOrderAuditLogs returns the manager-facing trail for one order.
func (s *Server) ListOrderAuditLogs(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	logs, err := s.auditSvc.ListForTarget(c.Request.Context(), auditdomain.TargetOrder, orderID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}
