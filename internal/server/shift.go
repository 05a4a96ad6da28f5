package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	scheduledomain "github.com/smallbiznis/dinein/internal/schedule/domain"
)

func (s *Server) AssignShift(c *gin.Context) {
	var req scheduledomain.AssignShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.AssignedBy = actorFromRequest(c)

	shift, err := s.scheduleSvc.AssignShift(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": shift})
}

func (s *Server) CancelShift(c *gin.Context) {
	shiftID, ok := pathID(c, "id")
	if !ok {
		return
	}

	shift, err := s.scheduleSvc.CancelShift(c.Request.Context(), shiftID, actorFromRequest(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": shift})
}

type listShiftsQuery struct {
	EmployeeID string `form:"employee_id"`
	Date       string `form:"date"`
}

func (s *Server) ListShifts(c *gin.Context) {
	var query listShiftsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	employeeID, err := parseOptionalSnowflakeID(query.EmployeeID)
	if err != nil || employeeID == nil {
		AbortWithError(c, newValidationError("employee_id", "invalid_employee_id", "invalid employee_id"))
		return
	}

	shifts, err := s.scheduleSvc.ListShifts(c.Request.Context(), *employeeID, strings.TrimSpace(query.Date))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": shifts})
}
