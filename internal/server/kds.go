package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	kdsdomain "github.com/smallbiznis/dinein/internal/kds/domain"
)

func (s *Server) CreateStation(c *gin.Context) {
	var req kdsdomain.CreateStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	station, err := s.kdsSvc.CreateStation(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": station})
}

func (s *Server) AddRoutingRule(c *gin.Context) {
	stationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req kdsdomain.AddRoutingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.StationID = stationID

	rule, err := s.kdsSvc.AddRoutingRule(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": rule})
}

type listStationTicketsQuery struct {
	IncludeServed string `form:"include_served"`
}

func (s *Server) ListStationTickets(c *gin.Context) {
	stationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var query listStationTicketsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	includeServed, err := parseOptionalBool(query.IncludeServed)
	if err != nil {
		AbortWithError(c, newValidationError("include_served", "invalid_include_served", "invalid include_served"))
		return
	}

	tickets, err := s.kdsSvc.ListStationTickets(c.Request.Context(), stationID, includeServed != nil && *includeServed)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tickets})
}

func (s *Server) CreateTicket(c *gin.Context) {
	stationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req kdsdomain.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.StationID = stationID

	ticket, err := s.kdsSvc.CreateTicket(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": ticket})
}

func (s *Server) UpdateTicketStatus(c *gin.Context) {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req kdsdomain.UpdateTicketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TicketID = ticketID

	ticket, err := s.kdsSvc.UpdateTicketStatus(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ticket})
}
