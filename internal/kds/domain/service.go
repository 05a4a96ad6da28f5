package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateStation(ctx context.Context, req CreateStationRequest) (*Station, error)
	AddRoutingRule(ctx context.Context, req AddRoutingRuleRequest) (*RoutingRule, error)

	CreateTicket(ctx context.Context, req CreateTicketRequest) (*Ticket, error)
	UpdateTicketStatus(ctx context.Context, req UpdateTicketStatusRequest) (*Ticket, error)
	ListStationTickets(ctx context.Context, stationID snowflake.ID, includeServed bool) ([]Ticket, error)

	ResolveStations(ctx context.Context, outletID, menuItemID snowflake.ID, categoryID *snowflake.ID) ([]snowflake.ID, error)
	SendToKitchen(ctx context.Context, req SendToKitchenRequest) ([]Ticket, error)

	FindStaleTickets(ctx context.Context, now time.Time) ([]StaleTicket, error)
}

type CreateStationRequest struct {
	OutletID        snowflake.ID `json:"outlet_id"`
	Name            string       `json:"name"`
	DefaultPrepTime int          `json:"default_prep_time"`
	AlertThreshold  int          `json:"alert_threshold"`
}

type AddRoutingRuleRequest struct {
	StationID snowflake.ID `json:"-"`
	Kind      string       `json:"kind"`
	TargetID  snowflake.ID `json:"target_id"`
}

type TicketItemInput struct {
	OrderItemID *snowflake.ID   `json:"order_item_id,omitempty"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	Modifiers   json.RawMessage `json:"modifiers,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
}

// CreateTicketRequest carries the order context shown on the ticket. OrderID
// is required when any item links an order item.
type CreateTicketRequest struct {
	StationID  snowflake.ID      `json:"-"`
	OrderID    *snowflake.ID     `json:"order_id,omitempty"`
	TableLabel string            `json:"table_label"`
	Priority   int               `json:"priority"`
	Notes      *string           `json:"notes,omitempty"`
	Items      []TicketItemInput `json:"items"`
}

type ItemStatusUpdate struct {
	TicketItemID snowflake.ID `json:"ticket_item_id"`
	Status       string       `json:"status"`
}

type UpdateTicketStatusRequest struct {
	TicketID     snowflake.ID       `json:"-"`
	Status       string             `json:"status"`
	ItemStatuses []ItemStatusUpdate `json:"item_statuses,omitempty"`
}

type SendToKitchenRequest struct {
	OrderID  snowflake.ID `json:"-"`
	Priority int          `json:"priority"`
}
