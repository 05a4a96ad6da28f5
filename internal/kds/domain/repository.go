package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists stations, routing rules and tickets. Find methods
// return nil, nil when the row does not exist.
type Repository interface {
	InsertStation(ctx context.Context, db *gorm.DB, station *Station) error
	FindStation(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Station, error)
	FirstActiveStation(ctx context.Context, db *gorm.DB, outletID snowflake.ID) (*Station, error)
	ListStations(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Station, error)

	InsertRule(ctx context.Context, db *gorm.DB, rule *RoutingRule) error
	NextRulePosition(ctx context.Context, db *gorm.DB, stationID snowflake.ID) (int, error)
	// ListOutletRules returns the rules of the outlet's active stations,
	// ordered by station then position.
	ListOutletRules(ctx context.Context, db *gorm.DB, outletID snowflake.ID) ([]RoutingRule, error)

	InsertTicket(ctx context.Context, db *gorm.DB, ticket *Ticket) error
	NextTicketNumber(ctx context.Context, db *gorm.DB, stationID snowflake.ID) (int, error)
	FindTicket(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Ticket, error)
	FindTicketForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Ticket, error)
	UpdateTicket(ctx context.Context, db *gorm.DB, ticket *Ticket) error
	ListStationTickets(ctx context.Context, db *gorm.DB, stationID snowflake.ID, includeServed bool) ([]Ticket, error)
	ListOpenTickets(ctx context.Context, db *gorm.DB) ([]Ticket, error)

	InsertTicketItems(ctx context.Context, db *gorm.DB, items []TicketItem) error
	ListTicketItems(ctx context.Context, db *gorm.DB, ticketIDs []snowflake.ID) ([]TicketItem, error)
	UpdateTicketItem(ctx context.Context, db *gorm.DB, item *TicketItem) error
}
