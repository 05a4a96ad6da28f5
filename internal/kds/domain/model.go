package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Station is a preparation area of an outlet. DefaultPrepTime and
// AlertThreshold are minutes.
type Station struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	OutletID        snowflake.ID `json:"outlet_id" gorm:"not null;index"`
	Name            string       `json:"name" gorm:"type:text;not null"`
	Code            string       `json:"code" gorm:"type:text;not null"`
	IsActive        bool         `json:"is_active" gorm:"not null"`
	DefaultPrepTime int          `json:"default_prep_time" gorm:"not null"`
	AlertThreshold  int          `json:"alert_threshold" gorm:"not null"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`
}

func (Station) TableName() string { return "kds_stations" }

// RoutingRule sends items of a menu category, or one menu item, to a station.
type RoutingRule struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	StationID snowflake.ID `json:"station_id" gorm:"not null;index"`
	Kind      RuleKind     `json:"kind" gorm:"type:text;not null"`
	TargetID  snowflake.ID `json:"target_id" gorm:"not null"`
	Position  int          `json:"position" gorm:"not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

func (RoutingRule) TableName() string { return "kds_routing_rules" }

// Matches reports whether the rule targets the given menu item or category.
func (r RoutingRule) Matches(menuItemID snowflake.ID, categoryID *snowflake.ID) bool {
	switch r.Kind {
	case RuleKindItem:
		return r.TargetID == menuItemID
	case RuleKindCategory:
		return categoryID != nil && r.TargetID == *categoryID
	default:
		return false
	}
}

// Ticket numbers count up per station; the unique index on
// (station_id, ticket_number) settles concurrent writers.
type Ticket struct {
	ID             snowflake.ID  `json:"id" gorm:"primaryKey"`
	StationID      snowflake.ID  `json:"station_id" gorm:"not null;uniqueIndex:idx_kds_tickets_station_number,priority:1"`
	OrderID        *snowflake.ID `json:"order_id,omitempty" gorm:"index"`
	TicketNumber   int           `json:"ticket_number" gorm:"not null;uniqueIndex:idx_kds_tickets_station_number,priority:2"`
	TableLabel     string        `json:"table_label" gorm:"type:text;not null"`
	Status         TicketStatus  `json:"status" gorm:"type:text;not null"`
	Priority       int           `json:"priority" gorm:"not null"`
	Notes          *string       `json:"notes,omitempty" gorm:"type:text"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at,omitempty"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	ServedAt       *time.Time    `json:"served_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"not null"`

	Items []TicketItem `json:"items" gorm:"-"`
}

func (Ticket) TableName() string { return "kds_tickets" }

// stamp fills every phase timestamp up to and including status that is
// still unset. A jump from ACKNOWLEDGED to READY therefore also stamps
// StartedAt, while timestamps already set are never moved.
func (t *Ticket) stamp(status TicketStatus, now time.Time) {
	set := func(field **time.Time) {
		if *field == nil {
			at := now
			*field = &at
		}
	}
	switch status {
	case TicketStatusServed:
		set(&t.ServedAt)
		fallthrough
	case TicketStatusReady:
		set(&t.CompletedAt)
		fallthrough
	case TicketStatusInProgress:
		set(&t.StartedAt)
		fallthrough
	case TicketStatusAcknowledged:
		set(&t.AcknowledgedAt)
	}
}

// Transition moves the ticket to status and stamps its timestamp once.
func (t *Ticket) Transition(status TicketStatus, now time.Time) {
	t.Status = status
	t.stamp(status, now)
	t.UpdatedAt = now
}

type TicketItem struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey"`
	TicketID    snowflake.ID   `json:"ticket_id" gorm:"not null;index"`
	OrderItemID *snowflake.ID  `json:"order_item_id,omitempty" gorm:"index"`
	Name        string         `json:"name" gorm:"type:text;not null"`
	Quantity    int            `json:"quantity" gorm:"not null"`
	Modifiers   datatypes.JSON `json:"modifiers,omitempty"`
	Notes       *string        `json:"notes,omitempty" gorm:"type:text"`
	Status      TicketStatus   `json:"status" gorm:"type:text;not null"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

func (TicketItem) TableName() string { return "kds_ticket_items" }

// Transition sets the item status, stamping CompletedAt the first time the
// item reaches READY or SERVED.
func (i *TicketItem) Transition(status TicketStatus, now time.Time) {
	i.Status = status
	if status.Done() && i.CompletedAt == nil {
		at := now
		i.CompletedAt = &at
	}
}

// StaleTicket is an open ticket older than its station's alert threshold.
type StaleTicket struct {
	Ticket  Ticket
	Station Station
	Age     time.Duration
}
