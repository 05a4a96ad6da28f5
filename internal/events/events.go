// Package events publishes kitchen and payment notifications after the
// owning transaction commits. Delivery is best effort: the database stays the
// source of truth and subscribers reconcile from it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	KitchenTicketsTopic = "kitchen.tickets"
	OrderPaymentsTopic  = "orders.payments"

	EventKitchenTicketCreated       = "kitchen.ticket.created"
	EventKitchenTicketStatusChanged = "kitchen.ticket.status_changed"
	EventKitchenTicketStale         = "kitchen.ticket.stale"
	EventOrderPaymentRecorded       = "order.payment.recorded"
)

// Envelope wraps every payload published by this service.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// NewEnvelope stamps data with a sortable event id.
func NewEnvelope(eventType string, occurredAt time.Time, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         ulid.MustNew(ulid.Timestamp(occurredAt), ulid.DefaultEntropy()).String(),
		Type:       eventType,
		OccurredAt: occurredAt.UTC(),
		Data:       raw,
	}, nil
}

type Publisher interface {
	Publish(ctx context.Context, topic string, env Envelope) error
}

type TicketItem struct {
	TicketItemID string `json:"ticket_item_id"`
	OrderItemID  string `json:"order_item_id,omitempty"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	Status       string `json:"status"`
}

type TicketCreated struct {
	TicketID     string       `json:"ticket_id"`
	TicketNumber int          `json:"ticket_number"`
	StationID    string       `json:"station_id"`
	StationCode  string       `json:"station_code"`
	OrderID      string       `json:"order_id"`
	TableLabel   string       `json:"table_label"`
	Priority     int          `json:"priority"`
	Items        []TicketItem `json:"items"`
}

type TicketStatusChanged struct {
	TicketID       string     `json:"ticket_id"`
	StationID      string     `json:"station_id"`
	OrderID        string     `json:"order_id"`
	PreviousStatus string     `json:"previous_status"`
	NewStatus      string     `json:"new_status"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ServedAt       *time.Time `json:"served_at,omitempty"`
}

type TicketStale struct {
	TicketID       string    `json:"ticket_id"`
	StationID      string    `json:"station_id"`
	OrderID        string    `json:"order_id"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	AgeMinutes     int       `json:"age_minutes"`
	AlertThreshold int       `json:"alert_threshold"`
}

type PaymentRecorded struct {
	PaymentID       string `json:"payment_id"`
	OrderID         string `json:"order_id"`
	SplitBillID     string `json:"split_bill_id,omitempty"`
	Method          string `json:"method"`
	Amount          string `json:"amount"`
	TipAmount       string `json:"tip_amount"`
	TotalPaid       string `json:"total_paid"`
	RemainingAmount string `json:"remaining_amount"`
	OrderStatus     string `json:"order_status"`
	PaymentStatus   string `json:"payment_status"`
}
