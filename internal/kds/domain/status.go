package domain

import orderdomain "github.com/smallbiznis/dinein/internal/order/domain"

// TicketStatus is the kitchen-side progress of a ticket or a single ticket
// item. The engine accepts any target status; only timestamps are guarded.
type TicketStatus string

const (
	TicketStatusNew          TicketStatus = "NEW"
	TicketStatusAcknowledged TicketStatus = "ACKNOWLEDGED"
	TicketStatusInProgress   TicketStatus = "IN_PROGRESS"
	TicketStatusReady        TicketStatus = "READY"
	TicketStatusServed       TicketStatus = "SERVED"
)

func ParseTicketStatus(value string) (TicketStatus, bool) {
	switch s := TicketStatus(value); s {
	case TicketStatusNew, TicketStatusAcknowledged, TicketStatusInProgress,
		TicketStatusReady, TicketStatusServed:
		return s, true
	default:
		return "", false
	}
}

// Done reports whether the kitchen has finished with the ticket or item.
func (s TicketStatus) Done() bool {
	return s == TicketStatusReady || s == TicketStatusServed
}

// ItemStatus maps a ticket status onto the order item status it propagates.
// NEW has no order-side counterpart and reports false.
func (s TicketStatus) ItemStatus() (orderdomain.ItemStatus, bool) {
	switch s {
	case TicketStatusAcknowledged:
		return orderdomain.ItemStatusAcknowledged, true
	case TicketStatusInProgress:
		return orderdomain.ItemStatusPreparing, true
	case TicketStatusReady:
		return orderdomain.ItemStatusReady, true
	case TicketStatusServed:
		return orderdomain.ItemStatusServed, true
	case TicketStatusNew:
		return "", false
	default:
		return "", false
	}
}

// RuleKind selects what a routing rule matches on.
type RuleKind string

const (
	RuleKindCategory RuleKind = "CATEGORY"
	RuleKindItem     RuleKind = "ITEM"
)

func ParseRuleKind(value string) (RuleKind, bool) {
	switch k := RuleKind(value); k {
	case RuleKindCategory, RuleKindItem:
		return k, true
	default:
		return "", false
	}
}
