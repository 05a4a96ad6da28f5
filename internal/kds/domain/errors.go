package domain

import "errors"

var (
	ErrStationNotFound    = errors.New("station_not_found")
	ErrTicketNotFound     = errors.New("ticket_not_found")
	ErrTicketItemNotFound = errors.New("ticket_item_not_found")
	ErrOrderItemNotFound  = errors.New("order_item_not_found")

	ErrInactiveStation = errors.New("inactive_station")

	ErrInvalidStation      = errors.New("invalid_station")
	ErrInvalidRule         = errors.New("invalid_routing_rule")
	ErrInvalidTicketStatus = errors.New("invalid_ticket_status")
	ErrInvalidTicketItem   = errors.New("invalid_ticket_item")
	ErrEmptyTicket         = errors.New("ticket_has_no_items")
	ErrNothingToSend       = errors.New("no_new_items")
)
