package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dinein/internal/events"
	kdsdomain "github.com/smallbiznis/dinein/internal/kds/domain"
	"github.com/smallbiznis/dinein/internal/observability/logger"
	orderdomain "github.com/smallbiznis/dinein/internal/order/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateTicket queues items on a station. Items linked to order items move
// those order items to SENT in the same transaction.
func (s *Service) CreateTicket(ctx context.Context, req kdsdomain.CreateTicketRequest) (*kdsdomain.Ticket, error) {
	if len(req.Items) == 0 {
		return nil, kdsdomain.ErrEmptyTicket
	}
	var linked []snowflake.ID
	for _, in := range req.Items {
		if in.Quantity <= 0 {
			return nil, kdsdomain.ErrInvalidTicketItem
		}
		if in.OrderItemID != nil {
			linked = append(linked, *in.OrderItemID)
		} else if strings.TrimSpace(in.Name) == "" {
			return nil, kdsdomain.ErrInvalidTicketItem
		}
	}
	if len(linked) > 0 && req.OrderID == nil {
		return nil, kdsdomain.ErrInvalidTicketItem
	}

	station, err := s.activeStation(ctx, req.StationID)
	if err != nil {
		return nil, err
	}

	if req.OrderID != nil {
		release, err := s.locker.Lock(ctx, *req.OrderID)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var ticket kdsdomain.Ticket
	err = s.ticketTx(ctx, func(tx *gorm.DB) error {
		byID := map[snowflake.ID]orderdomain.OrderItem{}
		if req.OrderID != nil {
			order, err := s.orders.FindOrderForUpdate(ctx, tx, *req.OrderID)
			if err != nil {
				return err
			}
			if order == nil {
				return orderdomain.ErrOrderNotFound
			}
			if order.Status.Terminal() {
				return orderdomain.ErrOrderClosed
			}
			items, err := s.orders.ListItemsByIDs(ctx, tx, linked)
			if err != nil {
				return err
			}
			for _, item := range items {
				if item.OrderID == order.ID {
					byID[item.ID] = item
				}
			}
		}

		inputs := make([]ticketLine, 0, len(req.Items))
		for _, in := range req.Items {
			line := ticketLine{input: in}
			if in.OrderItemID != nil {
				item, ok := byID[*in.OrderItemID]
				if !ok {
					return kdsdomain.ErrOrderItemNotFound
				}
				if item.Status == orderdomain.ItemStatusVoid {
					return kdsdomain.ErrInvalidTicketItem
				}
				line.orderItem = &item
			}
			inputs = append(inputs, line)
		}

		created, err := s.insertTicket(ctx, tx, station, req.OrderID, req.TableLabel, req.Priority, trimOptional(req.Notes), inputs)
		if err != nil {
			return err
		}
		ticket = *created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTicketCreated(ctx, station, ticket)
	return &ticket, nil
}

type ticketLine struct {
	input     kdsdomain.TicketItemInput
	orderItem *orderdomain.OrderItem
}

// insertTicket numbers and stores a ticket and marks linked order items SENT.
func (s *Service) insertTicket(ctx context.Context, tx *gorm.DB, station *kdsdomain.Station, orderID *snowflake.ID, tableLabel string, priority int, notes *string, lines []ticketLine) (*kdsdomain.Ticket, error) {
	number, err := s.repo.NextTicketNumber(ctx, tx, station.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ticket := kdsdomain.Ticket{
		ID:           s.genID.Generate(),
		StationID:    station.ID,
		OrderID:      orderID,
		TicketNumber: number,
		TableLabel:   strings.TrimSpace(tableLabel),
		Status:       kdsdomain.TicketStatusNew,
		Priority:     priority,
		Notes:        notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertTicket(ctx, tx, &ticket); err != nil {
		return nil, err
	}

	items := make([]kdsdomain.TicketItem, 0, len(lines))
	for _, line := range lines {
		item := kdsdomain.TicketItem{
			ID:       s.genID.Generate(),
			TicketID: ticket.ID,
			Name:     strings.TrimSpace(line.input.Name),
			Quantity: line.input.Quantity,
			Notes:    trimOptional(line.input.Notes),
			Status:   kdsdomain.TicketStatusNew,
		}
		if len(line.input.Modifiers) > 0 {
			item.Modifiers = datatypes.JSON(line.input.Modifiers)
		}
		if oi := line.orderItem; oi != nil {
			id := oi.ID
			item.OrderItemID = &id
			if item.Name == "" {
				item.Name = oi.Name
			}
			if item.Modifiers == nil && len(oi.Modifiers) > 0 {
				item.Modifiers = oi.Modifiers
			}
			if item.Notes == nil {
				item.Notes = oi.Notes
			}

			oi.Status = orderdomain.ItemStatusSent
			oi.SentToKitchenAt = &now
			oi.UpdatedAt = now
			if err := s.orders.UpdateItem(ctx, tx, oi); err != nil {
				return nil, err
			}
		}
		items = append(items, item)
	}
	if err := s.repo.InsertTicketItems(ctx, tx, items); err != nil {
		return nil, err
	}
	ticket.Items = items
	return &ticket, nil
}

func (s *Service) afterTicketCreated(ctx context.Context, station *kdsdomain.Station, ticket kdsdomain.Ticket) {
	logger.WithTicket(logger.WithContext(ctx, s.log), ticket.ID.Int64(), station.ID.Int64()).
		Info("ticket created", zap.Int("ticket_number", ticket.TicketNumber), zap.Int("items", len(ticket.Items)))
	s.metrics.RecordTicketCreated(ctx, len(ticket.Items))

	evt := events.TicketCreated{
		TicketID:     ticket.ID.String(),
		TicketNumber: ticket.TicketNumber,
		StationID:    station.ID.String(),
		StationCode:  station.Code,
		TableLabel:   ticket.TableLabel,
		Priority:     ticket.Priority,
		Items:        make([]events.TicketItem, 0, len(ticket.Items)),
	}
	if ticket.OrderID != nil {
		evt.OrderID = ticket.OrderID.String()
	}
	for _, item := range ticket.Items {
		ti := events.TicketItem{
			TicketItemID: item.ID.String(),
			Name:         item.Name,
			Quantity:     item.Quantity,
			Status:       string(item.Status),
		}
		if item.OrderItemID != nil {
			ti.OrderItemID = item.OrderItemID.String()
		}
		evt.Items = append(evt.Items, ti)
	}
	s.publish(ctx, events.EventKitchenTicketCreated, evt)
}

// UpdateTicketStatus moves a ticket to any status. Phase timestamps are
// written once. Every linked order item takes the mapped status whatever
// its current one, except VOID items which stay void.
func (s *Service) UpdateTicketStatus(ctx context.Context, req kdsdomain.UpdateTicketStatusRequest) (*kdsdomain.Ticket, error) {
	status, ok := kdsdomain.ParseTicketStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !ok {
		return nil, kdsdomain.ErrInvalidTicketStatus
	}
	perItem := make(map[snowflake.ID]kdsdomain.TicketStatus, len(req.ItemStatuses))
	for _, u := range req.ItemStatuses {
		itemStatus, ok := kdsdomain.ParseTicketStatus(strings.ToUpper(strings.TrimSpace(u.Status)))
		if !ok {
			return nil, kdsdomain.ErrInvalidTicketStatus
		}
		perItem[u.TicketItemID] = itemStatus
	}

	current, err := s.repo.FindTicket(ctx, s.db, req.TicketID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, kdsdomain.ErrTicketNotFound
	}
	lockID := current.ID
	if current.OrderID != nil {
		lockID = *current.OrderID
	}
	release, err := s.locker.Lock(ctx, lockID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		ticket   kdsdomain.Ticket
		previous kdsdomain.TicketStatus
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindTicketForUpdate(ctx, tx, req.TicketID)
		if err != nil {
			return err
		}
		if found == nil {
			return kdsdomain.ErrTicketNotFound
		}
		ticket = *found
		previous = ticket.Status

		items, err := s.repo.ListTicketItems(ctx, tx, []snowflake.ID{ticket.ID})
		if err != nil {
			return err
		}
		owned := make(map[snowflake.ID]struct{}, len(items))
		for _, item := range items {
			owned[item.ID] = struct{}{}
		}
		for id := range perItem {
			if _, ok := owned[id]; !ok {
				return kdsdomain.ErrTicketItemNotFound
			}
		}

		now := s.clock.Now()
		ticket.Transition(status, now)
		if err := s.repo.UpdateTicket(ctx, tx, &ticket); err != nil {
			return err
		}

		for i := range items {
			itemStatus, ok := perItem[items[i].ID]
			if !ok {
				continue
			}
			items[i].Transition(itemStatus, now)
			if err := s.repo.UpdateTicketItem(ctx, tx, &items[i]); err != nil {
				return err
			}
		}
		ticket.Items = items

		return s.propagate(ctx, tx, status, items, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTicketTransition(ctx, string(previous), string(status))
	evt := events.TicketStatusChanged{
		TicketID:       ticket.ID.String(),
		StationID:      ticket.StationID.String(),
		PreviousStatus: string(previous),
		NewStatus:      string(status),
		AcknowledgedAt: ticket.AcknowledgedAt,
		StartedAt:      ticket.StartedAt,
		CompletedAt:    ticket.CompletedAt,
		ServedAt:       ticket.ServedAt,
	}
	if ticket.OrderID != nil {
		evt.OrderID = ticket.OrderID.String()
	}
	s.publish(ctx, events.EventKitchenTicketStatusChanged, evt)
	return &ticket, nil
}

// propagate writes the ticket status onto every linked order item.
func (s *Service) propagate(ctx context.Context, tx *gorm.DB, status kdsdomain.TicketStatus, items []kdsdomain.TicketItem, now time.Time) error {
	target, ok := status.ItemStatus()
	if !ok {
		return nil
	}
	var ids []snowflake.ID
	for _, item := range items {
		if item.OrderItemID != nil {
			ids = append(ids, *item.OrderItemID)
		}
	}
	orderItems, err := s.orders.ListItemsByIDs(ctx, tx, ids)
	if err != nil {
		return err
	}
	for i := range orderItems {
		oi := &orderItems[i]
		if oi.Status == orderdomain.ItemStatusVoid {
			continue
		}
		oi.Status = target
		switch target {
		case orderdomain.ItemStatusReady:
			if oi.PreparedAt == nil {
				oi.PreparedAt = &now
			}
		case orderdomain.ItemStatusServed:
			if oi.ServedAt == nil {
				oi.ServedAt = &now
			}
		}
		oi.UpdatedAt = now
		if err := s.orders.UpdateItem(ctx, tx, oi); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) activeStation(ctx context.Context, id snowflake.ID) (*kdsdomain.Station, error) {
	station, err := s.repo.FindStation(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if station == nil {
		return nil, kdsdomain.ErrStationNotFound
	}
	if !station.IsActive {
		return nil, kdsdomain.ErrInactiveStation
	}
	return station, nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
