package service

import (
	"context"
	"sort"

	"github.com/bwmarrin/snowflake"
	kdsdomain "github.com/smallbiznis/dinein/internal/kds/domain"
	orderdomain "github.com/smallbiznis/dinein/internal/order/domain"
	"gorm.io/gorm"
)

// ResolveStations returns every active station of the outlet with a rule
// matching the menu item or its category, ascending by id.
func (s *Service) ResolveStations(ctx context.Context, outletID, menuItemID snowflake.ID, categoryID *snowflake.ID) ([]snowflake.ID, error) {
	rules, err := s.repo.ListOutletRules(ctx, s.db, outletID)
	if err != nil {
		return nil, err
	}
	return matchStations(rules, menuItemID, categoryID), nil
}

// matchStations is the set union of stations over all matching rules.
func matchStations(rules []kdsdomain.RoutingRule, menuItemID snowflake.ID, categoryID *snowflake.ID) []snowflake.ID {
	set := make(map[snowflake.ID]struct{})
	for _, rule := range rules {
		if rule.Matches(menuItemID, categoryID) {
			set[rule.StationID] = struct{}{}
		}
	}
	ids := make([]snowflake.ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SendToKitchen routes every NEW item of the order and creates one ticket per
// targeted station. Items matching no rule go to the outlet's first active
// station.
func (s *Service) SendToKitchen(ctx context.Context, req kdsdomain.SendToKitchenRequest) ([]kdsdomain.Ticket, error) {
	release, err := s.locker.Lock(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		tickets  []kdsdomain.Ticket
		stations []kdsdomain.Station
	)
	err = s.ticketTx(ctx, func(tx *gorm.DB) error {
		tickets, stations = nil, nil

		order, err := s.orders.FindOrderForUpdate(ctx, tx, req.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return orderdomain.ErrOrderNotFound
		}
		if order.Status.Terminal() {
			return orderdomain.ErrOrderClosed
		}

		items, err := s.orders.ListItems(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		var pending []orderdomain.OrderItem
		for _, item := range items {
			if item.Status == orderdomain.ItemStatusNew {
				pending = append(pending, item)
			}
		}
		if len(pending) == 0 {
			return kdsdomain.ErrNothingToSend
		}

		rules, err := s.repo.ListOutletRules(ctx, tx, order.OutletID)
		if err != nil {
			return err
		}

		plan := make(map[snowflake.ID][]ticketLine)
		var fallback *kdsdomain.Station
		for i := range pending {
			item := &pending[i]
			targets := matchStations(rules, item.MenuItemID, item.CategoryID)
			if len(targets) == 0 {
				if fallback == nil {
					fallback, err = s.repo.FirstActiveStation(ctx, tx, order.OutletID)
					if err != nil {
						return err
					}
					if fallback == nil {
						return kdsdomain.ErrStationNotFound
					}
				}
				targets = []snowflake.ID{fallback.ID}
			}
			for _, stationID := range targets {
				plan[stationID] = append(plan[stationID], ticketLine{
					input:     kdsdomain.TicketItemInput{Quantity: item.Quantity},
					orderItem: item,
				})
			}
		}

		ids := make([]snowflake.ID, 0, len(plan))
		for id := range plan {
			ids = append(ids, id)
		}
		stations, err = s.repo.ListStations(ctx, tx, ids)
		if err != nil {
			return err
		}

		orderID := order.ID
		for i := range stations {
			created, err := s.insertTicket(ctx, tx, &stations[i], &orderID, order.TableRef, req.Priority, nil, plan[stations[i].ID])
			if err != nil {
				return err
			}
			tickets = append(tickets, *created)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range tickets {
		s.afterTicketCreated(ctx, &stations[i], tickets[i])
	}
	return tickets, nil
}
