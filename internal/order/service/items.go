package service

import (
	"context"
	"strings"

	auditdomain "github.com/smallbiznis/dinein/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/dinein/internal/catalog/domain"
	"github.com/smallbiznis/dinein/internal/money"
	orderdomain "github.com/smallbiznis/dinein/internal/order/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AddItem snapshots the menu price onto a NEW line item and recomputes.
func (s *Service) AddItem(ctx context.Context, req orderdomain.AddItemRequest) (*orderdomain.OrderItem, error) {
	if req.Quantity <= 0 {
		return nil, orderdomain.ErrInvalidQuantity
	}

	var result orderdomain.OrderItem
	err := s.withOrder(ctx, req.OrderID, func(tx *gorm.DB, order *orderdomain.Order) error {
		if order.Status.Terminal() {
			return orderdomain.ErrOrderClosed
		}

		menuItem, err := s.catalog.GetMenuItem(ctx, tx, req.MenuItemID)
		if err != nil {
			return err
		}
		if menuItem.OutletID != order.OutletID {
			return catalogdomain.ErrMenuItemNotFound
		}

		now := s.clock.Now()
		item := orderdomain.OrderItem{
			ID:           s.genID.Generate(),
			OrderID:      order.ID,
			MenuItemID:   menuItem.ID,
			CategoryID:   menuItem.CategoryID,
			Name:         menuItem.Name,
			Quantity:     req.Quantity,
			UnitPrice:    menuItem.Price,
			TotalPrice:   money.LineTotal(menuItem.Price, req.Quantity),
			Status:       orderdomain.ItemStatusNew,
			SeatNumber:   req.SeatNumber,
			CourseNumber: req.CourseNumber,
			CourseType:   trimOptional(req.CourseType),
			Notes:        trimOptional(req.Notes),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if len(req.Modifiers) > 0 {
			item.Modifiers = datatypes.JSON(req.Modifiers)
		}

		if err := s.repo.InsertItem(ctx, tx, &item); err != nil {
			return err
		}
		result = item
		return s.recompute(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordItemAdded(ctx, result.Quantity)
	return &result, nil
}

// VoidItem permanently removes an item from the bill. Voiding an already
// void item is a no-op that still returns the current order.
func (s *Service) VoidItem(ctx context.Context, req orderdomain.VoidItemRequest) (*orderdomain.Order, error) {
	voidedBy := strings.TrimSpace(req.VoidedBy)
	if voidedBy == "" {
		return nil, orderdomain.ErrInvalidActor
	}

	var (
		result  orderdomain.Order
		changed bool
	)
	err := s.withOrder(ctx, req.OrderID, func(tx *gorm.DB, order *orderdomain.Order) error {
		if order.Status.Terminal() {
			return orderdomain.ErrOrderClosed
		}

		item, err := s.repo.FindItem(ctx, tx, order.ID, req.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return orderdomain.ErrItemNotFound
		}
		if item.Status == orderdomain.ItemStatusVoid {
			result = *order
			return nil
		}

		now := s.clock.Now()
		previous := item.Status
		item.Status = orderdomain.ItemStatusVoid
		item.VoidedAt = &now
		item.UpdatedAt = now
		if err := s.repo.UpdateItem(ctx, tx, item); err != nil {
			return err
		}
		if err := s.recompute(ctx, tx, order); err != nil {
			return err
		}
		result = *order
		changed = true

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			ActorID:    voidedBy,
			Action:     auditdomain.ActionItemVoided,
			TargetType: auditdomain.TargetOrder,
			TargetID:   order.ID.String(),
			Metadata: map[string]any{
				"order_item_id":   item.ID.String(),
				"name":            item.Name,
				"previous_status": string(previous),
				"total_price":     item.TotalPrice.StringFixed(money.Scale),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.metrics.RecordItemVoided(ctx)
		s.log.Info("order item voided",
			zap.Int64("order_id", req.OrderID.Int64()),
			zap.Int64("order_item_id", req.ItemID.Int64()),
		)
	}
	return &result, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
