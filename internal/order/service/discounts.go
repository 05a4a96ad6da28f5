package service

import (
	"context"
	"strings"

	auditdomain "github.com/smallbiznis/dinein/internal/audit/domain"
	"github.com/smallbiznis/dinein/internal/money"
	orderdomain "github.com/smallbiznis/dinein/internal/order/domain"
	"gorm.io/gorm"
)

// ApplyDiscount fixes the discount amount against the raw subtotal at the
// time of application. Each discount is checked on its own against that
// subtotal; the sum of several discounts may exceed it, in which case the
// discounted subtotal floors at zero.
func (s *Service) ApplyDiscount(ctx context.Context, req orderdomain.ApplyDiscountRequest) (*orderdomain.ApplyDiscountResult, error) {
	discountType, ok := orderdomain.ParseDiscountType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if !ok {
		return nil, orderdomain.ErrInvalidDiscountType
	}
	if !req.Value.IsPositive() {
		return nil, orderdomain.ErrInvalidDiscountValue
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = string(discountType)
	}
	appliedBy := strings.TrimSpace(req.AppliedBy)
	if appliedBy == "" {
		return nil, orderdomain.ErrInvalidActor
	}
	approvedBy := trimOptional(req.ApprovedBy)
	if req.RequiresApproval && approvedBy == nil {
		return nil, orderdomain.ErrApprovalRequired
	}

	var result orderdomain.ApplyDiscountResult
	err := s.withOrder(ctx, req.OrderID, func(tx *gorm.DB, order *orderdomain.Order) error {
		if order.Status.Terminal() {
			return orderdomain.ErrOrderClosed
		}

		items, err := s.repo.ListItems(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		rawSubtotal := money.RawSubtotal(orderdomain.Lines(items))

		amount := req.Value.Round(money.Scale)
		if discountType == orderdomain.DiscountTypePercentage {
			amount = money.Percent(rawSubtotal, req.Value)
		}
		if amount.GreaterThan(rawSubtotal) {
			return orderdomain.ErrDiscountExceedsSubtotal
		}

		discount := orderdomain.AppliedDiscount{
			ID:               s.genID.Generate(),
			OrderID:          order.ID,
			Name:             name,
			Type:             discountType,
			Value:            req.Value,
			Amount:           amount,
			AppliedBy:        appliedBy,
			RequiresApproval: req.RequiresApproval,
			ApprovedBy:       approvedBy,
			CreatedAt:        s.clock.Now(),
		}
		if err := s.repo.InsertDiscount(ctx, tx, &discount); err != nil {
			return err
		}
		if err := s.recompute(ctx, tx, order); err != nil {
			return err
		}

		result = orderdomain.ApplyDiscountResult{Discount: discount, GrandTotal: order.Total}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			ActorID:    appliedBy,
			Action:     auditdomain.ActionDiscountApplied,
			TargetType: auditdomain.TargetOrder,
			TargetID:   order.ID.String(),
			Metadata: map[string]any{
				"discount_id": discount.ID.String(),
				"type":        string(discountType),
				"value":       req.Value.String(),
				"amount":      amount.StringFixed(money.Scale),
				"approved_by": approvedBy,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordDiscountApplied(ctx, string(discountType), req.RequiresApproval)
	return &result, nil
}
