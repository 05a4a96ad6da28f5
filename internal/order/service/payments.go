package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/dinein/internal/audit/domain"
	"github.com/smallbiznis/dinein/internal/events"
	"github.com/smallbiznis/dinein/internal/money"
	orderdomain "github.com/smallbiznis/dinein/internal/order/domain"
	"gorm.io/gorm"
)

// RecordPayment stores an already authorized payment, settles the referenced
// split bill and moves the order's payment status. Once PAID an order stays
// PAID even if a later tip raises the total above what has been paid.
func (s *Service) RecordPayment(ctx context.Context, req orderdomain.RecordPaymentRequest) (*orderdomain.PaymentResult, error) {
	if !req.Amount.IsPositive() {
		return nil, orderdomain.ErrInvalidAmount
	}
	if req.TipAmount.IsNegative() {
		return nil, orderdomain.ErrInvalidTip
	}
	method, ok := orderdomain.ParsePaymentMethod(strings.ToUpper(strings.TrimSpace(req.Method)))
	if !ok {
		return nil, orderdomain.ErrInvalidPaymentMethod
	}
	processedBy := strings.TrimSpace(req.ProcessedBy)
	if processedBy == "" {
		return nil, orderdomain.ErrInvalidActor
	}

	var result orderdomain.PaymentResult
	err := s.withOrder(ctx, req.OrderID, func(tx *gorm.DB, order *orderdomain.Order) error {
		if order.Status.Terminal() {
			return orderdomain.ErrOrderClosed
		}

		now := s.clock.Now()
		if req.SplitBillID != nil {
			bill, err := s.repo.FindSplitBill(ctx, tx, *req.SplitBillID)
			if err != nil {
				return err
			}
			if bill == nil || bill.OrderID != order.ID {
				return orderdomain.ErrSplitBillNotFound
			}
			if bill.IsPaid {
				return orderdomain.ErrAlreadySettled
			}
			bill.IsPaid = true
			bill.PaidAt = &now
			if err := s.repo.UpdateSplitBill(ctx, tx, bill); err != nil {
				return err
			}
		}

		payment := orderdomain.Payment{
			ID:          s.genID.Generate(),
			OrderID:     order.ID,
			SplitBillID: req.SplitBillID,
			Method:      method,
			Amount:      req.Amount.Round(money.Scale),
			TipAmount:   req.TipAmount.Round(money.Scale),
			Status:      orderdomain.PaymentRecordCompleted,
			ProcessedBy: processedBy,
			ProcessedAt: now,
		}
		if err := s.repo.InsertPayment(ctx, tx, &payment); err != nil {
			return err
		}

		payments, err := s.repo.ListPayments(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		totalPaid, totalTips := sumCompleted(payments)

		order.Tip = totalTips
		if err := s.recompute(ctx, tx, order); err != nil {
			return err
		}
		applyPaymentStatus(order, totalPaid)
		if err := s.repo.UpdateOrder(ctx, tx, order); err != nil {
			return err
		}

		result = orderdomain.PaymentResult{
			Payment:         payment,
			TotalPaid:       totalPaid,
			TotalTips:       totalTips,
			RemainingAmount: money.Remaining(order.Total, totalPaid),
			Order:           *order,
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			ActorID:    processedBy,
			Action:     auditdomain.ActionPaymentRecorded,
			TargetType: auditdomain.TargetOrder,
			TargetID:   order.ID.String(),
			Metadata: map[string]any{
				"payment_id": payment.ID.String(),
				"method":     string(method),
				"amount":     payment.Amount.StringFixed(money.Scale),
				"tip_amount": payment.TipAmount.StringFixed(money.Scale),
				"status":     string(order.Status),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPayment(ctx, string(method), result.Payment.Amount.InexactFloat64())
	s.publish(ctx, events.OrderPaymentsTopic, events.EventOrderPaymentRecorded, paymentRecordedEvent(result))
	return &result, nil
}

func sumCompleted(payments []orderdomain.Payment) (decimal.Decimal, decimal.Decimal) {
	paid, tips := decimal.Zero, decimal.Zero
	for _, p := range payments {
		if p.Status != orderdomain.PaymentRecordCompleted {
			continue
		}
		paid = paid.Add(p.Amount)
		tips = tips.Add(p.TipAmount)
	}
	return paid, tips
}

func applyPaymentStatus(order *orderdomain.Order, totalPaid decimal.Decimal) {
	switch {
	case totalPaid.GreaterThanOrEqual(order.Total):
		order.Status = orderdomain.OrderStatusPaid
		order.PaymentStatus = orderdomain.PaymentStatusCompleted
	case totalPaid.IsPositive() && order.Status != orderdomain.OrderStatusPaid:
		order.Status = orderdomain.OrderStatusPartiallyPaid
		order.PaymentStatus = orderdomain.PaymentStatusPending
	}
}

func paymentRecordedEvent(r orderdomain.PaymentResult) events.PaymentRecorded {
	evt := events.PaymentRecorded{
		PaymentID:       r.Payment.ID.String(),
		OrderID:         r.Payment.OrderID.String(),
		Method:          string(r.Payment.Method),
		Amount:          r.Payment.Amount.StringFixed(money.Scale),
		TipAmount:       r.Payment.TipAmount.StringFixed(money.Scale),
		TotalPaid:       r.TotalPaid.StringFixed(money.Scale),
		RemainingAmount: r.RemainingAmount.StringFixed(money.Scale),
		OrderStatus:     string(r.Order.Status),
		PaymentStatus:   string(r.Order.PaymentStatus),
	}
	if r.Payment.SplitBillID != nil {
		evt.SplitBillID = r.Payment.SplitBillID.String()
	}
	return evt
}

// CreateSplitBills adds explicit shares. The shares of an order may not add
// up to more than its current total.
func (s *Service) CreateSplitBills(ctx context.Context, req orderdomain.CreateSplitBillsRequest) ([]orderdomain.SplitBill, error) {
	if len(req.Shares) == 0 {
		return nil, orderdomain.ErrInvalidSplit
	}
	for _, share := range req.Shares {
		if strings.TrimSpace(share.Label) == "" || !share.Amount.IsPositive() {
			return nil, orderdomain.ErrInvalidSplit
		}
	}

	var bills []orderdomain.SplitBill
	err := s.withOrder(ctx, req.OrderID, func(tx *gorm.DB, order *orderdomain.Order) error {
		if order.Status.Terminal() {
			return orderdomain.ErrOrderClosed
		}

		existing, err := s.repo.ListSplitBills(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		allocated := decimal.Zero
		for _, b := range existing {
			allocated = allocated.Add(b.Amount)
		}

		now := s.clock.Now()
		for _, share := range req.Shares {
			amount := share.Amount.Round(money.Scale)
			allocated = allocated.Add(amount)
			bills = append(bills, orderdomain.SplitBill{
				ID:        s.genID.Generate(),
				OrderID:   order.ID,
				Label:     strings.TrimSpace(share.Label),
				Amount:    amount,
				CreatedAt: now,
			})
		}
		if allocated.GreaterThan(order.Total) {
			return orderdomain.ErrInvalidSplit
		}
		return s.repo.InsertSplitBills(ctx, tx, bills)
	})
	if err != nil {
		return nil, err
	}
	return bills, nil
}

// SplitEvenly divides the unpaid remainder of the order into equal shares.
// It is refused while the order still has unpaid split bills.
func (s *Service) SplitEvenly(ctx context.Context, req orderdomain.SplitEvenlyRequest) ([]orderdomain.SplitBill, error) {
	if req.Parts < 2 {
		return nil, orderdomain.ErrInvalidSplit
	}

	var bills []orderdomain.SplitBill
	err := s.withOrder(ctx, req.OrderID, func(tx *gorm.DB, order *orderdomain.Order) error {
		if order.Status.Terminal() {
			return orderdomain.ErrOrderClosed
		}

		existing, err := s.repo.ListSplitBills(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		for _, b := range existing {
			if !b.IsPaid {
				return orderdomain.ErrInvalidSplit
			}
		}

		payments, err := s.repo.ListPayments(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		paid, _ := sumCompleted(payments)
		remaining := money.Remaining(order.Total, paid)
		if !remaining.IsPositive() {
			return orderdomain.ErrInvalidSplit
		}

		now := s.clock.Now()
		for i, amount := range money.SplitEvenly(remaining, req.Parts) {
			bills = append(bills, orderdomain.SplitBill{
				ID:        s.genID.Generate(),
				OrderID:   order.ID,
				Label:     shareLabel(i, req.Parts),
				Amount:    amount,
				CreatedAt: now,
			})
		}
		return s.repo.InsertSplitBills(ctx, tx, bills)
	})
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func shareLabel(index, parts int) string {
	return fmt.Sprintf("Share %d/%d", index+1, parts)
}
