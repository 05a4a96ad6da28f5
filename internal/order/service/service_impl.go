package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/dinein/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/dinein/internal/catalog/domain"
	"github.com/smallbiznis/dinein/internal/clock"
	"github.com/smallbiznis/dinein/internal/events"
	"github.com/smallbiznis/dinein/internal/money"
	"github.com/smallbiznis/dinein/internal/observability/logger"
	"github.com/smallbiznis/dinein/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/dinein/internal/order/domain"
	"github.com/smallbiznis/dinein/internal/orderlock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      orderdomain.Repository
	Catalog   catalogdomain.Lookup
	Locker    orderlock.Locker
	Audit     auditdomain.Service
	Publisher events.Publisher
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      orderdomain.Repository
	catalog   catalogdomain.Lookup
	locker    orderlock.Locker
	audit     auditdomain.Service
	publisher events.Publisher
	metrics   *metrics.Metrics
}

func NewService(p Params) orderdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		catalog:   p.Catalog,
		locker:    p.Locker,
		audit:     p.Audit,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

func (s *Service) OpenOrder(ctx context.Context, req orderdomain.OpenOrderRequest) (*orderdomain.Order, error) {
	tableRef := strings.TrimSpace(req.TableRef)
	if tableRef == "" {
		return nil, orderdomain.ErrInvalidTable
	}
	openedBy := strings.TrimSpace(req.OpenedBy)
	if openedBy == "" {
		return nil, orderdomain.ErrInvalidActor
	}

	now := s.clock.Now()
	order := orderdomain.Order{
		ID:            s.genID.Generate(),
		OutletID:      req.OutletID,
		TableRef:      tableRef,
		Status:        orderdomain.OrderStatusOpen,
		PaymentStatus: orderdomain.PaymentStatusNone,
		OpenedBy:      openedBy,
		OpenedAt:      now,
		UpdatedAt:     now,
	}
	order.ApplyTotals(money.Recompute(nil, nil, decimal.Zero, decimal.Zero, decimal.Zero))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.catalog.GetOutlet(ctx, tx, req.OutletID); err != nil {
			return err
		}
		if err := s.repo.InsertOrder(ctx, tx, &order); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			ActorID:    openedBy,
			Action:     auditdomain.ActionOrderOpened,
			TargetType: auditdomain.TargetOrder,
			TargetID:   order.ID.String(),
			Metadata:   map[string]any{"table_ref": tableRef, "outlet_id": req.OutletID.String()},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.WithOrder(s.log, order.ID.Int64()).Info("order opened", zap.String("table_ref", tableRef))
	return &order, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID snowflake.ID) (*orderdomain.OrderDetail, error) {
	order, err := s.repo.FindOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, orderdomain.ErrOrderNotFound
	}

	detail := orderdomain.OrderDetail{Order: *order}
	if detail.Items, err = s.repo.ListItems(ctx, s.db, orderID); err != nil {
		return nil, err
	}
	if detail.Discounts, err = s.repo.ListDiscounts(ctx, s.db, orderID); err != nil {
		return nil, err
	}
	if detail.SplitBills, err = s.repo.ListSplitBills(ctx, s.db, orderID); err != nil {
		return nil, err
	}
	if detail.Payments, err = s.repo.ListPayments(ctx, s.db, orderID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CloseOrder ends service for a fully paid order.
func (s *Service) CloseOrder(ctx context.Context, orderID snowflake.ID, closedBy string) (*orderdomain.Order, error) {
	closedBy = strings.TrimSpace(closedBy)
	if closedBy == "" {
		return nil, orderdomain.ErrInvalidActor
	}

	var result orderdomain.Order
	err := s.withOrder(ctx, orderID, func(tx *gorm.DB, order *orderdomain.Order) error {
		if order.Status.Terminal() {
			return orderdomain.ErrOrderClosed
		}
		if order.Status != orderdomain.OrderStatusPaid {
			return orderdomain.ErrOrderNotSettled
		}

		now := s.clock.Now()
		order.Status = orderdomain.OrderStatusClosed
		order.ClosedBy = &closedBy
		order.ClosedAt = &now
		order.UpdatedAt = now
		if err := s.repo.UpdateOrder(ctx, tx, order); err != nil {
			return err
		}
		result = *order
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			ActorID:    closedBy,
			Action:     auditdomain.ActionOrderClosed,
			TargetType: auditdomain.TargetOrder,
			TargetID:   order.ID.String(),
			Metadata:   map[string]any{"total": order.Total.StringFixed(money.Scale)},
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// VoidOrder cancels an order that has taken no money. Every live item is
// voided and totals drop to zero.
func (s *Service) VoidOrder(ctx context.Context, req orderdomain.VoidOrderRequest) (*orderdomain.Order, error) {
	voidedBy := strings.TrimSpace(req.VoidedBy)
	if voidedBy == "" {
		return nil, orderdomain.ErrInvalidActor
	}
	reason := strings.TrimSpace(req.Reason)

	var result orderdomain.Order
	err := s.withOrder(ctx, req.OrderID, func(tx *gorm.DB, order *orderdomain.Order) error {
		if order.Status.Terminal() {
			return orderdomain.ErrOrderClosed
		}

		payments, err := s.repo.ListPayments(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		for _, p := range payments {
			if p.Status == orderdomain.PaymentRecordCompleted {
				return orderdomain.ErrOrderHasPayments
			}
		}

		now := s.clock.Now()
		items, err := s.repo.ListItems(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		for i := range items {
			if items[i].Status == orderdomain.ItemStatusVoid {
				continue
			}
			items[i].Status = orderdomain.ItemStatusVoid
			items[i].VoidedAt = &now
			items[i].UpdatedAt = now
			if err := s.repo.UpdateItem(ctx, tx, &items[i]); err != nil {
				return err
			}
		}

		if err := s.recompute(ctx, tx, order); err != nil {
			return err
		}
		order.Status = orderdomain.OrderStatusVoid
		order.ClosedBy = &voidedBy
		order.ClosedAt = &now
		if reason != "" {
			order.VoidReason = &reason
		}
		if err := s.repo.UpdateOrder(ctx, tx, order); err != nil {
			return err
		}
		result = *order
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			ActorID:    voidedBy,
			Action:     auditdomain.ActionOrderVoided,
			TargetType: auditdomain.TargetOrder,
			TargetID:   order.ID.String(),
			Metadata:   map[string]any{"reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// withOrder runs fn under the per-order lock inside one transaction with the
// order row loaded. Any error rolls back every write fn made.
func (s *Service) withOrder(ctx context.Context, orderID snowflake.ID, fn func(tx *gorm.DB, order *orderdomain.Order) error) error {
	release, err := s.locker.Lock(ctx, orderID)
	if err != nil {
		return err
	}
	defer release()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindOrderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return orderdomain.ErrOrderNotFound
		}
		return fn(tx, order)
	})
}

// recompute reruns the money engine over the persisted items and discounts
// and saves the result on order. order.Tip must already be current.
func (s *Service) recompute(ctx context.Context, tx *gorm.DB, order *orderdomain.Order) error {
	outlet, err := s.catalog.GetOutlet(ctx, tx, order.OutletID)
	if err != nil {
		return err
	}
	items, err := s.repo.ListItems(ctx, tx, order.ID)
	if err != nil {
		return err
	}
	discounts, err := s.repo.ListDiscounts(ctx, tx, order.ID)
	if err != nil {
		return err
	}

	totals := money.Recompute(
		orderdomain.Lines(items),
		orderdomain.DiscountAmounts(discounts),
		order.Tip,
		outlet.TaxRate,
		outlet.ServiceChargeRate,
	)
	order.ApplyTotals(totals)
	order.UpdatedAt = s.clock.Now()
	return s.repo.UpdateOrder(ctx, tx, order)
}

func (s *Service) publish(ctx context.Context, topic, eventType string, data any) {
	env, err := events.NewEnvelope(eventType, s.clock.Now(), data)
	if err == nil {
		err = s.publisher.Publish(ctx, topic, env)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithContext(ctx, s.log).Warn("publish event", zap.String("type", eventType), zap.Error(err))
	}
}
