package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dinein/internal/order/domain"
	"github.com/smallbiznis/dinein/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertOrder(ctx context.Context, conn *gorm.DB, order *domain.Order) error {
	return conn.WithContext(ctx).Create(order).Error
}

func (r *repo) FindOrder(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return findOrder(conn.WithContext(ctx), id)
}

// FindOrderForUpdate row-locks the order on dialects that support it. The
// per-order lock already serializes writers inside one process.
func (r *repo) FindOrderForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return findOrder(db.ForUpdate(conn.WithContext(ctx)), id)
}

func findOrder(conn *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := conn.Where("id = ?", id).Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) UpdateOrder(ctx context.Context, conn *gorm.DB, order *domain.Order) error {
	return conn.WithContext(ctx).Save(order).Error
}

func (r *repo) InsertItem(ctx context.Context, conn *gorm.DB, item *domain.OrderItem) error {
	return conn.WithContext(ctx).Create(item).Error
}

func (r *repo) FindItem(ctx context.Context, conn *gorm.DB, orderID, itemID snowflake.ID) (*domain.OrderItem, error) {
	var item domain.OrderItem
	err := conn.WithContext(ctx).
		Where("id = ? AND order_id = ?", itemID, orderID).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) ListItems(ctx context.Context, conn *gorm.DB, orderID snowflake.ID) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := conn.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) ListItemsByIDs(ctx context.Context, conn *gorm.DB, ids []snowflake.ID) ([]domain.OrderItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.OrderItem
	err := conn.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) UpdateItem(ctx context.Context, conn *gorm.DB, item *domain.OrderItem) error {
	return conn.WithContext(ctx).Save(item).Error
}

func (r *repo) InsertDiscount(ctx context.Context, conn *gorm.DB, discount *domain.AppliedDiscount) error {
	return conn.WithContext(ctx).Create(discount).Error
}

func (r *repo) ListDiscounts(ctx context.Context, conn *gorm.DB, orderID snowflake.ID) ([]domain.AppliedDiscount, error) {
	var discounts []domain.AppliedDiscount
	err := conn.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&discounts).Error
	return discounts, err
}

func (r *repo) InsertSplitBills(ctx context.Context, conn *gorm.DB, bills []domain.SplitBill) error {
	if len(bills) == 0 {
		return nil
	}
	return conn.WithContext(ctx).Create(&bills).Error
}

func (r *repo) FindSplitBill(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.SplitBill, error) {
	var bill domain.SplitBill
	err := conn.WithContext(ctx).Where("id = ?", id).Take(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repo) ListSplitBills(ctx context.Context, conn *gorm.DB, orderID snowflake.ID) ([]domain.SplitBill, error) {
	var bills []domain.SplitBill
	err := conn.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&bills).Error
	return bills, err
}

func (r *repo) UpdateSplitBill(ctx context.Context, conn *gorm.DB, bill *domain.SplitBill) error {
	return conn.WithContext(ctx).Save(bill).Error
}

func (r *repo) InsertPayment(ctx context.Context, conn *gorm.DB, payment *domain.Payment) error {
	return conn.WithContext(ctx).Create(payment).Error
}

func (r *repo) ListPayments(ctx context.Context, conn *gorm.DB, orderID snowflake.ID) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := conn.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&payments).Error
	return payments, err
}
