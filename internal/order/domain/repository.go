package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists the order aggregate. Every method runs on the handle it
// is given so callers control the transaction. Find methods return nil, nil
// when the row does not exist.
type Repository interface {
	InsertOrder(ctx context.Context, db *gorm.DB, order *Order) error
	FindOrder(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindOrderForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	UpdateOrder(ctx context.Context, db *gorm.DB, order *Order) error

	InsertItem(ctx context.Context, db *gorm.DB, item *OrderItem) error
	FindItem(ctx context.Context, db *gorm.DB, orderID, itemID snowflake.ID) (*OrderItem, error)
	ListItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]OrderItem, error)
	ListItemsByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]OrderItem, error)
	UpdateItem(ctx context.Context, db *gorm.DB, item *OrderItem) error

	InsertDiscount(ctx context.Context, db *gorm.DB, discount *AppliedDiscount) error
	ListDiscounts(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]AppliedDiscount, error)

	InsertSplitBills(ctx context.Context, db *gorm.DB, bills []SplitBill) error
	FindSplitBill(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SplitBill, error)
	ListSplitBills(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]SplitBill, error)
	UpdateSplitBill(ctx context.Context, db *gorm.DB, bill *SplitBill) error

	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) error
	ListPayments(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]Payment, error)
}
