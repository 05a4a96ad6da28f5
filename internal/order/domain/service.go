package domain

import (
	"context"
	"encoding/json"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Service interface {
	OpenOrder(ctx context.Context, req OpenOrderRequest) (*Order, error)
	GetOrder(ctx context.Context, orderID snowflake.ID) (*OrderDetail, error)
	CloseOrder(ctx context.Context, orderID snowflake.ID, closedBy string) (*Order, error)
	VoidOrder(ctx context.Context, req VoidOrderRequest) (*Order, error)

	AddItem(ctx context.Context, req AddItemRequest) (*OrderItem, error)
	VoidItem(ctx context.Context, req VoidItemRequest) (*Order, error)

	ApplyDiscount(ctx context.Context, req ApplyDiscountRequest) (*ApplyDiscountResult, error)

	CreateSplitBills(ctx context.Context, req CreateSplitBillsRequest) ([]SplitBill, error)
	SplitEvenly(ctx context.Context, req SplitEvenlyRequest) ([]SplitBill, error)
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error)
}

type OpenOrderRequest struct {
	OutletID snowflake.ID `json:"outlet_id"`
	TableRef string       `json:"table_ref"`
	OpenedBy string       `json:"-"`
}

type OrderDetail struct {
	Order      Order             `json:"order"`
	Items      []OrderItem       `json:"items"`
	Discounts  []AppliedDiscount `json:"discounts"`
	SplitBills []SplitBill       `json:"split_bills"`
	Payments   []Payment         `json:"payments"`
}

type VoidOrderRequest struct {
	OrderID  snowflake.ID `json:"-"`
	VoidedBy string       `json:"-"`
	Reason   string       `json:"reason"`
}

type AddItemRequest struct {
	OrderID      snowflake.ID    `json:"-"`
	MenuItemID   snowflake.ID    `json:"menu_item_id"`
	Quantity     int             `json:"quantity"`
	SeatNumber   *int            `json:"seat_number,omitempty"`
	CourseNumber *int            `json:"course_number,omitempty"`
	CourseType   *string         `json:"course_type,omitempty"`
	Modifiers    json.RawMessage `json:"modifiers,omitempty"`
	Notes        *string         `json:"notes,omitempty"`
}

type VoidItemRequest struct {
	OrderID  snowflake.ID `json:"-"`
	ItemID   snowflake.ID `json:"-"`
	VoidedBy string       `json:"-"`
}

type ApplyDiscountRequest struct {
	OrderID          snowflake.ID    `json:"-"`
	Name             string          `json:"name"`
	Type             string          `json:"type"`
	Value            decimal.Decimal `json:"value"`
	AppliedBy        string          `json:"-"`
	RequiresApproval bool            `json:"requires_approval"`
	ApprovedBy       *string         `json:"approved_by,omitempty"`
}

type ApplyDiscountResult struct {
	Discount   AppliedDiscount `json:"discount"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

type SplitShare struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

type CreateSplitBillsRequest struct {
	OrderID snowflake.ID `json:"-"`
	Shares  []SplitShare `json:"shares"`
}

type SplitEvenlyRequest struct {
	OrderID snowflake.ID `json:"-"`
	Parts   int          `json:"parts"`
}

type RecordPaymentRequest struct {
	OrderID     snowflake.ID    `json:"-"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	TipAmount   decimal.Decimal `json:"tip_amount"`
	ProcessedBy string          `json:"-"`
	SplitBillID *snowflake.ID   `json:"split_bill_id,omitempty"`
}

type PaymentResult struct {
	Payment         Payment         `json:"payment"`
	TotalPaid       decimal.Decimal `json:"total_paid"`
	TotalTips       decimal.Decimal `json:"total_tips"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Order           Order           `json:"order"`
}
