package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/dinein/internal/money"
	"gorm.io/datatypes"
)

// Order is a dine-in check opened for one table. The monetary fields are
// only ever written from money.Recompute.
type Order struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	OutletID      snowflake.ID    `json:"outlet_id" gorm:"not null;index"`
	TableRef      string          `json:"table_ref" gorm:"type:text;not null"`
	Status        OrderStatus     `json:"status" gorm:"type:text;not null"`
	PaymentStatus PaymentStatus   `json:"payment_status" gorm:"type:text;not null"`
	Subtotal      decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	Discount      decimal.Decimal `json:"discount" gorm:"type:numeric(12,2);not null"`
	TaxAmount     decimal.Decimal `json:"tax_amount" gorm:"type:numeric(12,2);not null"`
	ServiceCharge decimal.Decimal `json:"service_charge" gorm:"type:numeric(12,2);not null"`
	Tip           decimal.Decimal `json:"tip" gorm:"type:numeric(12,2);not null"`
	Total         decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
	OpenedBy      string          `json:"opened_by" gorm:"type:text;not null"`
	ClosedBy      *string         `json:"closed_by,omitempty" gorm:"type:text"`
	VoidReason    *string         `json:"void_reason,omitempty" gorm:"type:text"`
	OpenedAt      time.Time       `json:"opened_at" gorm:"not null"`
	ClosedAt      *time.Time      `json:"closed_at,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

// ApplyTotals copies recomputed totals onto the order.
func (o *Order) ApplyTotals(t money.Totals) {
	o.Subtotal = t.Subtotal
	o.Discount = t.Discount
	o.TaxAmount = t.TaxAmount
	o.ServiceCharge = t.ServiceCharge
	o.Tip = t.Tip
	o.Total = t.Total
}

type OrderItem struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrderID         snowflake.ID    `json:"order_id" gorm:"not null;index"`
	MenuItemID      snowflake.ID    `json:"menu_item_id" gorm:"not null"`
	CategoryID      *snowflake.ID   `json:"category_id,omitempty"`
	Name            string          `json:"name" gorm:"type:text;not null"`
	Quantity        int             `json:"quantity" gorm:"not null"`
	UnitPrice       decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	TotalPrice      decimal.Decimal `json:"total_price" gorm:"type:numeric(12,2);not null"`
	Status          ItemStatus      `json:"status" gorm:"type:text;not null"`
	SeatNumber      *int            `json:"seat_number,omitempty"`
	CourseNumber    *int            `json:"course_number,omitempty"`
	CourseType      *string         `json:"course_type,omitempty" gorm:"type:text"`
	Modifiers       datatypes.JSON  `json:"modifiers,omitempty"`
	Notes           *string         `json:"notes,omitempty" gorm:"type:text"`
	SentToKitchenAt *time.Time      `json:"sent_to_kitchen_at,omitempty"`
	PreparedAt      *time.Time      `json:"prepared_at,omitempty"`
	ServedAt        *time.Time      `json:"served_at,omitempty"`
	VoidedAt        *time.Time      `json:"voided_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"not null"`
}

func (OrderItem) TableName() string { return "order_items" }

type AppliedDiscount struct {
	ID               snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrderID          snowflake.ID    `json:"order_id" gorm:"not null;index"`
	Name             string          `json:"name" gorm:"type:text;not null"`
	Type             DiscountType    `json:"type" gorm:"type:text;not null"`
	Value            decimal.Decimal `json:"value" gorm:"type:numeric(12,2);not null"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	AppliedBy        string          `json:"applied_by" gorm:"type:text;not null"`
	RequiresApproval bool            `json:"requires_approval" gorm:"not null"`
	ApprovedBy       *string         `json:"approved_by,omitempty" gorm:"type:text"`
	CreatedAt        time.Time       `json:"created_at" gorm:"not null"`
}

func (AppliedDiscount) TableName() string { return "order_discounts" }

type SplitBill struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrderID   snowflake.ID    `json:"order_id" gorm:"not null;index"`
	Label     string          `json:"label" gorm:"type:text;not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	IsPaid    bool            `json:"is_paid" gorm:"not null"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
}

func (SplitBill) TableName() string { return "split_bills" }

type Payment struct {
	ID          snowflake.ID        `json:"id" gorm:"primaryKey"`
	OrderID     snowflake.ID        `json:"order_id" gorm:"not null;index"`
	SplitBillID *snowflake.ID       `json:"split_bill_id,omitempty"`
	Method      PaymentMethod       `json:"method" gorm:"type:text;not null"`
	Amount      decimal.Decimal     `json:"amount" gorm:"type:numeric(12,2);not null"`
	TipAmount   decimal.Decimal     `json:"tip_amount" gorm:"type:numeric(12,2);not null"`
	Status      PaymentRecordStatus `json:"status" gorm:"type:text;not null"`
	ProcessedBy string              `json:"processed_by" gorm:"type:text;not null"`
	ProcessedAt time.Time           `json:"processed_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// Lines adapts order items for the money engine.
func Lines(items []OrderItem) []money.Line {
	lines := make([]money.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, money.Line{
			TotalPrice: item.TotalPrice,
			Void:       item.Status == ItemStatusVoid,
		})
	}
	return lines
}

// DiscountAmounts returns the fixed amount of every applied discount.
func DiscountAmounts(discounts []AppliedDiscount) []decimal.Decimal {
	amounts := make([]decimal.Decimal, 0, len(discounts))
	for _, d := range discounts {
		amounts = append(amounts, d.Amount)
	}
	return amounts
}
