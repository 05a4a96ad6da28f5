package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Outlet is the subset of a restaurant location the order engine reads.
type Outlet struct {
	ID                snowflake.ID    `json:"id" gorm:"primaryKey"`
	Name              string          `json:"name" gorm:"type:text;not null"`
	TaxRate           decimal.Decimal `json:"tax_rate" gorm:"type:numeric(5,2);not null"`
	ServiceChargeRate decimal.Decimal `json:"service_charge_rate" gorm:"type:numeric(5,2);not null"`
}

func (Outlet) TableName() string { return "outlets" }

type MenuItem struct {
	ID         snowflake.ID    `json:"id" gorm:"primaryKey"`
	OutletID   snowflake.ID    `json:"outlet_id" gorm:"not null;index"`
	CategoryID *snowflake.ID   `json:"category_id,omitempty"`
	Name       string          `json:"name" gorm:"type:text;not null"`
	Price      decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	IsActive   bool            `json:"is_active" gorm:"not null"`
}

func (MenuItem) TableName() string { return "menu_items" }

var (
	ErrOutletNotFound   = errors.New("outlet_not_found")
	ErrMenuItemNotFound = errors.New("menu_item_not_found")
)

// Lookup reads outlet policy and menu prices. Outlets and menus are managed
// elsewhere; this package never writes them.
type Lookup interface {
	GetOutlet(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Outlet, error)
	GetMenuItem(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MenuItem, error)
}
