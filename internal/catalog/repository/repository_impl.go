package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dinein/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Lookup {
	return &repo{}
}

func (r *repo) GetOutlet(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Outlet, error) {
	var outlet domain.Outlet
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, tax_rate, service_charge_rate
		 FROM outlets
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&outlet).Error
	if err != nil {
		return nil, err
	}
	if outlet.ID == 0 {
		return nil, domain.ErrOutletNotFound
	}
	return &outlet, nil
}

// GetMenuItem treats inactive menu items as absent.
func (r *repo) GetMenuItem(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.MenuItem, error) {
	var item domain.MenuItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, outlet_id, category_id, name, price, is_active
		 FROM menu_items
		 WHERE id = ? AND is_active = ?
		 LIMIT 1`,
		id,
		true,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, domain.ErrMenuItemNotFound
	}
	return &item, nil
}
