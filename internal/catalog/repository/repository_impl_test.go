package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/dinein/internal/catalog/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:catalog_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Outlet{}, &domain.MenuItem{}))
	return db
}

func TestGetMenuItemSkipsInactive(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, db.Create(&domain.MenuItem{ID: 1, OutletID: 9, Name: "Nasi Goreng", Price: decimal.NewFromInt(45), IsActive: true}).Error)
	require.NoError(t, db.Create(&domain.MenuItem{ID: 2, OutletID: 9, Name: "Retired", Price: decimal.NewFromInt(10), IsActive: false}).Error)

	lookup := Provide()

	item, err := lookup.GetMenuItem(ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, "Nasi Goreng", item.Name)
	assert.True(t, decimal.NewFromInt(45).Equal(item.Price))

	_, err = lookup.GetMenuItem(ctx, db, 2)
	assert.ErrorIs(t, err, domain.ErrMenuItemNotFound)
}

func TestGetOutlet(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, db.Create(&domain.Outlet{ID: 9, Name: "Senopati", TaxRate: decimal.NewFromInt(11), ServiceChargeRate: decimal.NewFromInt(5)}).Error)

	outlet, err := Provide().GetOutlet(ctx, db, 9)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(11).Equal(outlet.TaxRate))

	_, err = Provide().GetOutlet(ctx, db, 10)
	assert.ErrorIs(t, err, domain.ErrOutletNotFound)
}
