// Package testsupport holds fixtures shared by package tests.
package testsupport

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/dinein/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/dinein/internal/catalog/domain"
	orderdomain "github.com/smallbiznis/dinein/internal/order/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory SQLite database with the order, catalog
// and audit tables plus any extra models. A single connection keeps every
// transaction on the same handle.
func NewDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	base := []any{
		&catalogdomain.Outlet{},
		&catalogdomain.MenuItem{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&orderdomain.AppliedDiscount{},
		&orderdomain.SplitBill{},
		&orderdomain.Payment{},
		&auditdomain.AuditLog{},
	}
	require.NoError(t, db.AutoMigrate(append(base, models...)...))
	return db
}

func Node(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

// SeedOutlet inserts an outlet with the given percentage rates.
func SeedOutlet(t *testing.T, db *gorm.DB, id snowflake.ID, taxRate, serviceRate string) catalogdomain.Outlet {
	t.Helper()
	outlet := catalogdomain.Outlet{
		ID:                id,
		Name:              "Outlet " + id.String(),
		TaxRate:           decimal.RequireFromString(taxRate),
		ServiceChargeRate: decimal.RequireFromString(serviceRate),
	}
	require.NoError(t, db.Create(&outlet).Error)
	return outlet
}

func SeedMenuItem(t *testing.T, db *gorm.DB, id, outletID snowflake.ID, categoryID *snowflake.ID, name, price string) catalogdomain.MenuItem {
	t.Helper()
	item := catalogdomain.MenuItem{
		ID:         id,
		OutletID:   outletID,
		CategoryID: categoryID,
		Name:       name,
		Price:      decimal.RequireFromString(price),
		IsActive:   true,
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}
