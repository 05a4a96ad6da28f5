package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/dinein/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/dinein/internal/catalog/domain"
	kdsdomain "github.com/smallbiznis/dinein/internal/kds/domain"
	orderdomain "github.com/smallbiznis/dinein/internal/order/domain"
	scheduledomain "github.com/smallbiznis/dinein/internal/schedule/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded postgres schema.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every persisted type, in dependency order.
func Models() []any {
	return []any{
		&catalogdomain.Outlet{},
		&catalogdomain.MenuItem{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&orderdomain.AppliedDiscount{},
		&orderdomain.SplitBill{},
		&orderdomain.Payment{},
		&kdsdomain.Station{},
		&kdsdomain.RoutingRule{},
		&kdsdomain.Ticket{},
		&kdsdomain.TicketItem{},
		&scheduledomain.Shift{},
		&auditdomain.AuditLog{},
	}
}

// Migrate brings the schema up to date. Postgres uses the versioned SQL
// files; mysql and sqlite, used for local runs, are auto-migrated from the
// models.
func Migrate(conn *gorm.DB) error {
	if conn.Dialector.Name() != "postgres" {
		return conn.AutoMigrate(Models()...)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}
