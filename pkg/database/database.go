// Package database opens the gorm connection and keeps the schema migrated.
package database

import (
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/config"
)

// Open connects to the database selected by cfg.DBDriver and, when
// DB_AUTO_MIGRATE is on, migrates the schema.
func Open(cfg config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DBDSN)
	default:
		dialector = postgres.Open(cfg.DBDSN)
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", cfg.DBDriver, err)
	}
	if cfg.DBDriver == "sqlite" {
		// one writer at a time; sqlite locks the whole file anyway
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if cfg.DBAutoMigrate {
		Migrate(gdb)
	}
	return gdb, nil
}

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&models.Rt{},
		&models.Resident{},
		&models.ResidentFamilyMember{},
		&models.User{},
		&models.Contribution{},
		&models.CashExpense{},
		&models.MonthlyCashSummary{},
		&models.EventRecord{},
		&models.RefreshToken{},
		&models.PasswordResetToken{},
	}
}

// Migrate runs AutoMigrate per model so that a failure on one table does not
// block the others. Failures are logged as warnings and counted.
func Migrate(gdb *gorm.DB) int {
	failed := 0
	for _, m := range Models() {
		if err := gdb.AutoMigrate(m); err != nil {
			failed++
			name := fmt.Sprintf("%T", m)
			if stmt := (&gorm.Statement{DB: gdb}); stmt.Parse(m) == nil {
				name = stmt.Schema.Table
			}
			log.Printf("migration warning (%s): %v", name, err)
		}
	}
	return failed
}

// TableNames returns the application tables, children first, for tools that
// wipe data.
func TableNames(gdb *gorm.DB) []string {
	ms := Models()
	names := make([]string, 0, len(ms))
	for i := len(ms) - 1; i >= 0; i-- {
		stmt := &gorm.Statement{DB: gdb}
		if err := stmt.Parse(ms[i]); err != nil {
			continue
		}
		names = append(names, stmt.Schema.Table)
	}
	return names
}
