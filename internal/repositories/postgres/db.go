// Package postgres implements the repository interfaces on a relational store
// using gorm. The order-creation transaction lives here; it is the only place
// in the system with a multi-row atomicity requirement.
package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sokoline/api/internal/domain"
)

// Config carries Postgres connection parameters.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the config as a libpq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Open connects to Postgres and configures the connection pool.
func Open(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrate creates the schema. pgcrypto provides gen_random_uuid for primary
// keys.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("postgres: enable pgcrypto: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(
		&domain.Category{},
		&domain.Product{},
		&domain.Warehouse{},
		&domain.Inventory{},
		&domain.User{},
		&domain.Cart{},
		&domain.CartItem{},
		&domain.Order{},
		&domain.OrderItem{},
		&domain.OrderTracking{},
		&domain.Return{},
		&domain.GiftCard{},
	); err != nil {
		return fmt.Errorf("postgres: automigrate: %w", err)
	}

	if err := db.WithContext(ctx).Exec(
		`ALTER TABLE inventories DROP CONSTRAINT IF EXISTS chk_inventories_stock_nonnegative`,
	).Error; err != nil {
		return fmt.Errorf("postgres: drop stock check: %w", err)
	}
	if err := db.WithContext(ctx).Exec(
		`ALTER TABLE inventories ADD CONSTRAINT chk_inventories_stock_nonnegative CHECK (stock >= 0)`,
	).Error; err != nil {
		return fmt.Errorf("postgres: add stock check: %w", err)
	}

	return nil
}
