package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`CREATE TABLE IF NOT EXISTS workers (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		internal_sku VARCHAR(128) NOT NULL,
		supplier_sku VARCHAR(128),
		name VARCHAR(255) NOT NULL,
		unit VARCHAR(16) NOT NULL,
		purchase_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		retail_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		stock_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
		min_stock_level DOUBLE PRECISION NOT NULL DEFAULT 0,
		is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_products_internal_sku ON products (internal_sku);`,
	`CREATE INDEX IF NOT EXISTS idx_products_name ON products (name);`,
	`CREATE TABLE IF NOT EXISTS estimates (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		estimate_number VARCHAR(64) NOT NULL,
		client_name VARCHAR(255) NOT NULL,
		location TEXT,
		status VARCHAR(32) NOT NULL DEFAULT 'DRAFT',
		worker_id UUID REFERENCES workers(id),
		shipped_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_estimates_status ON estimates (status);`,
	`CREATE TABLE IF NOT EXISTS estimate_items (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		estimate_id UUID NOT NULL REFERENCES estimates(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products(id),
		position INTEGER NOT NULL DEFAULT 0,
		quantity DOUBLE PRECISION NOT NULL,
		unit_price DOUBLE PRECISION NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_estimate_items_estimate_id ON estimate_items (estimate_id, position);`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		contract_number VARCHAR(64) NOT NULL,
		contract_date DATE NOT NULL,
		contract_type VARCHAR(32) NOT NULL DEFAULT 'DRILLING',
		client_name VARCHAR(255) NOT NULL,
		location TEXT NOT NULL,
		passport_series_number VARCHAR(64),
		passport_issued_by TEXT,
		passport_issue_date VARCHAR(32),
		passport_dep_code VARCHAR(32),
		passport_address TEXT,
		estimated_depth DOUBLE PRECISION,
		price_per_meter_soil DOUBLE PRECISION,
		price_per_meter_rock DOUBLE PRECISION,
		actual_depth_soil DOUBLE PRECISION,
		actual_depth_rock DOUBLE PRECISION,
		pipe_steel_used DOUBLE PRECISION,
		pipe_plastic_used DOUBLE PRECISION,
		min_price DOUBLE PRECISION,
		status VARCHAR(32) NOT NULL DEFAULT 'PLANNED',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts (status);`,
	`CREATE TABLE IF NOT EXISTS stock_movements (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		product_id UUID NOT NULL REFERENCES products(id),
		worker_id UUID REFERENCES workers(id),
		quantity DOUBLE PRECISION NOT NULL,
		kind VARCHAR(32) NOT NULL,
		reversed_kind VARCHAR(32) NOT NULL DEFAULT '',
		stock_after DOUBLE PRECISION NOT NULL DEFAULT 0,
		reverses_movement_id UUID REFERENCES stock_movements(id),
		estimate_id UUID REFERENCES estimates(id) ON DELETE SET NULL,
		contract_id UUID REFERENCES contracts(id) ON DELETE SET NULL,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_stock_movements_cancellation CHECK ((kind = 'CANCELLATION') = (reversed_kind <> ''))
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_stock_movements_reverses ON stock_movements (reverses_movement_id) WHERE reverses_movement_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_stock_movements_product ON stock_movements (product_id, kind);`,
	`CREATE INDEX IF NOT EXISTS idx_stock_movements_worker_product ON stock_movements (worker_id, product_id) WHERE worker_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_stock_movements_occurred_at ON stock_movements (occurred_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_stock_movements_estimate ON stock_movements (estimate_id) WHERE estimate_id IS NOT NULL;`,
}

// Migrate applies the idempotent schema statements in order.
func Migrate(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
