package db

import (
	"context"
	"fmt"
)

// assignments の「資産ごとに貸出中は1件まで」は部分ユニーク制約で担保する。
// MySQL には部分インデックスが無いので、status='assigned' の時だけ asset_id を持つ
// 生成列に UNIQUE を張る（NULL は重複扱いにならない）。

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		code VARCHAR(20) NOT NULL UNIQUE,
		is_active TINYINT(1) NOT NULL DEFAULT 1
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS employees (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(150) NOT NULL,
		email VARCHAR(255) NULL,
		department VARCHAR(100) NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS auth_accounts (
		id VARCHAR(64) PRIMARY KEY,
		employee_id BIGINT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL DEFAULT 'user',
		is_disabled TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		CONSTRAINT fk_accounts_employee FOREIGN KEY (employee_id) REFERENCES employees(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS assets (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(200) NOT NULL,
		asset_tag VARCHAR(50) NOT NULL,
		category_id BIGINT NULL,
		serial_number VARCHAR(100) NULL,
		model VARCHAR(100) NULL,
		manufacturer VARCHAR(100) NULL,
		description TEXT NULL,
		location VARCHAR(150) NULL,
		branch VARCHAR(100) NULL,
		purchase_date DATE NULL,
		purchase_cost DECIMAL(12,2) NULL,
		warranty_expiry DATE NULL,
		notes TEXT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'available',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_assets_tag (asset_tag),
		KEY idx_assets_status (status),
		CONSTRAINT fk_assets_category FOREIGN KEY (category_id) REFERENCES categories(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS assignments (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		assignment_ulid CHAR(26) NOT NULL,
		asset_id BIGINT NOT NULL,
		employee_id BIGINT NOT NULL,
		assigned_by BIGINT NOT NULL,
		assigned_date DATE NOT NULL,
		return_date DATE NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'assigned',
		return_condition VARCHAR(20) NULL,
		notes TEXT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		open_asset_id BIGINT AS (CASE WHEN status = 'assigned' THEN asset_id ELSE NULL END) STORED,
		UNIQUE KEY uq_assignments_ulid (assignment_ulid),
		UNIQUE KEY uq_assignments_open (open_asset_id),
		KEY idx_assignments_asset (asset_id),
		CONSTRAINT fk_assignments_asset FOREIGN KEY (asset_id) REFERENCES assets(id),
		CONSTRAINT fk_assignments_employee FOREIGN KEY (employee_id) REFERENCES employees(id),
		CONSTRAINT fk_assignments_assigned_by FOREIGN KEY (assigned_by) REFERENCES employees(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS asset_history (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		history_ulid CHAR(26) NOT NULL,
		asset_id BIGINT NOT NULL,
		employee_id BIGINT NULL,
		performed_by BIGINT NULL,
		action_type VARCHAR(20) NOT NULL,
		action_date DATETIME(6) NOT NULL,
		notes TEXT NULL,
		old_value TEXT NULL,
		new_value TEXT NULL,
		UNIQUE KEY uq_history_ulid (history_ulid),
		KEY idx_history_asset (asset_id, action_date),
		CONSTRAINT fk_history_asset FOREIGN KEY (asset_id) REFERENCES assets(id),
		CONSTRAINT fk_history_employee FOREIGN KEY (employee_id) REFERENCES employees(id),
		CONSTRAINT fk_history_performed_by FOREIGN KEY (performed_by) REFERENCES employees(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		code TEXT NOT NULL UNIQUE,
		is_active INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NULL,
		department TEXT NULL,
		is_active INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS auth_accounts (
		id TEXT PRIMARY KEY,
		employee_id INTEGER NULL REFERENCES employees(id),
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		is_disabled INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		asset_tag TEXT NOT NULL UNIQUE,
		category_id INTEGER NULL REFERENCES categories(id),
		serial_number TEXT NULL,
		model TEXT NULL,
		manufacturer TEXT NULL,
		description TEXT NULL,
		location TEXT NULL,
		branch TEXT NULL,
		purchase_date DATE NULL,
		purchase_cost REAL NULL,
		warranty_expiry DATE NULL,
		notes TEXT NULL,
		status TEXT NOT NULL DEFAULT 'available',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assets_status ON assets(status)`,
	`CREATE TABLE IF NOT EXISTS assignments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		assignment_ulid TEXT NOT NULL UNIQUE,
		asset_id INTEGER NOT NULL REFERENCES assets(id),
		employee_id INTEGER NOT NULL REFERENCES employees(id),
		assigned_by INTEGER NOT NULL REFERENCES employees(id),
		assigned_date DATE NOT NULL,
		return_date DATE NULL,
		status TEXT NOT NULL DEFAULT 'assigned',
		return_condition TEXT NULL,
		notes TEXT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_assignments_open ON assignments(asset_id) WHERE status = 'assigned'`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_asset ON assignments(asset_id)`,
	`CREATE TABLE IF NOT EXISTS asset_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		history_ulid TEXT NOT NULL UNIQUE,
		asset_id INTEGER NOT NULL REFERENCES assets(id),
		employee_id INTEGER NULL REFERENCES employees(id),
		performed_by INTEGER NULL REFERENCES employees(id),
		action_type TEXT NOT NULL,
		action_date DATETIME NOT NULL,
		notes TEXT NULL,
		old_value TEXT NULL,
		new_value TEXT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_asset ON asset_history(asset_id, action_date)`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, h *Handle) error {
	stmts := mysqlSchema
	if h.Dialect == SQLite {
		stmts = sqliteSchema
	}
	for i, q := range stmts {
		if _, err := h.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
