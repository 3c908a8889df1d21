package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Dates are kept as ISO text in both dialects so eligibility predicates compare lexicographically.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS study_halls (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL UNIQUE,
        capacity INTEGER NOT NULL,
        location TEXT NOT NULL,
        description TEXT,
        created_at TIMESTAMP NOT NULL,
        updated_at TIMESTAMP NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS students (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        cabin TEXT NOT NULL,
        hall TEXT NOT NULL,
        phone TEXT NOT NULL,
        fee_paid BIGINT NOT NULL DEFAULT 0,
        fee_due BIGINT NOT NULL DEFAULT 0,
        status TEXT NOT NULL DEFAULT 'Paid',
        join_date TEXT NOT NULL,
        left_date TEXT,
        monthly_fee BIGINT NOT NULL DEFAULT 0,
        last_fee_calculated_date TEXT,
        created_at TIMESTAMP NOT NULL,
        updated_at TIMESTAMP NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_students_hall ON students (hall)`,
	`CREATE INDEX IF NOT EXISTS idx_students_accrual ON students (monthly_fee, last_fee_calculated_date)`,
}

// Migrate creates the tables the record store needs when they are missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
