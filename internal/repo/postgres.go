package repo

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed schema.sql
var schemaSQL string

// OpenPostgres opens a pool through the pgx database/sql driver and pings it.
func OpenPostgres(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate creates missing tables and indexes. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func NewPostgresStore(db *sql.DB) Store {
	return Store{
		Customers:       NewPostgresCustomerRepo(db),
		Payments:        NewPostgresPaymentRepo(db),
		Contracts:       NewPostgresContractRepo(db),
		ServiceRequests: NewPostgresServiceRequestRepo(db),
		Deliveries:      NewPostgresDeliveryLogRepo(db),
		Settings:        NewPostgresSettingsRepo(db),
	}
}
