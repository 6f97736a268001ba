package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/LeventeLantos/rental-messaging/internal/model"
)

type PostgresSettingsRepo struct {
	db *sql.DB
}

func NewPostgresSettingsRepo(db *sql.DB) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{db: db}
}

func (r *PostgresSettingsRepo) LoadReminderSettings(ctx context.Context) (model.ReminderSettings, error) {
	var raw []byte
	var s model.ReminderSettings
	err := r.db.QueryRowContext(ctx, `
		SELECT value, updated_at FROM reminder_settings WHERE id = 1
	`).Scan(&raw, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReminderSettings{}, ErrNotFound
	}
	if err != nil {
		return model.ReminderSettings{}, err
	}

	updatedAt := s.UpdatedAt
	if err := json.Unmarshal(raw, &s); err != nil {
		return model.ReminderSettings{}, err
	}
	s.UpdatedAt = updatedAt
	return s, nil
}

func (r *PostgresSettingsRepo) CreateReminderSettings(ctx context.Context, s model.ReminderSettings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	// A concurrent creator may have won; keep its row.
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO reminder_settings (id, value, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO NOTHING
	`, raw)
	return err
}

func (r *PostgresSettingsRepo) UpdateReminderSettings(ctx context.Context, s model.ReminderSettings, changedBy string) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var previous []byte
	err = tx.QueryRowContext(ctx, `
		SELECT value FROM reminder_settings WHERE id = 1 FOR UPDATE
	`).Scan(&previous)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	default:
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reminder_settings_history (previous, changed_by)
			VALUES ($1, $2)
		`, previous, changedBy); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO reminder_settings (id, value, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, raw); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PostgresSettingsRepo) LoadContactSettings(ctx context.Context) (model.ContactSettings, error) {
	var c model.ContactSettings
	err := r.db.QueryRowContext(ctx, `
		SELECT office_name, office_phone, office_email FROM contact_settings WHERE id = 1
	`).Scan(&c.OfficeName, &c.OfficePhone, &c.OfficeEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ContactSettings{}, ErrNotFound
	}
	return c, err
}
