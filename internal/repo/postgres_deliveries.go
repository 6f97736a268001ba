package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/model"
)

type PostgresDeliveryLogRepo struct {
	db *sql.DB
}

func NewPostgresDeliveryLogRepo(db *sql.DB) *PostgresDeliveryLogRepo {
	return &PostgresDeliveryLogRepo{db: db}
}

func (r *PostgresDeliveryLogRepo) Create(ctx context.Context, e model.DeliveryLogEntry) (model.DeliveryLogEntry, error) {
	subject, err := model.MarshalSubject(e.Subject)
	if err != nil {
		return model.DeliveryLogEntry{}, err
	}
	if e.SentAt.IsZero() {
		e.SentAt = time.Now().UTC()
	}
	var customerID sql.NullInt64
	if e.CustomerID != nil {
		customerID = sql.NullInt64{Int64: *e.CustomerID, Valid: true}
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO delivery_logs (recipient_phone, customer_id, message_type, template_name,
		                           language_code, status, channel_message_id, last_error, subject, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, e.RecipientPhone, customerID, e.MessageType, e.TemplateName, e.LanguageCode,
		string(e.Status), e.ChannelMessageID, e.Error, subject, e.SentAt,
	).Scan(&e.ID)
	if err != nil {
		return model.DeliveryLogEntry{}, err
	}
	return e, nil
}

func (r *PostgresDeliveryLogRepo) Exists(ctx context.Context, recipient string, types []string, statuses []model.DeliveryStatus, from, to time.Time) (bool, error) {
	st := make([]string, 0, len(statuses))
	for _, s := range statuses {
		st = append(st, string(s))
	}

	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM delivery_logs
			WHERE recipient_phone = $1
			  AND message_type = ANY($2)
			  AND status = ANY($3)
			  AND sent_at >= $4
			  AND sent_at < $5
		)
	`, recipient, types, st, from, to).Scan(&exists)
	return exists, err
}

// UpdateStatus advances the status of entries sent as channelMessageID.
// Callbacks that would move a status backwards are ignored.
func (r *PostgresDeliveryLogRepo) UpdateStatus(ctx context.Context, channelMessageID string, status model.DeliveryStatus) error {
	from := make([]string, 0, 4)
	for _, s := range model.StatusesBefore(status) {
		from = append(from, string(s))
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE delivery_logs
		SET status = $2
		WHERE channel_message_id = $1
		  AND status = ANY($3)
	`, channelMessageID, string(status), from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM delivery_logs WHERE channel_message_id = $1)
	`, channelMessageID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresDeliveryLogRepo) LinkCustomer(ctx context.Context, phones []string, customerID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE delivery_logs
		SET customer_id = $2
		WHERE recipient_phone = ANY($1)
		  AND customer_id IS NULL
	`, phones, customerID)
	return err
}

func (r *PostgresDeliveryLogRepo) List(ctx context.Context, recipient string, limit, offset int) ([]model.DeliveryLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, recipient_phone, customer_id, message_type, template_name, language_code,
		       status, channel_message_id, last_error, subject, sent_at
		FROM delivery_logs
		WHERE ($1 = '' OR recipient_phone = $1)
		ORDER BY sent_at DESC
		LIMIT $2 OFFSET $3
	`, recipient, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DeliveryLogEntry
	for rows.Next() {
		var e model.DeliveryLogEntry
		var status string
		var customerID sql.NullInt64
		var subject []byte

		if err := rows.Scan(
			&e.ID,
			&e.RecipientPhone,
			&customerID,
			&e.MessageType,
			&e.TemplateName,
			&e.LanguageCode,
			&status,
			&e.ChannelMessageID,
			&e.Error,
			&subject,
			&e.SentAt,
		); err != nil {
			return nil, err
		}

		e.Status = model.DeliveryStatus(status)
		if customerID.Valid {
			id := customerID.Int64
			e.CustomerID = &id
		}
		if e.Subject, err = model.UnmarshalSubject(subject); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
