package repo

import (
	"context"
	"database/sql"

	"github.com/LeventeLantos/rental-messaging/internal/model"
)

type PostgresServiceRequestRepo struct {
	db *sql.DB
}

func NewPostgresServiceRequestRepo(db *sql.DB) *PostgresServiceRequestRepo {
	return &PostgresServiceRequestRepo{db: db}
}

func (r *PostgresServiceRequestRepo) Create(ctx context.Context, req model.ServiceRequest) (model.ServiceRequest, error) {
	if req.Status == "" {
		req.Status = model.RequestOpen
	}
	var customerID sql.NullInt64
	if req.CustomerID != 0 {
		customerID = sql.NullInt64{Int64: req.CustomerID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO service_requests (kind, customer_id, customer_name, phone, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, string(req.Kind), customerID, req.CustomerName, req.Phone, req.Description, string(req.Status),
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return model.ServiceRequest{}, err
	}
	return req, nil
}

func (r *PostgresServiceRequestRepo) ListOpen(ctx context.Context, customerID int64, phone string, kinds []model.RequestKind) ([]model.ServiceRequest, error) {
	ks := make([]string, 0, len(kinds))
	for _, k := range kinds {
		ks = append(ks, string(k))
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, COALESCE(customer_id, 0), customer_name, phone, description, status, created_at
		FROM service_requests
		WHERE status IN ('open', 'in_progress')
		  AND kind = ANY($3)
		  AND (($1 <> 0 AND customer_id = $1) OR ($1 = 0 AND phone = $2))
		ORDER BY created_at DESC
		LIMIT 20
	`, customerID, phone, ks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ServiceRequest
	for rows.Next() {
		var sr model.ServiceRequest
		var kind, status string
		if err := rows.Scan(
			&sr.ID,
			&kind,
			&sr.CustomerID,
			&sr.CustomerName,
			&sr.Phone,
			&sr.Description,
			&status,
			&sr.CreatedAt,
		); err != nil {
			return nil, err
		}
		sr.Kind = model.RequestKind(kind)
		sr.Status = model.RequestStatus(status)
		out = append(out, sr)
	}
	return out, rows.Err()
}
