package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/model"
)

type PostgresCustomerRepo struct {
	db *sql.DB
}

func NewPostgresCustomerRepo(db *sql.DB) *PostgresCustomerRepo {
	return &PostgresCustomerRepo{db: db}
}

func (r *PostgresCustomerRepo) GetByID(ctx context.Context, id int64) (model.Customer, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, language
		FROM customers
		WHERE id = $1
	`, id)
	return scanCustomer(row)
}

func (r *PostgresCustomerRepo) FindByPhones(ctx context.Context, phones []string) (model.Customer, error) {
	if len(phones) == 0 {
		return model.Customer{}, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, language
		FROM customers
		WHERE phone = ANY($1)
		ORDER BY id ASC
		LIMIT 1
	`, phones)
	return scanCustomer(row)
}

func scanCustomer(row *sql.Row) (model.Customer, error) {
	var c model.Customer
	var lang string
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &lang); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Customer{}, ErrNotFound
		}
		return model.Customer{}, err
	}
	c.Language = model.Language(lang)
	return c, nil
}

type PostgresPaymentRepo struct {
	db *sql.DB
}

func NewPostgresPaymentRepo(db *sql.DB) *PostgresPaymentRepo {
	return &PostgresPaymentRepo{db: db}
}

const paymentColumns = `
	p.id, p.contract_id, c.number, p.due_date, p.amount::float8, p.status,
	cu.id, cu.name, cu.phone, cu.email, cu.language
`

func (r *PostgresPaymentRepo) ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]model.Payment, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments p
		JOIN contracts c ON c.id = p.contract_id
		JOIN customers cu ON cu.id = c.renter_id
		WHERE p.status IN ('pending', 'overdue')
		  AND p.due_date < $1
		ORDER BY p.due_date ASC, p.id ASC
		LIMIT $2
	`, asOf, limit)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

func (r *PostgresPaymentRepo) ListPendingDueBetween(ctx context.Context, from, to time.Time) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments p
		JOIN contracts c ON c.id = p.contract_id
		JOIN customers cu ON cu.id = c.renter_id
		WHERE p.status = 'pending'
		  AND p.due_date >= $1
		  AND p.due_date < $2
		ORDER BY p.due_date ASC, p.id ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

func scanPayments(rows *sql.Rows) ([]model.Payment, error) {
	defer rows.Close()

	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		var status, lang string
		if err := rows.Scan(
			&p.ID,
			&p.ContractID,
			&p.ContractNumber,
			&p.DueDate,
			&p.Amount,
			&status,
			&p.Customer.ID,
			&p.Customer.Name,
			&p.Customer.Phone,
			&p.Customer.Email,
			&lang,
		); err != nil {
			return nil, err
		}
		p.Status = model.PaymentStatus(status)
		p.Customer.Language = model.Language(lang)
		out = append(out, p)
	}
	return out, rows.Err()
}

type PostgresContractRepo struct {
	db *sql.DB
}

func NewPostgresContractRepo(db *sql.DB) *PostgresContractRepo {
	return &PostgresContractRepo{db: db}
}

func (r *PostgresContractRepo) ListActiveEndingBetween(ctx context.Context, from, to time.Time) ([]model.Contract, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.number, c.end_date, c.status, c.total_value::float8, c.renter_id,
		       cu.id, cu.name, cu.phone, cu.email, cu.language
		FROM contracts c
		JOIN customers cu ON cu.id = c.renter_id
		WHERE c.status = 'active'
		  AND c.end_date >= $1
		  AND c.end_date < $2
		ORDER BY c.end_date ASC, c.id ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Contract
	for rows.Next() {
		var c model.Contract
		var status, lang string
		if err := rows.Scan(
			&c.ID,
			&c.Number,
			&c.EndDate,
			&status,
			&c.TotalValue,
			&c.RenterID,
			&c.Renter.ID,
			&c.Renter.Name,
			&c.Renter.Phone,
			&c.Renter.Email,
			&lang,
		); err != nil {
			return nil, err
		}
		c.Status = model.ContractStatus(status)
		c.Renter.Language = model.Language(lang)
		out = append(out, c)
	}
	return out, rows.Err()
}
