package storage

import (
	"context"
	"database/sql"

	"subtrack/internal/core"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// SubscriptionRow mirrors the subscriptions table.
type SubscriptionRow struct {
	Seq             int64
	ID              string
	Name            string
	Cost            float64
	Currency        string
	BillingCycle    string
	Category        string
	Status          string
	StartDate       string
	CreatedAt       string
	UpdatedAt       sql.NullString
	CancelledAt     sql.NullString
	SourceMessageID string
}

const subscriptionColumns = `seq, id, name, cost, currency, billing_cycle, category, status,
       start_date, created_at, updated_at, cancelled_at, source_message_id`

func scanSubscription(row interface{ Scan(...any) error }) (SubscriptionRow, error) {
	var i SubscriptionRow
	err := row.Scan(
		&i.Seq,
		&i.ID,
		&i.Name,
		&i.Cost,
		&i.Currency,
		&i.BillingCycle,
		&i.Category,
		&i.Status,
		&i.StartDate,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.CancelledAt,
		&i.SourceMessageID,
	)
	return i, err
}

const idExists = `SELECT EXISTS(SELECT 1 FROM subscriptions WHERE id = ?)`

func (q *Queries) IDExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, idExists, id).Scan(&exists)
	return exists, err
}

const createSubscription = `INSERT INTO subscriptions (
    id, name, cost, currency, billing_cycle, category, status,
    start_date, created_at, updated_at, cancelled_at, source_message_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateSubscriptionParams struct {
	ID              string
	Name            string
	Cost            float64
	Currency        string
	BillingCycle    string
	Category        string
	Status          string
	StartDate       string
	CreatedAt       string
	UpdatedAt       sql.NullString
	CancelledAt     sql.NullString
	SourceMessageID string
}

func (q *Queries) CreateSubscription(ctx context.Context, arg CreateSubscriptionParams) error {
	_, err := q.db.ExecContext(ctx, createSubscription,
		arg.ID,
		arg.Name,
		arg.Cost,
		arg.Currency,
		arg.BillingCycle,
		arg.Category,
		arg.Status,
		arg.StartDate,
		arg.CreatedAt,
		arg.UpdatedAt,
		arg.CancelledAt,
		arg.SourceMessageID,
	)
	return err
}

const listSubscriptions = `SELECT ` + subscriptionColumns + ` FROM subscriptions ORDER BY seq`

func (q *Queries) ListSubscriptions(ctx context.Context) ([]SubscriptionRow, error) {
	rows, err := q.db.QueryContext(ctx, listSubscriptions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SubscriptionRow
	for rows.Next() {
		i, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getSubscriptionByID = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = ?`

func (q *Queries) GetSubscriptionByID(ctx context.Context, id string) (SubscriptionRow, error) {
	return scanSubscription(q.db.QueryRowContext(ctx, getSubscriptionByID, id))
}

const listSubscriptionNames = `SELECT id, name FROM subscriptions ORDER BY seq`

// FindSubscriptionIDByName returns the ID of the oldest subscription whose
// name matches. Names are compared in Go because SQLite's lower() only folds
// ASCII. sql.ErrNoRows means no match.
func (q *Queries) FindSubscriptionIDByName(ctx context.Context, name string) (string, error) {
	rows, err := q.db.QueryContext(ctx, listSubscriptionNames)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	for rows.Next() {
		var id, candidate string
		if err := rows.Scan(&id, &candidate); err != nil {
			return "", err
		}
		if core.SameName(candidate, name) {
			return id, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return "", sql.ErrNoRows
}

const updateSubscription = `UPDATE subscriptions
SET name = ?, cost = ?, currency = ?, billing_cycle = ?, category = ?, status = ?,
    updated_at = ?, cancelled_at = ?
WHERE id = ?`

type UpdateSubscriptionParams struct {
	Name         string
	Cost         float64
	Currency     string
	BillingCycle string
	Category     string
	Status       string
	UpdatedAt    sql.NullString
	CancelledAt  sql.NullString
	ID           string
}

func (q *Queries) UpdateSubscription(ctx context.Context, arg UpdateSubscriptionParams) error {
	_, err := q.db.ExecContext(ctx, updateSubscription,
		arg.Name,
		arg.Cost,
		arg.Currency,
		arg.BillingCycle,
		arg.Category,
		arg.Status,
		arg.UpdatedAt,
		arg.CancelledAt,
		arg.ID,
	)
	return err
}
