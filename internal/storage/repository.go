package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"subtrack/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable subscription store.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Add implements store.Store. Missing or already used IDs are replaced
// with a fresh UUID.
func (r *SQLiteRepository) Add(ctx context.Context, sub *core.Subscription) error {
	if sub.ID != "" {
		exists, err := r.queries.IDExists(ctx, sub.ID)
		if err != nil {
			return fmt.Errorf("check subscription id: %w", err)
		}
		if exists {
			sub.ID = ""
		}
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	err := r.queries.CreateSubscription(ctx, CreateSubscriptionParams{
		ID:              sub.ID,
		Name:            sub.Name,
		Cost:            sub.Cost,
		Currency:        sub.Currency,
		BillingCycle:    string(sub.BillingCycle),
		Category:        sub.Category,
		Status:          string(sub.Status),
		StartDate:       formatTime(sub.StartDate),
		CreatedAt:       formatTime(sub.CreatedAt),
		UpdatedAt:       nullTime(sub.UpdatedAt),
		CancelledAt:     nullTime(sub.CancelledAt),
		SourceMessageID: sub.SourceMessageID,
	})
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	slog.DebugContext(ctx, "Subscription saved to SQLite",
		"id", sub.ID,
		"name", sub.Name,
		"cost", sub.Cost)
	return nil
}

// ListAll implements store.Store
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Subscription, error) {
	rows, err := r.queries.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	out := make([]core.Subscription, 0, len(rows))
	for _, row := range rows {
		sub, err := row.toCore()
		if err != nil {
			return nil, fmt.Errorf("decode subscription %s: %w", row.ID, err)
		}
		out = append(out, sub)
	}
	return out, nil
}

// Get implements store.Store
func (r *SQLiteRepository) Get(ctx context.Context, identifier string) (core.Subscription, bool, error) {
	row, ok, err := r.resolve(ctx, r.queries, identifier)
	if err != nil || !ok {
		return core.Subscription{}, false, err
	}
	sub, err := row.toCore()
	if err != nil {
		return core.Subscription{}, false, fmt.Errorf("decode subscription %s: %w", row.ID, err)
	}
	return sub, true, nil
}

// Update implements store.Store. The read and write share one transaction.
func (r *SQLiteRepository) Update(ctx context.Context, identifier string, patch core.Patch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	row, ok, err := r.resolve(ctx, q, identifier)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	sub, err := row.toCore()
	if err != nil {
		return fmt.Errorf("decode subscription %s: %w", row.ID, err)
	}
	patch.Apply(&sub, r.now())

	err = q.UpdateSubscription(ctx, UpdateSubscriptionParams{
		Name:         sub.Name,
		Cost:         sub.Cost,
		Currency:     sub.Currency,
		BillingCycle: string(sub.BillingCycle),
		Category:     sub.Category,
		Status:       string(sub.Status),
		UpdatedAt:    nullTime(sub.UpdatedAt),
		CancelledAt:  nullTime(sub.CancelledAt),
		ID:           sub.ID,
	})
	if err != nil {
		return fmt.Errorf("update subscription %s: %w", sub.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}

	slog.InfoContext(ctx, "Subscription updated", "id", sub.ID, "status", sub.Status)
	return nil
}

func (r *SQLiteRepository) resolve(ctx context.Context, q *Queries, identifier string) (SubscriptionRow, bool, error) {
	row, err := q.GetSubscriptionByID(ctx, identifier)
	if err == nil {
		return row, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return SubscriptionRow{}, false, fmt.Errorf("get subscription by id: %w", err)
	}
	id, err := q.FindSubscriptionIDByName(ctx, identifier)
	if errors.Is(err, sql.ErrNoRows) {
		return SubscriptionRow{}, false, nil
	}
	if err != nil {
		return SubscriptionRow{}, false, fmt.Errorf("find subscription by name: %w", err)
	}
	row, err = q.GetSubscriptionByID(ctx, id)
	if err != nil {
		return SubscriptionRow{}, false, fmt.Errorf("get subscription %s: %w", id, err)
	}
	return row, true, nil
}

func (row SubscriptionRow) toCore() (core.Subscription, error) {
	start, err := parseTime(row.StartDate)
	if err != nil {
		return core.Subscription{}, err
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Subscription{}, err
	}
	updated, err := parseNullTime(row.UpdatedAt)
	if err != nil {
		return core.Subscription{}, err
	}
	cancelled, err := parseNullTime(row.CancelledAt)
	if err != nil {
		return core.Subscription{}, err
	}
	return core.Subscription{
		ID:              row.ID,
		Name:            row.Name,
		Cost:            row.Cost,
		Currency:        row.Currency,
		BillingCycle:    core.BillingCycle(row.BillingCycle),
		Category:        row.Category,
		Status:          core.Status(row.Status),
		StartDate:       start,
		CreatedAt:       created,
		UpdatedAt:       updated,
		CancelledAt:     cancelled,
		SourceMessageID: row.SourceMessageID,
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
