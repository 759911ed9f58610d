package repository

import (
	"context"
	"time"

	"life-assistant-bot/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type TransactionRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewTransactionRepository(pool PgxPool, tracer trace.Tracer) *TransactionRepository {
	return &TransactionRepository{pool: pool, tracer: tracer}
}

func (r *TransactionRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "transaction-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			category TEXT NOT NULL,
			amount BIGINT NOT NULL CHECK (amount >= 0),
			user_id TEXT NOT NULL,
			user_name TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('income', 'expense'))
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_type_date
			ON transactions (user_id, type, date);
	`)
	return err
}

// Insert appends one record with a server-side timestamp. Records are never
// updated or deleted.
func (r *TransactionRepository) Insert(ctx context.Context, t *domain.Transaction) error {
	_, span := r.tracer.Start(ctx, "transaction-repo.insert")
	defer span.End()

	row := r.pool.QueryRow(ctx,
		`INSERT INTO transactions (category, amount, user_id, user_name, type)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, date`,
		t.Category, t.Amount, t.UserID, t.UserName, string(t.Type),
	)
	return row.Scan(&t.ID, &t.Date)
}

// GroupedTotals returns per-category subtotals for one user, type and time
// window. The grand total is summed from the same grouped rows, so it always
// equals the sum of the subtotals.
func (r *TransactionRepository) GroupedTotals(
	ctx context.Context,
	userID string,
	from, to time.Time,
	typ domain.TransactionType,
) (domain.GroupedTotals, error) {
	_, span := r.tracer.Start(ctx, "transaction-repo.grouped-totals")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT category, SUM(amount)
		 FROM transactions
		 WHERE user_id = $1 AND type = $2 AND date >= $3 AND date < $4
		 GROUP BY category`,
		userID, string(typ), from, to,
	)
	if err != nil {
		return domain.GroupedTotals{}, err
	}
	defer rows.Close()

	var out domain.GroupedTotals
	for rows.Next() {
		var ct domain.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
			return domain.GroupedTotals{}, err
		}
		out.Rows = append(out.Rows, ct)
		out.Total += ct.Total
	}
	return out, rows.Err()
}
