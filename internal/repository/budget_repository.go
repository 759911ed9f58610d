package repository

import (
	"context"
	"errors"

	"life-assistant-bot/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

type BudgetRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewBudgetRepository(pool PgxPool, tracer trace.Tracer) *BudgetRepository {
	return &BudgetRepository{pool: pool, tracer: tracer}
}

func (r *BudgetRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "budget-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS budgets (
			user_id TEXT NOT NULL,
			period TEXT NOT NULL CHECK (period IN ('weekly', 'monthly')),
			amount BIGINT NOT NULL CHECK (amount >= 0),
			PRIMARY KEY (user_id, period)
		);
	`)
	return err
}

// Get returns nil when no budget is set for the (user, period) pair.
func (r *BudgetRepository) Get(ctx context.Context, userID string, period domain.BudgetPeriod) (*domain.Budget, error) {
	_, span := r.tracer.Start(ctx, "budget-repo.get")
	defer span.End()

	row := r.pool.QueryRow(ctx,
		`SELECT user_id, period, amount FROM budgets WHERE user_id = $1 AND period = $2`,
		userID, string(period),
	)

	var b domain.Budget
	err := row.Scan(&b.UserID, &b.Period, &b.Amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Upsert sets the single budget for a (user, period) pair.
func (r *BudgetRepository) Upsert(ctx context.Context, b *domain.Budget) error {
	_, span := r.tracer.Start(ctx, "budget-repo.upsert")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO budgets (user_id, period, amount)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, period) DO UPDATE SET amount = EXCLUDED.amount`,
		b.UserID, string(b.Period), b.Amount,
	)
	return err
}
