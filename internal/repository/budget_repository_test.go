package repository

import (
	"context"
	"strings"
	"testing"

	"life-assistant-bot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

func TestBudgetUpsertUsesOnConflict(t *testing.T) {
	pool := &budgetStubPool{}
	repo := NewBudgetRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	b := &domain.Budget{UserID: "U1", Period: domain.PeriodMonthly, Amount: 1000}
	if err := repo.Upsert(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execSQL) != 1 || !strings.Contains(pool.execSQL[0], "ON CONFLICT (user_id, period)") {
		t.Fatalf("expected upsert statement, got %v", pool.execSQL)
	}
	if pool.execArgs[2] != int64(1000) {
		t.Fatalf("unexpected amount arg: %v", pool.execArgs[2])
	}
}

func TestBudgetGetMissingReturnsNil(t *testing.T) {
	pool := &budgetStubPool{noRows: true}
	repo := NewBudgetRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	b, err := repo.Get(context.Background(), "U1", domain.PeriodWeekly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b != nil {
		t.Fatalf("expected nil budget, got %+v", b)
	}
}

func TestBudgetGetFound(t *testing.T) {
	pool := &budgetStubPool{row: []any{"U1", "monthly", int64(1000)}}
	repo := NewBudgetRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	b, err := repo.Get(context.Background(), "U1", domain.PeriodMonthly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b == nil || b.Amount != 1000 || b.Period != domain.PeriodMonthly {
		t.Fatalf("unexpected budget: %+v", b)
	}
}

type budgetStubPool struct {
	execSQL  []string
	execArgs []any
	row      []any
	noRows   bool
}

func (s *budgetStubPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execSQL = append(s.execSQL, sql)
	s.execArgs = args
	return pgconn.CommandTag{}, nil
}

func (s *budgetStubPool) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (s *budgetStubPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (s *budgetStubPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &budgetStubRow{row: s.row, noRows: s.noRows}
}

type budgetStubRow struct {
	row    []any
	noRows bool
}

func (r *budgetStubRow) Scan(dest ...any) error {
	if r.noRows || r.row == nil {
		return pgx.ErrNoRows
	}
	for i, d := range dest {
		switch ptr := d.(type) {
		case *string:
			*ptr = r.row[i].(string)
		case *int64:
			*ptr = r.row[i].(int64)
		case *domain.BudgetPeriod:
			*ptr = domain.BudgetPeriod(r.row[i].(string))
		}
	}
	return nil
}
