package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"life-assistant-bot/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type stubTransactionStore struct {
	inserted []*domain.Transaction
	grouped  domain.GroupedTotals
	insErr   error
	qryErr   error
	from, to time.Time
}

func (s *stubTransactionStore) Insert(ctx context.Context, t *domain.Transaction) error {
	if s.insErr != nil {
		return s.insErr
	}
	s.inserted = append(s.inserted, t)
	return nil
}

func (s *stubTransactionStore) GroupedTotals(ctx context.Context, userID string, from, to time.Time, typ domain.TransactionType) (domain.GroupedTotals, error) {
	s.from, s.to = from, to
	return s.grouped, s.qryErr
}

type stubBudgetStore struct {
	budget   *domain.Budget
	getErr   error
	upserted *domain.Budget
	upErr    error
}

func (s *stubBudgetStore) Get(ctx context.Context, userID string, period domain.BudgetPeriod) (*domain.Budget, error) {
	return s.budget, s.getErr
}

func (s *stubBudgetStore) Upsert(ctx context.Context, b *domain.Budget) error {
	if s.upErr != nil {
		return s.upErr
	}
	s.upserted = b
	return nil
}

type stubNames struct{}

func (stubNames) DisplayName(ctx context.Context, userID string) string { return "小明" }

func fixedNow() time.Time {
	return time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
}

func newTestService(store *stubTransactionStore, budgets *stubBudgetStore) *Service {
	return NewService(trace.NewNoopTracerProvider().Tracer("test"), store, budgets, stubNames{}, fixedNow)
}

func TestRecordCoercesAmountAndDenormalizesName(t *testing.T) {
	store := &stubTransactionStore{}
	svc := newTestService(store, &stubBudgetStore{})

	msg, err := svc.Record(context.Background(), "U1", "餐飲", 120.4, domain.TypeExpense)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(store.inserted))
	}
	got := store.inserted[0]
	if got.Amount != 120 || got.UserName != "小明" || got.Type != domain.TypeExpense {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !strings.Contains(msg, "已記錄") || !strings.Contains(msg, "120") {
		t.Fatalf("unexpected confirmation: %s", msg)
	}
}

func TestRecordStorageFailure(t *testing.T) {
	store := &stubTransactionStore{insErr: errors.New("boom")}
	svc := newTestService(store, &stubBudgetStore{})

	msg, err := svc.Record(context.Background(), "U1", "餐飲", 120, domain.TypeExpense)
	if err == nil {
		t.Fatal("expected an error on storage failure")
	}
	if !strings.Contains(msg, "記帳失敗") {
		t.Fatalf("expected user-facing failure text, got %s", msg)
	}
}

func TestReportTodayNeverShowsBudget(t *testing.T) {
	store := &stubTransactionStore{grouped: domain.GroupedTotals{
		Rows:  []domain.CategoryTotal{{Category: "午餐", Total: 120}},
		Total: 120,
	}}
	budgets := &stubBudgetStore{budget: &domain.Budget{UserID: "U1", Period: domain.PeriodMonthly, Amount: 100}}
	svc := newTestService(store, budgets)

	msg, err := svc.Report(context.Background(), "U1", domain.WindowToday, domain.TypeExpense)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msg, "午餐") || !strings.Contains(msg, "120") {
		t.Fatalf("expected category line, got %s", msg)
	}
	if strings.Contains(msg, "預算") {
		t.Fatalf("today report must not mention budgets: %s", msg)
	}
}

func TestReportQueriesWindowBoundaries(t *testing.T) {
	store := &stubTransactionStore{}
	svc := newTestService(store, &stubBudgetStore{})

	if _, err := svc.Report(context.Background(), "U1", domain.WindowWeek, domain.TypeExpense); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2025-03-12 is a Wednesday; the week began Monday 2025-03-10.
	if !store.from.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected week start: %v", store.from)
	}
}

func TestFormatReportApproachingAlert(t *testing.T) {
	grouped := domain.GroupedTotals{
		Rows:  []domain.CategoryTotal{{Category: "餐飲", Total: 850}},
		Total: 850,
	}
	budget := &domain.Budget{Period: domain.PeriodMonthly, Amount: 1000}

	msg := FormatReport(grouped, domain.WindowMonth, domain.TypeExpense, budget)
	if !strings.Contains(msg, "85%") {
		t.Fatalf("expected 85%% usage, got %s", msg)
	}
	if !strings.Contains(msg, "80% 預算") {
		t.Fatalf("expected approaching alert, got %s", msg)
	}
	if strings.Contains(msg, "超過預算") {
		t.Fatalf("850/1000 must not trigger the over-budget alert: %s", msg)
	}
}

func TestFormatReportOverBudgetAlertIsExclusive(t *testing.T) {
	grouped := domain.GroupedTotals{
		Rows:  []domain.CategoryTotal{{Category: "購物", Total: 1200}},
		Total: 1200,
	}
	budget := &domain.Budget{Period: domain.PeriodWeekly, Amount: 1000}

	msg := FormatReport(grouped, domain.WindowWeek, domain.TypeExpense, budget)
	if !strings.Contains(msg, "超過預算") {
		t.Fatalf("expected over-budget alert, got %s", msg)
	}
	if strings.Contains(msg, "80% 預算") {
		t.Fatalf("over-budget must suppress the approaching alert: %s", msg)
	}
	if !strings.Contains(msg, "120%") {
		t.Fatalf("expected truncated integer percentage, got %s", msg)
	}
}

func TestFormatReportNoBudgetNoAlert(t *testing.T) {
	grouped := domain.GroupedTotals{
		Rows:  []domain.CategoryTotal{{Category: "交通", Total: 30}},
		Total: 30,
	}
	msg := FormatReport(grouped, domain.WindowMonth, domain.TypeExpense, nil)
	if strings.Contains(msg, "預算") {
		t.Fatalf("no configured budget must mean no alert: %s", msg)
	}
}

func TestFormatReportEmptyIncome(t *testing.T) {
	msg := FormatReport(domain.GroupedTotals{}, domain.WindowMonth, domain.TypeIncome, nil)
	if !strings.Contains(msg, "尚未取得收入") {
		t.Fatalf("unexpected empty income text: %s", msg)
	}
}

func TestSetBudgetIdempotent(t *testing.T) {
	budgets := &stubBudgetStore{budget: &domain.Budget{UserID: "U1", Period: domain.PeriodMonthly, Amount: 1000}}
	svc := newTestService(&stubTransactionStore{}, budgets)

	msg, err := svc.SetBudget(context.Background(), "U1", 1000, domain.PeriodMonthly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msg, "無需更新") {
		t.Fatalf("expected no-op notice, got %s", msg)
	}
	if budgets.upserted != nil {
		t.Fatal("identical amount must not rewrite the stored budget")
	}
}

func TestSetBudgetUpdateMentionsOldAmount(t *testing.T) {
	budgets := &stubBudgetStore{budget: &domain.Budget{UserID: "U1", Period: domain.PeriodWeekly, Amount: 500}}
	svc := newTestService(&stubTransactionStore{}, budgets)

	msg, err := svc.SetBudget(context.Background(), "U1", 800, domain.PeriodWeekly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msg, "500") || !strings.Contains(msg, "800") {
		t.Fatalf("expected old and new amounts, got %s", msg)
	}
	if budgets.upserted == nil || budgets.upserted.Amount != 800 {
		t.Fatalf("expected upsert with 800, got %+v", budgets.upserted)
	}
}

func TestSetBudgetNew(t *testing.T) {
	budgets := &stubBudgetStore{}
	svc := newTestService(&stubTransactionStore{}, budgets)

	msg, err := svc.SetBudget(context.Background(), "U1", 1000, domain.PeriodMonthly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msg, "已設定") {
		t.Fatalf("expected newly-set notice, got %s", msg)
	}
}

func TestCommaGrouping(t *testing.T) {
	cases := map[int64]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		1234567: "1,234,567",
	}
	for in, want := range cases {
		if got := comma(in); got != want {
			t.Errorf("comma(%d) = %s, want %s", in, got, want)
		}
	}
}
