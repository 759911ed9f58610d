package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"life-assistant-bot/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type TransactionStore interface {
	Insert(ctx context.Context, t *domain.Transaction) error
	GroupedTotals(ctx context.Context, userID string, from, to time.Time, typ domain.TransactionType) (domain.GroupedTotals, error)
}

type BudgetStore interface {
	Get(ctx context.Context, userID string, period domain.BudgetPeriod) (*domain.Budget, error)
	Upsert(ctx context.Context, b *domain.Budget) error
}

// NameResolver looks up the user's current display name, denormalized into
// each record at write time.
type NameResolver interface {
	DisplayName(ctx context.Context, userID string) string
}

type Service struct {
	tracer  trace.Tracer
	store   TransactionStore
	budgets BudgetStore
	names   NameResolver
	now     func() time.Time
}

func NewService(tracer trace.Tracer, store TransactionStore, budgets BudgetStore, names NameResolver, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{tracer: tracer, store: store, budgets: budgets, names: names, now: now}
}

// Record appends one confirmed income/expense entry. The amount is coerced to
// whole currency units before storage. On storage failure the returned error
// is non-nil and the message is the user-facing failure text; nothing is
// partially written.
func (s *Service) Record(ctx context.Context, userID, category string, amount float64, typ domain.TransactionType) (string, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.record")
	defer span.End()

	if !typ.IsValid() {
		return "⚠️ 無法識別的記帳類型", fmt.Errorf("invalid transaction type %q", typ)
	}
	if amount < 0 {
		return "⚠️ 金額不可為負數", fmt.Errorf("negative amount %f", amount)
	}

	t := &domain.Transaction{
		Category: category,
		Amount:   domain.CoerceAmount(amount),
		UserID:   userID,
		UserName: s.names.DisplayName(ctx, userID),
		Type:     typ,
	}
	if err := s.store.Insert(ctx, t); err != nil {
		return "⚠️ 記帳失敗，請稍後再試", fmt.Errorf("insert transaction: %w", err)
	}
	return fmt.Sprintf("✅ 已記錄：%s - %s %s 元", typ.Label(), category, comma(t.Amount)), nil
}

// Report runs a window query and renders it, appending the budget usage line
// for week/month expense queries when a budget exists. Today-scoped queries
// never show budget alerts.
func (s *Service) Report(ctx context.Context, userID string, window domain.Window, typ domain.TransactionType) (string, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.report")
	defer span.End()

	from, to := window.Range(s.now())
	grouped, err := s.store.GroupedTotals(ctx, userID, from, to, typ)
	if err != nil {
		return "⚠️ 查詢失敗，請稍後重試", fmt.Errorf("grouped totals: %w", err)
	}

	var budget *domain.Budget
	if typ == domain.TypeExpense && window != domain.WindowToday {
		period := domain.PeriodMonthly
		if window == domain.WindowWeek {
			period = domain.PeriodWeekly
		}
		// A budget lookup failure only suppresses the alert line.
		budget, _ = s.budgets.Get(ctx, userID, period)
	}

	return FormatReport(grouped, window, typ, budget), nil
}

// FormatReport renders grouped totals deterministically: category lines in
// query order, then the grand total, then the optional budget section.
func FormatReport(grouped domain.GroupedTotals, window domain.Window, typ domain.TransactionType, budget *domain.Budget) string {
	if len(grouped.Rows) == 0 {
		if typ == domain.TypeIncome {
			return fmt.Sprintf("📅 %s尚未取得收入", window.Title())
		}
		return fmt.Sprintf("📅 %s 還沒有任何%s記錄", window.Title(), typ.Label())
	}

	emoji := "🔹"
	if typ == domain.TypeIncome {
		emoji = "💰"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s 各類%s：\n", window.Title(), typ.Label())
	for _, row := range grouped.Rows {
		fmt.Fprintf(&b, "%s %s: %s 元\n", emoji, row.Category, comma(row.Total))
	}
	fmt.Fprintf(&b, "\n💵 %s總計：%s 元", typ.Label(), comma(grouped.Total))

	if budget != nil && typ == domain.TypeExpense && window != domain.WindowToday {
		b.WriteString(budgetSection(grouped.Total, budget))
	}
	return b.String()
}

func budgetSection(spent int64, budget *domain.Budget) string {
	period := budget.Period.Label()
	pct := 0
	if budget.Amount > 0 {
		pct = int(spent * 100 / budget.Amount)
	}

	lines := []string{fmt.Sprintf("📊 %s已使用 %s/%s 元（%d%%）", period, comma(spent), comma(budget.Amount), pct)}
	if spent >= budget.Amount {
		lines = append(lines, fmt.Sprintf("🚨 %s支出已超過預算！吃土吧！", period))
	} else if spent*5 >= budget.Amount*4 {
		lines = append(lines, fmt.Sprintf("⚠️ %s支出已達 80%% 預算，省著點！", period))
	}

	return "\n——————————————\n🔔 預算提醒：\n" + strings.Join(lines, "\n")
}

// SetBudget upserts the single budget for (user, period). Setting the amount
// that is already stored is a no-op and says so.
func (s *Service) SetBudget(ctx context.Context, userID string, amount int64, period domain.BudgetPeriod) (string, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.set-budget")
	defer span.End()

	if !period.IsValid() {
		return "⚠️ 週期格式錯誤，僅支援 monthly/weekly", fmt.Errorf("invalid budget period %q", period)
	}
	if amount <= 0 {
		return "⚠️ 金額需為正整數", fmt.Errorf("non-positive budget amount %d", amount)
	}

	name := "月預算"
	if period == domain.PeriodWeekly {
		name = "週預算"
	}

	existing, err := s.budgets.Get(ctx, userID, period)
	if err != nil {
		return "⚠️ 設定失敗，請稍後再試", fmt.Errorf("get budget: %w", err)
	}
	if existing != nil && existing.Amount == amount {
		return fmt.Sprintf("⚠️ 你的%s已經是 %s 元，無需更新！", name, comma(amount)), nil
	}

	if err := s.budgets.Upsert(ctx, &domain.Budget{UserID: userID, Period: period, Amount: amount}); err != nil {
		return "⚠️ 設定失敗，請稍後再試", fmt.Errorf("upsert budget: %w", err)
	}

	if existing != nil {
		return fmt.Sprintf("🔄 已更新%s為 %s 元（原本：%s 元）", name, comma(amount), comma(existing.Amount)), nil
	}
	return fmt.Sprintf("✅ 已設定%s為 %s 元", name, comma(amount)), nil
}

// comma renders n with thousand separators.
func comma(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
