package domain

import (
	"testing"
	"time"
)

func TestParseTransactionType(t *testing.T) {
	cases := map[string]TransactionType{
		"expense": TypeExpense,
		"支出":      TypeExpense,
		"income":  TypeIncome,
		"收入":      TypeIncome,
	}
	for in, want := range cases {
		got, ok := ParseTransactionType(in)
		if !ok || got != want {
			t.Errorf("ParseTransactionType(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseTransactionType("transfer"); ok {
		t.Error("expected transfer to be rejected")
	}
}

func TestCoerceAmount(t *testing.T) {
	if got := CoerceAmount(120.0); got != 120 {
		t.Errorf("expected 120, got %d", got)
	}
	if got := CoerceAmount(99.6); got != 100 {
		t.Errorf("expected rounding up, got %d", got)
	}
	if got := CoerceAmount(99.4); got != 99 {
		t.Errorf("expected rounding down, got %d", got)
	}
}

func TestWindowRangeToday(t *testing.T) {
	now := time.Date(2025, 3, 12, 15, 4, 5, 0, time.UTC)
	from, to := WindowToday.Range(now)
	if !from.Equal(time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected from: %v", from)
	}
	if !to.Equal(time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected to: %v", to)
	}
}

func TestWindowRangeWeekStartsMonday(t *testing.T) {
	// 2025-03-12 is a Wednesday; the week started Monday 2025-03-10.
	now := time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC)
	from, _ := WindowWeek.Range(now)
	if !from.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected Monday start, got %v", from)
	}

	// A Monday belongs to its own week.
	monday := time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC)
	from, _ = WindowWeek.Range(monday)
	if !from.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected Monday to start its own week, got %v", from)
	}

	// A Sunday reaches back six days.
	sunday := time.Date(2025, 3, 16, 23, 0, 0, 0, time.UTC)
	from, _ = WindowWeek.Range(sunday)
	if !from.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected Sunday to reach back to Monday, got %v", from)
	}
}

func TestWindowRangeMonthRollover(t *testing.T) {
	now := time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)
	from, to := WindowMonth.Range(now)
	if !from.Equal(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected from: %v", from)
	}
	if !to.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected rollover into January, got %v", to)
	}
}

func TestBudgetPeriodWindow(t *testing.T) {
	if PeriodWeekly.Window() != WindowWeek || PeriodMonthly.Window() != WindowMonth {
		t.Error("budget periods map to wrong windows")
	}
	if PeriodWeekly.Label() != "本週" || PeriodMonthly.Label() != "本月" {
		t.Error("unexpected period labels")
	}
}

func TestGroupedTotalsShape(t *testing.T) {
	g := GroupedTotals{
		Rows:  []CategoryTotal{{Category: "餐飲", Total: 120}, {Category: "交通", Total: 30}},
		Total: 150,
	}
	var sum int64
	for _, r := range g.Rows {
		sum += r.Total
	}
	if sum != g.Total {
		t.Errorf("grand total %d does not equal subtotal sum %d", g.Total, sum)
	}
}
