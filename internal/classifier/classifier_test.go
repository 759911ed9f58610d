package classifier

import (
	"testing"

	"life-assistant-bot/internal/domain"
)

func TestLiteralCommands(t *testing.T) {
	c := New()
	cases := []struct {
		text string
		kind domain.IntentKind
	}{
		{"新聞", domain.IntentNewsRequest},
		{"news", domain.IntentNewsRequest},
		{"NEWS", domain.IntentNewsRequest},
		{"地震", domain.IntentEarthquake},
		{"天氣", domain.IntentWeatherPrompt},
		{"今日星座運勢", domain.IntentZodiacPrompt},
		{"記帳", domain.IntentExpenseMenu},
		{"查詢我的股票", domain.IntentWatchlistQuery},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.text, nil); got.Kind != tc.kind {
			t.Errorf("Classify(%q) = %s, want %s", tc.text, got.Kind, tc.kind)
		}
	}
}

func TestQueryPhrases(t *testing.T) {
	c := New()
	cases := []struct {
		text   string
		window domain.Window
		typ    domain.TransactionType
	}{
		{"查詢今日支出", domain.WindowToday, domain.TypeExpense},
		{"今天花了多少？", domain.WindowToday, domain.TypeExpense},
		{"查詢本週支出", domain.WindowWeek, domain.TypeExpense},
		{"本月花了多少", domain.WindowMonth, domain.TypeExpense},
		{"查詢本月收入", domain.WindowMonth, domain.TypeIncome},
	}
	for _, tc := range cases {
		got := c.Classify(tc.text, nil)
		if got.Kind != domain.IntentQueryExpense {
			t.Errorf("Classify(%q) = %s, want query", tc.text, got.Kind)
			continue
		}
		if got.Scope.Window != tc.window || got.Scope.Type != tc.typ {
			t.Errorf("Classify(%q) scope = %+v", tc.text, got.Scope)
		}
	}
}

func TestBudgetPrompts(t *testing.T) {
	c := New()
	got := c.Classify("設定月預算", nil)
	if got.Kind != domain.IntentSetBudgetPrompt || got.Period != domain.PeriodMonthly {
		t.Fatalf("got %+v", got)
	}
	got = c.Classify("設定週預算", nil)
	if got.Kind != domain.IntentSetBudgetPrompt || got.Period != domain.PeriodWeekly {
		t.Fatalf("got %+v", got)
	}
}

func TestStockCodesBeatExpensePattern(t *testing.T) {
	c := New()
	got := c.Classify("2330", nil)
	if got.Kind != domain.IntentStockQuery {
		t.Fatalf("Classify(2330) = %s, want stock query", got.Kind)
	}
	if len(got.Codes) != 1 || got.Codes[0] != "2330" {
		t.Fatalf("codes = %v", got.Codes)
	}

	got = c.Classify("2330,2412,006208", nil)
	if got.Kind != domain.IntentStockQuery || len(got.Codes) != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestExpenseCandidate(t *testing.T) {
	c := New()
	got := c.Classify("午餐120", nil)
	if got.Kind != domain.IntentRecordTransaction {
		t.Fatalf("Classify(午餐120) = %s", got.Kind)
	}
	if got.Category != "午餐" || got.Amount != 120 {
		t.Fatalf("got %+v", got)
	}

	got = c.Classify("咖啡 85.5", nil)
	if got.Kind != domain.IntentRecordTransaction || got.Amount != 85.5 {
		t.Fatalf("got %+v", got)
	}
}

func TestDigitsNeverExpense(t *testing.T) {
	c := New()
	// Too short for a stock code, no category token for an expense.
	if got := c.Classify("120", nil); got.Kind != domain.IntentFreeChat {
		t.Fatalf("Classify(120) = %s, want free chat", got.Kind)
	}
}

func TestLiteralPreemptsPendingDialogue(t *testing.T) {
	c := New()
	state := &domain.ConversationState{Kind: domain.StateAwaitingZodiac}
	if got := c.Classify("新聞", state); got.Kind != domain.IntentNewsRequest {
		t.Fatalf("got %s, want news despite pending zodiac", got.Kind)
	}
}

func TestPendingDialogueContinuation(t *testing.T) {
	c := New()

	got := c.Classify("天蠍座", &domain.ConversationState{Kind: domain.StateAwaitingZodiac})
	if got.Kind != domain.IntentZodiacAnswer || got.Text != "天蠍座" {
		t.Fatalf("got %+v", got)
	}

	got = c.Classify("台北市信義區", &domain.ConversationState{Kind: domain.StateAwaitingLocation})
	if got.Kind != domain.IntentWeatherAnswer || got.Text != "台北市信義區" {
		t.Fatalf("got %+v", got)
	}
}

func TestPendingBudgetBeatsStockRegex(t *testing.T) {
	c := New()
	state := &domain.ConversationState{Kind: domain.StateAwaitingBudgetAmount, Period: domain.PeriodMonthly}
	got := c.Classify("1000", state)
	if got.Kind != domain.IntentSetBudgetAmount {
		t.Fatalf("got %s, want budget amount", got.Kind)
	}
	if got.Amount != 1000 || got.Period != domain.PeriodMonthly {
		t.Fatalf("got %+v", got)
	}
}

func TestPendingBudgetNonNumeric(t *testing.T) {
	c := New()
	state := &domain.ConversationState{Kind: domain.StateAwaitingBudgetAmount, Period: domain.PeriodWeekly}
	got := c.Classify("很多錢", state)
	if got.Kind != domain.IntentSetBudgetAmount || got.Amount != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestWaitingForAmountContinuation(t *testing.T) {
	c := New()
	state := &domain.ConversationState{Kind: domain.StateWaitingForAmount, Category: "餐飲"}
	got := c.Classify("250", state)
	if got.Kind != domain.IntentRecordTransaction || got.Category != "餐飲" || got.Amount != 250 {
		t.Fatalf("got %+v", got)
	}
}

func TestFreeChatFallback(t *testing.T) {
	c := New()
	for _, text := range []string{"你好嗎", "tell me a joke", "幫我想晚餐"} {
		if got := c.Classify(text, nil); got.Kind != domain.IntentFreeChat {
			t.Errorf("Classify(%q) = %s, want free chat", text, got.Kind)
		}
	}
}
