package domain

import (
	"math"
	"time"
)

type TransactionType string

const (
	TypeExpense TransactionType = "expense"
	TypeIncome  TransactionType = "income"
)

// Label returns the user-facing Chinese label for the type.
func (t TransactionType) Label() string {
	if t == TypeIncome {
		return "收入"
	}
	return "支出"
}

func (t TransactionType) IsValid() bool {
	return t == TypeExpense || t == TypeIncome
}

// ParseTransactionType accepts both the wire tokens and the Chinese labels.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch s {
	case "expense", "支出":
		return TypeExpense, true
	case "income", "收入":
		return TypeIncome, true
	}
	return "", false
}

var (
	ExpenseCategories = []string{"餐飲", "交通", "娛樂", "購物", "醫療", "日常", "其他"}
	IncomeCategories  = []string{"薪水", "獎金", "投資", "補助", "其他"}
)

type Transaction struct {
	ID       int64
	Date     time.Time
	Category string
	Amount   int64
	UserID   string
	UserName string
	Type     TransactionType
}

// CoerceAmount rounds a parsed amount to whole currency units.
// Fractional cents are not tracked.
func CoerceAmount(f float64) int64 {
	return int64(math.Round(f))
}

type BudgetPeriod string

const (
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
)

// Label returns the period as it appears in budget alerts.
func (p BudgetPeriod) Label() string {
	if p == PeriodWeekly {
		return "本週"
	}
	return "本月"
}

func (p BudgetPeriod) IsValid() bool {
	return p == PeriodWeekly || p == PeriodMonthly
}

// Window returns the query window whose budget alerts use this period.
func (p BudgetPeriod) Window() Window {
	if p == PeriodWeekly {
		return WindowWeek
	}
	return WindowMonth
}

type Budget struct {
	UserID string
	Period BudgetPeriod
	Amount int64
}

type WatchlistEntry struct {
	UserID    string
	UserName  string
	StockCode string
	StockName string
}

type Window string

const (
	WindowToday Window = "today"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

// Title returns the window heading used in reports.
func (w Window) Title() string {
	switch w {
	case WindowToday:
		return "今日"
	case WindowWeek:
		return "本週"
	default:
		return "本月"
	}
}

// Range returns the half-open interval [from, to) covered by the window,
// calendar-aligned in the location of now. Weeks start on the most recent
// Monday.
func (w Window) Range(now time.Time) (time.Time, time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch w {
	case WindowToday:
		return midnight, midnight.AddDate(0, 0, 1)
	case WindowWeek:
		offset := (int(now.Weekday()) + 6) % 7
		monday := midnight.AddDate(0, 0, -offset)
		return monday, monday.AddDate(0, 0, 7)
	default:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first, first.AddDate(0, 1, 0)
	}
}

// CategoryTotal is one grouped row of a window query, in query order.
type CategoryTotal struct {
	Category string
	Total    int64
}

// GroupedTotals carries per-category subtotals plus the grand total computed
// from the same rows, so the total always equals the sum of the subtotals.
type GroupedTotals struct {
	Rows  []CategoryTotal
	Total int64
}

type StateKind string

const (
	StateAwaitingZodiac       StateKind = "awaiting_zodiac"
	StateAwaitingBudgetAmount StateKind = "awaiting_budget_amount"
	StateAwaitingLocation     StateKind = "awaiting_location"
	StateWaitingForAmount     StateKind = "waiting_for_amount"
)

// ConversationState marks the follow-up message the bot expects from a user.
// At most one state exists per user; absence means idle.
type ConversationState struct {
	Kind     StateKind
	Period   BudgetPeriod // awaiting_budget_amount
	Category string       // waiting_for_amount
}

// Action is one labeled postback button.
type Action struct {
	Label       string
	Data        string
	DisplayText string
}

// Message is one outbound message of a reply batch: plain text, an image, a
// two-button confirmation, or text with a quick-reply menu.
type Message struct {
	Text         string
	ImageURL     string
	PreviewURL   string
	AltText      string
	Confirm      []Action
	QuickReplies []Action
}

func TextMessage(text string) Message {
	return Message{Text: text}
}

func ImageMessage(url string) Message {
	return Message{ImageURL: url, PreviewURL: url}
}

type IntentKind string

const (
	IntentRecordTransaction IntentKind = "record_transaction"
	IntentQueryExpense      IntentKind = "query_expense"
	IntentSetBudgetPrompt   IntentKind = "set_budget_prompt"
	IntentSetBudgetAmount   IntentKind = "set_budget_amount"
	IntentZodiacPrompt      IntentKind = "zodiac_prompt"
	IntentZodiacAnswer      IntentKind = "zodiac_answer"
	IntentNewsRequest       IntentKind = "news_request"
	IntentEarthquake        IntentKind = "earthquake_request"
	IntentWeatherPrompt     IntentKind = "weather_prompt"
	IntentWeatherAnswer     IntentKind = "weather_answer"
	IntentStockQuery        IntentKind = "stock_query"
	IntentWatchlistQuery    IntentKind = "watchlist_query"
	IntentExpenseMenu       IntentKind = "expense_menu"
	IntentAIResult          IntentKind = "ai_result"
	IntentFreeChat          IntentKind = "free_chat"
	IntentSuppressed        IntentKind = "suppressed"
)

// QueryScope is one expense/income window query directive.
type QueryScope struct {
	Window Window
	Type   TransactionType
}

// Entry is a fully classified transaction ready for persistence.
type Entry struct {
	Type     TransactionType
	Category string
	Amount   float64
}

// Intent is the classifier output. Exactly the fields belonging to Kind are
// populated.
type Intent struct {
	Kind IntentKind

	// zodiac_answer, weather_answer: the raw answer text.
	Text string

	// record_transaction: a freshly parsed category/amount pair whose type
	// is still unknown (resolved by user confirmation).
	Category string
	Amount   float64

	Scope  QueryScope   // query_expense
	Period BudgetPeriod // set_budget_prompt
	Codes  []string     // stock_query

	// ai_result
	Entries []Entry
	Queries []QueryScope
	Advice  bool
}
