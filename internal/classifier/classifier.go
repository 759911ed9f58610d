// Package classifier turns a raw chat message into a tagged intent via
// an ordered rule table. The AI stage runs before this table and lives
// in the dispatcher; everything here is pure string matching, so the
// priority order is testable in isolation.
package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"life-assistant-bot/internal/domain"
)

var (
	newsPattern    = regexp.MustCompile(`^(?i)(新聞|news)$`)
	stockPattern   = regexp.MustCompile(`^\d{4,6}(,\d{4,6})*$`)
	expensePattern = regexp.MustCompile(`^(\D+?)\s*(\d+(?:\.\d+)?)$`)
)

type literalRule struct {
	match  func(string) bool
	intent func() domain.Intent
}

type Classifier struct {
	literals []literalRule
}

func New() *Classifier {
	exact := func(words ...string) func(string) bool {
		return func(text string) bool {
			for _, w := range words {
				if text == w {
					return true
				}
			}
			return false
		}
	}
	query := func(window domain.Window, typ domain.TransactionType) func() domain.Intent {
		return func() domain.Intent {
			return domain.Intent{
				Kind:  domain.IntentQueryExpense,
				Scope: domain.QueryScope{Window: window, Type: typ},
			}
		}
	}
	budget := func(period domain.BudgetPeriod) func() domain.Intent {
		return func() domain.Intent {
			return domain.Intent{Kind: domain.IntentSetBudgetPrompt, Period: period}
		}
	}
	plain := func(kind domain.IntentKind) func() domain.Intent {
		return func() domain.Intent { return domain.Intent{Kind: kind} }
	}

	return &Classifier{literals: []literalRule{
		{newsPattern.MatchString, plain(domain.IntentNewsRequest)},
		{exact("地震"), plain(domain.IntentEarthquake)},
		{exact("天氣"), plain(domain.IntentWeatherPrompt)},
		{exact("今日星座運勢"), plain(domain.IntentZodiacPrompt)},
		{exact("記帳"), plain(domain.IntentExpenseMenu)},
		{exact("查詢我的股票"), plain(domain.IntentWatchlistQuery)},
		{exact("查詢今日支出", "今日支出", "今天花了多少", "今天花了多少？"), query(domain.WindowToday, domain.TypeExpense)},
		{exact("查詢本週支出", "本週支出", "這週花了多少", "這週花了多少？"), query(domain.WindowWeek, domain.TypeExpense)},
		{exact("查詢本月支出", "本月支出", "本月花了多少", "本月花了多少？"), query(domain.WindowMonth, domain.TypeExpense)},
		{exact("查詢本月收入", "本月收入"), query(domain.WindowMonth, domain.TypeIncome)},
		{exact("設定月預算"), budget(domain.PeriodMonthly)},
		{exact("設定週預算"), budget(domain.PeriodWeekly)},
	}}
}

// Classify resolves text against the rule table: literal commands,
// then pending-dialogue continuation, then pattern rules, then free
// chat. Literal commands pre-empt a pending dialogue: typing 新聞 while
// the bot awaits a zodiac sign still shows news. That mirrors the
// reference behavior and is kept deliberately.
func (c *Classifier) Classify(text string, state *domain.ConversationState) domain.Intent {
	text = strings.TrimSpace(text)

	for _, rule := range c.literals {
		if rule.match(text) {
			return rule.intent()
		}
	}

	if state != nil {
		return c.continueDialogue(text, *state)
	}

	if stockPattern.MatchString(text) {
		return domain.Intent{
			Kind:  domain.IntentStockQuery,
			Codes: strings.Split(text, ","),
		}
	}

	// A transaction candidate needs a non-numeric category token ahead
	// of the digits, so bare numbers never look like an expense.
	if m := expensePattern.FindStringSubmatch(text); m != nil {
		amount, err := strconv.ParseFloat(m[2], 64)
		if err == nil && amount > 0 {
			return domain.Intent{
				Kind:     domain.IntentRecordTransaction,
				Category: strings.TrimSpace(m[1]),
				Amount:   amount,
			}
		}
	}

	return domain.Intent{Kind: domain.IntentFreeChat, Text: text}
}

func (c *Classifier) continueDialogue(text string, state domain.ConversationState) domain.Intent {
	switch state.Kind {
	case domain.StateAwaitingZodiac:
		return domain.Intent{Kind: domain.IntentZodiacAnswer, Text: text}
	case domain.StateAwaitingLocation:
		return domain.Intent{Kind: domain.IntentWeatherAnswer, Text: text}
	case domain.StateAwaitingBudgetAmount:
		intent := domain.Intent{Kind: domain.IntentSetBudgetAmount, Period: state.Period}
		if amount, err := strconv.ParseFloat(text, 64); err == nil {
			intent.Amount = amount
		}
		return intent
	case domain.StateWaitingForAmount:
		intent := domain.Intent{Kind: domain.IntentRecordTransaction, Category: state.Category}
		if amount, err := strconv.ParseFloat(text, 64); err == nil {
			intent.Amount = amount
		}
		return intent
	}
	return domain.Intent{Kind: domain.IntentFreeChat, Text: text}
}
