package advisor

import (
	"encoding/json"
	"strings"

	"life-assistant-bot/internal/domain"
)

type wireIntent struct {
	Records []struct {
		Type     string      `json:"類型"`
		Category string      `json:"類別"`
		Amount   json.Number `json:"金額"`
	} `json:"記帳"`
	Queries []struct {
		QueryType string `json:"查詢類型"`
	} `json:"查詢"`
	Advice bool `json:"建議"`
}

// ParseIntentJSON decodes the model's JSON reply. Anything that is not
// a usable intent, including a literal null, markdown noise, or broken
// JSON, comes back as nil so the caller falls through to the rules.
func ParseIntentJSON(raw string) *IntentResult {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, "```json", "")
	raw = strings.ReplaceAll(raw, "```", "")
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}

	var wire wireIntent
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil
	}

	result := &IntentResult{Advice: wire.Advice}
	for _, rec := range wire.Records {
		typ, ok := domain.ParseTransactionType(rec.Type)
		if !ok {
			continue
		}
		amount, err := rec.Amount.Float64()
		if err != nil || amount <= 0 {
			continue
		}
		category := strings.TrimSpace(rec.Category)
		if category == "" {
			continue
		}
		result.Entries = append(result.Entries, domain.Entry{
			Type:     typ,
			Category: category,
			Amount:   amount,
		})
	}
	for _, q := range wire.Queries {
		scope, ok := queryScope(q.QueryType)
		if !ok {
			continue
		}
		result.Queries = append(result.Queries, scope)
	}

	if len(result.Entries) == 0 && len(result.Queries) == 0 && !result.Advice {
		return nil
	}
	return result
}

func queryScope(queryType string) (domain.QueryScope, bool) {
	switch strings.TrimSpace(queryType) {
	case "今日支出":
		return domain.QueryScope{Window: domain.WindowToday, Type: domain.TypeExpense}, true
	case "本週支出":
		return domain.QueryScope{Window: domain.WindowWeek, Type: domain.TypeExpense}, true
	case "本月支出":
		return domain.QueryScope{Window: domain.WindowMonth, Type: domain.TypeExpense}, true
	case "本月收入":
		return domain.QueryScope{Window: domain.WindowMonth, Type: domain.TypeIncome}, true
	}
	return domain.QueryScope{}, false
}
