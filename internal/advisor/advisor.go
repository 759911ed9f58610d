// Package advisor wraps the OpenAI API for three jobs: parsing
// bookkeeping intent out of free text, generating financial advice,
// and answering everything else as small talk.
package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"life-assistant-bot/internal/domain"
)

const maxReplyRunes = 4000

const intentPrompt = `你是一個智慧財務助理，請幫助用戶解析記帳與查詢請求。

⚠️ 請特別注意：
1. 如果使用者的輸入為「星座」或「股票」相關內容，請回應 null，不要解析！
   - 星座關鍵字：「星座」「今日星座運勢」「運勢」「摩羯座」「獅子座」等。
   - 股票關鍵字：「股票」「查詢股票」，或 4~6 位數的純數字（如 2330、2412）。

2. 如果使用者是記帳（例如：「午餐120」、「薪水50000」），請回應：
   {"記帳": [{"類型": "支出/收入", "類別": "<分類>", "金額": <金額>}]}
   可能的類別如下，若不在類別裡也可以自行判斷屬於哪個類別：
   - 支出類別：餐飲, 交通, 娛樂, 購物, 醫療, 日常
   - 收入類別：薪水, 獎金, 投資, 補助

   例子：
   - "午餐120" → 類型: 支出, 類別: 餐飲
   - "薪水50000" → 類型: 收入, 類別: 薪水
   - "搭捷運30" → 類型: 支出, 類別: 交通
   - "投資收益2000" → 類型: 收入, 類別: 投資
   - "買衣服500" → 類型: 支出, 類別: 購物
   - "唱歌100" → 類型: 支出, 類別: 娛樂

3. 如果使用者是查詢（例如：「這週花多少？」、「我這個月收入多少？」），請回應：
   {"查詢": [{"查詢類型": "<今日支出/本週支出/本月支出/本月收入>"}]}

4. 如果使用者同時輸入「記帳」與「查詢」，請回應：
   {"記帳": [...], "查詢": [...]}

5. 如果使用者詢問是否提供財務建議（例如：「請給我建議」、「如何理財？」），請回應：
   {"建議": true}

6. 如果使用者的輸入不符合以上規則，或你不確定該如何分類，請回應 null，不要亂猜！

請確保回應「純 JSON」，不包含任何額外的解釋或 Markdown。`

// IntentResult is the parsed bookkeeping intent. A nil result means
// the input is not a bookkeeping request and should fall through to
// the rule-based classifier.
type IntentResult struct {
	Entries []domain.Entry
	Queries []domain.QueryScope
	Advice  bool
}

// Client talks to the OpenAI chat completion API. A nil Client means
// no key is configured and every AI stage is skipped.
type Client struct {
	api   openai.Client
	model string
}

func New(apiKey, model string) *Client {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	return &Client{
		api:   openai.NewClient(option.WithAPIKey(apiKey)),
		model: model,
	}
}

// ClassifyIntent asks the model to parse bookkeeping intent from the
// input. A nil result with nil error means the model declined.
func (c *Client) ClassifyIntent(ctx context.Context, input string) (*IntentResult, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(intentPrompt),
			openai.UserMessage(fmt.Sprintf("使用者輸入：%q", input)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("classify intent: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}
	return ParseIntentJSON(resp.Choices[0].Message.Content), nil
}

// FreeChat answers any other message as small talk.
func (c *Client) FreeChat(ctx context.Context, input string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("你是一個親切的生活助理，請用繁體中文簡短回答。"),
			openai.UserMessage(input),
		},
	})
	if err != nil {
		return "", fmt.Errorf("free chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("free chat: empty response")
	}
	return truncateRunes(strings.TrimSpace(resp.Choices[0].Message.Content), maxReplyRunes), nil
}

// Advice turns an expense report into a short piece of financial advice.
func (c *Client) Advice(ctx context.Context, report string) (string, error) {
	prompt := fmt.Sprintf("你是一位智慧財務顧問，以下是使用者的財務數據：\n%s\n\n請提供一段財務建議，幫助使用者更有效管理財務。", report)
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("financial advice: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("financial advice: empty response")
	}
	return truncateRunes(strings.TrimSpace(resp.Choices[0].Message.Content), maxReplyRunes), nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
