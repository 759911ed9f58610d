// Package dispatcher is the per-event state machine: it classifies each
// inbound message, runs the matching feature branch, mutates the user's
// pending dialogue state, and assembles one ordered reply batch.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"life-assistant-bot/internal/advisor"
	"life-assistant-bot/internal/chart"
	"life-assistant-bot/internal/classifier"
	"life-assistant-bot/internal/domain"
	"life-assistant-bot/internal/provider"
	"life-assistant-bot/internal/state"
	"life-assistant-bot/internal/stock"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	historyMonths  = 6
	newsPages      = 3
	keywordBars    = 10
	staticKeep     = 200
	// The reply endpoint rejects batches of more than five messages.
	maxReplyMessages = 5
	msgUnavailable = "😥 服務暫時無法使用，請稍後再試！"

	welcomeMessage = "👋 歡迎加入！我是你的生活小助理。\n" +
		"📰 查詢新聞: '新聞' 或 'news'\n" +
		"🔮 查詢星座運勢: '今日星座運勢'\n" +
		"🌦 查詢天氣: '天氣' 或傳送位置資訊\n" +
		"🌍 查詢地震資訊: '地震'\n" +
		"💰 記帳: 輸入『記帳』來開始記帳"
)

type Ledger interface {
	Record(ctx context.Context, userID, category string, amount float64, typ domain.TransactionType) (string, error)
	Report(ctx context.Context, userID string, window domain.Window, typ domain.TransactionType) (string, error)
	SetBudget(ctx context.Context, userID string, amount int64, period domain.BudgetPeriod) (string, error)
}

type Watchlist interface {
	Add(ctx context.Context, e domain.WatchlistEntry) (bool, error)
	Remove(ctx context.Context, userID, stockCode string) (bool, error)
	List(ctx context.Context, userID string) ([]domain.WatchlistEntry, error)
}

type NewsSource interface {
	HotNews(ctx context.Context) (string, error)
	Headlines(ctx context.Context, maxPages int) ([]string, error)
}

type HoroscopeSource interface {
	Daily(ctx context.Context, zodiac string) (string, error)
}

type WeatherSource interface {
	LatestEarthquake(ctx context.Context) (content, imageURL string, err error)
	Weather(ctx context.Context, address string) (string, error)
}

type StockData interface {
	Quote(ctx context.Context, code string) (*stock.Quote, error)
	History(ctx context.Context, code string, months int) ([]stock.Candle, error)
}

type StockPredictor interface {
	Predict(ctx context.Context, code string) (float64, error)
}

type StockNewsSource interface {
	Search(ctx context.Context, query string) (string, error)
}

type ChartRenderer interface {
	RenderTrend(candles []stock.Candle) ([]byte, error)
	RenderCandles(candles []stock.Candle) ([]byte, error)
	RenderKeywordBars(counts []chart.KeywordCount) ([]byte, error)
}

type BreedClassifier interface {
	Classify(ctx context.Context, path string) (*provider.BreedResult, error)
}

type ImageFilterer interface {
	Apply(ctx context.Context, filterID, path string) ([]byte, error)
}

type AI interface {
	ClassifyIntent(ctx context.Context, input string) (*advisor.IntentResult, error)
	FreeChat(ctx context.Context, input string) (string, error)
	Advice(ctx context.Context, report string) (string, error)
}

type NameResolver interface {
	DisplayName(ctx context.Context, userID string) string
}

// Deps collects the dispatcher's collaborators. Optional services (AI,
// Predictor, Breeds, Filters) may be left nil and their branches degrade
// to polite fallbacks.
type Deps struct {
	States    *state.Store
	Rules     *classifier.Classifier
	Ledger    Ledger
	Watchlist Watchlist
	Names     NameResolver

	News      NewsSource
	Horoscope HoroscopeSource
	Weather   WeatherSource
	Stocks    StockData
	StockNews StockNewsSource
	Charts    ChartRenderer

	AI        AI
	Predictor StockPredictor
	Breeds    BreedClassifier
	Filters   ImageFilterer

	StaticDir string
	BaseURL   string
	Now       func() time.Time
}

type Dispatcher struct {
	tracer trace.Tracer
	deps   Deps
}

func New(tracer trace.Tracer, deps Deps) *Dispatcher {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Dispatcher{tracer: tracer, deps: deps}
}

// HandleText processes one text message and returns the reply batch.
// The whole event runs under the user's state lock so concurrent
// messages from the same user cannot interleave a dialogue transition.
func (d *Dispatcher) HandleText(ctx context.Context, userID, text string) []domain.Message {
	ctx, span := d.tracer.Start(ctx, "dispatcher.text")
	defer span.End()

	text = strings.TrimSpace(text)
	var batch []domain.Message
	d.deps.States.Do(userID, func() {
		batch = d.handleText(ctx, userID, text)
	})
	return capBatch(batch)
}

// capBatch folds an oversized batch back under the reply limit: the
// overflow's text is joined into the last slot, so a single reply token
// still carries everything. Quick-reply menus and images past the cap
// are dropped with their message.
func capBatch(batch []domain.Message) []domain.Message {
	if len(batch) <= maxReplyMessages {
		return batch
	}
	var parts []string
	for _, m := range batch[maxReplyMessages-1:] {
		if m.Text != "" {
			parts = append(parts, m.Text)
		}
	}
	head := batch[:maxReplyMessages-1]
	if len(parts) == 0 {
		return append(head, batch[maxReplyMessages-1])
	}
	return append(head, domain.TextMessage(strings.Join(parts, "\n\n")))
}

func (d *Dispatcher) handleText(ctx context.Context, userID, text string) []domain.Message {
	// The AI stage runs first and owns bookkeeping phrasings the rule
	// table cannot parse. Failure or a null verdict falls through.
	if d.deps.AI != nil {
		res, err := d.deps.AI.ClassifyIntent(ctx, text)
		if err != nil {
			log.Printf("ai intent classification failed: %v", err)
		} else if res != nil {
			return d.aiResult(ctx, userID, res)
		}
	}

	var st *domain.ConversationState
	if s, ok := d.deps.States.Get(userID); ok {
		st = &s
	}
	intent := d.deps.Rules.Classify(text, st)
	return d.dispatch(ctx, userID, intent)
}

// HandleLocation resolves a shared location into a weather report. A
// pending location prompt is satisfied by any location event.
func (d *Dispatcher) HandleLocation(ctx context.Context, userID, address string) []domain.Message {
	ctx, span := d.tracer.Start(ctx, "dispatcher.location")
	defer span.End()

	var batch []domain.Message
	d.deps.States.Do(userID, func() {
		if s, ok := d.deps.States.Get(userID); ok && s.Kind == domain.StateAwaitingLocation {
			d.deps.States.Clear(userID)
		}
		batch = d.weatherReport(ctx, address)
	})
	return batch
}

// HandleImage answers an uploaded image (already saved under the static
// dir) with the filter menu. Nothing is processed until a filter is
// picked via postback.
func (d *Dispatcher) HandleImage(ctx context.Context, userID, imagePath string) []domain.Message {
	_, span := d.tracer.Start(ctx, "dispatcher.image")
	defer span.End()

	msg := domain.TextMessage("📸 收到照片！請選擇想要的風格特效 👇")
	msg.QuickReplies = imageMenu(imagePath)
	return []domain.Message{msg}
}

// HandleFollow greets a new friend.
func (d *Dispatcher) HandleFollow(ctx context.Context, userID string) []domain.Message {
	_, span := d.tracer.Start(ctx, "dispatcher.follow")
	defer span.End()

	return []domain.Message{domain.TextMessage(welcomeMessage)}
}

func (d *Dispatcher) dispatch(ctx context.Context, userID string, intent domain.Intent) []domain.Message {
	switch intent.Kind {
	case domain.IntentNewsRequest:
		return d.news(ctx)

	case domain.IntentZodiacPrompt:
		d.deps.States.Set(userID, domain.ConversationState{Kind: domain.StateAwaitingZodiac})
		return []domain.Message{domain.TextMessage("🔎請輸入您要查詢的星座名稱（如：摩羯座、獅子座）")}

	case domain.IntentZodiacAnswer:
		return d.zodiacAnswer(ctx, userID, intent.Text)

	case domain.IntentEarthquake:
		return d.earthquake(ctx)

	case domain.IntentWeatherPrompt:
		d.deps.States.Set(userID, domain.ConversationState{Kind: domain.StateAwaitingLocation})
		return []domain.Message{domain.TextMessage("📍 請傳送您的 位置資訊，我會幫您查詢當地天氣！ 🌦")}

	case domain.IntentWeatherAnswer:
		d.deps.States.Clear(userID)
		return d.weatherReport(ctx, intent.Text)

	case domain.IntentRecordTransaction:
		return d.confirmTransaction(ctx, userID, intent.Category, intent.Amount)

	case domain.IntentQueryExpense:
		text, err := d.deps.Ledger.Report(ctx, userID, intent.Scope.Window, intent.Scope.Type)
		if err != nil {
			log.Printf("ledger report failed: %v", err)
		}
		return []domain.Message{domain.TextMessage(text)}

	case domain.IntentExpenseMenu:
		msg := domain.TextMessage("🧾 請選擇記帳功能，或直接輸入『早餐 50』開始記帳！")
		msg.QuickReplies = expenseMenu()
		return []domain.Message{msg}

	case domain.IntentSetBudgetPrompt:
		return d.budgetPrompt(userID, intent.Period)

	case domain.IntentSetBudgetAmount:
		return d.setBudgetAmount(ctx, userID, intent.Period, intent.Amount)

	case domain.IntentStockQuery:
		return d.stockQuery(ctx, intent.Codes)

	case domain.IntentWatchlistQuery:
		return d.watchlistReport(ctx, userID)

	default:
		return d.freeChat(ctx, intent.Text)
	}
}

// aiResult executes the structured verdict of the AI classifier:
// persist parsed entries, run requested window queries, then append
// budgeting advice when it was asked for.
func (d *Dispatcher) aiResult(ctx context.Context, userID string, res *advisor.IntentResult) []domain.Message {
	var batch []domain.Message

	for _, e := range res.Entries {
		text, err := d.deps.Ledger.Record(ctx, userID, e.Category, e.Amount, e.Type)
		if err != nil {
			log.Printf("ledger record failed: %v", err)
		}
		batch = append(batch, domain.TextMessage(text))
	}

	for _, q := range res.Queries {
		text, err := d.deps.Ledger.Report(ctx, userID, q.Window, q.Type)
		if err != nil {
			log.Printf("ledger report failed: %v", err)
		}
		batch = append(batch, domain.TextMessage(text))
	}

	if res.Advice && d.deps.AI != nil {
		report, err := d.deps.Ledger.Report(ctx, userID, domain.WindowMonth, domain.TypeExpense)
		if err == nil {
			advice, aerr := d.deps.AI.Advice(ctx, report)
			if aerr != nil {
				log.Printf("ai advice failed: %v", aerr)
				batch = append(batch, domain.TextMessage("❌ 抱歉，目前無法產生理財建議。"))
			} else {
				batch = append(batch, domain.TextMessage("💡 AI 理財建議：\n"+advice))
			}
		} else {
			batch = append(batch, domain.TextMessage(report))
		}
	}

	if len(batch) == 0 {
		batch = append(batch, domain.TextMessage("⚠️ 未偵測到金額，請確認輸入格式"))
	}
	return batch
}

func (d *Dispatcher) news(ctx context.Context) []domain.Message {
	text, err := d.deps.News.HotNews(ctx)
	if err != nil {
		log.Printf("hot news fetch failed: %v", err)
		return []domain.Message{domain.TextMessage(msgUnavailable)}
	}
	batch := []domain.Message{domain.TextMessage(text)}

	// The keyword chart is best effort; the text reply stands alone.
	if d.deps.BaseURL == "" {
		return batch
	}
	titles, err := d.deps.News.Headlines(ctx, newsPages)
	if err != nil {
		log.Printf("headline fetch failed: %v", err)
		return batch
	}
	counts := chart.TopKeywords(titles, keywordBars)
	png, err := d.deps.Charts.RenderKeywordBars(counts)
	if err != nil {
		log.Printf("keyword chart render failed: %v", err)
		return batch
	}
	url, err := d.saveStatic("news_"+uuid.NewString()+".png", png)
	if err != nil {
		log.Printf("keyword chart save failed: %v", err)
		return batch
	}
	return append(batch, domain.ImageMessage(url))
}

func (d *Dispatcher) zodiacAnswer(ctx context.Context, userID, sign string) []domain.Message {
	reply, err := d.deps.Horoscope.Daily(ctx, sign)
	if errors.Is(err, provider.ErrUnknownSign) {
		// Unknown sign keeps the dialogue open for another attempt.
		return []domain.Message{domain.TextMessage(
			fmt.Sprintf("⚠️ 查無 %s 星座，請重新輸入正確的星座名稱（如：魔羯座、獅子座）", sign))}
	}
	if err != nil {
		log.Printf("horoscope fetch failed: %v", err)
		return []domain.Message{domain.TextMessage(msgUnavailable)}
	}
	d.deps.States.Clear(userID)
	return []domain.Message{domain.TextMessage(reply)}
}

func (d *Dispatcher) earthquake(ctx context.Context) []domain.Message {
	content, imageURL, err := d.deps.Weather.LatestEarthquake(ctx)
	if err != nil {
		log.Printf("earthquake fetch failed: %v", err)
		return []domain.Message{domain.TextMessage(msgUnavailable)}
	}
	batch := []domain.Message{domain.TextMessage(content)}
	if imageURL != "" {
		batch = append(batch, domain.ImageMessage(imageURL))
	}
	return batch
}

func (d *Dispatcher) weatherReport(ctx context.Context, address string) []domain.Message {
	address = strings.ReplaceAll(address, "台", "臺")
	report, err := d.deps.Weather.Weather(ctx, address)
	if err != nil {
		log.Printf("weather fetch failed: %v", err)
		return []domain.Message{domain.TextMessage(msgUnavailable)}
	}
	return []domain.Message{domain.TextMessage(report)}
}

// confirmTransaction starts the two phase commit for a freshly parsed
// category/amount pair. Nothing is written until the user picks a type.
func (d *Dispatcher) confirmTransaction(ctx context.Context, userID, category string, amount float64) []domain.Message {
	if amount <= 0 {
		// A pending amount dialogue stays open until a number arrives.
		return []domain.Message{domain.TextMessage("❌ 無法識別金額，請輸入數字（例如：120）")}
	}
	d.deps.States.Clear(userID)
	amt := formatAmount(amount)
	msg := domain.Message{
		Text:    fmt.Sprintf("💰 %s %s 元，請問這筆是收入還是支出？", category, amt),
		AltText: "記帳確認",
		Confirm: []domain.Action{
			{Label: "收入", Data: fmt.Sprintf("記帳,income,%s,%s", category, amt)},
			{Label: "支出", Data: fmt.Sprintf("記帳,expense,%s,%s", category, amt)},
		},
	}
	return []domain.Message{msg}
}

// categoryPrompt opens the category-first record flow: the button
// fixed the category, the next text message carries the amount and
// converges on the usual confirmation.
func (d *Dispatcher) categoryPrompt(userID, category string) []domain.Message {
	d.deps.States.Set(userID, domain.ConversationState{
		Kind:     domain.StateWaitingForAmount,
		Category: category,
	})
	return []domain.Message{domain.TextMessage(
		fmt.Sprintf("請輸入 %s 的支出金額（例如：120）", category))}
}

func (d *Dispatcher) budgetPrompt(userID string, period domain.BudgetPeriod) []domain.Message {
	d.deps.States.Set(userID, domain.ConversationState{
		Kind:   domain.StateAwaitingBudgetAmount,
		Period: period,
	})
	name := "月預算"
	if period == domain.PeriodWeekly {
		name = "週預算"
	}
	return []domain.Message{domain.TextMessage(fmt.Sprintf("💰 請輸入您的%s金額（例如：10000）", name))}
}

func (d *Dispatcher) setBudgetAmount(ctx context.Context, userID string, period domain.BudgetPeriod, amount float64) []domain.Message {
	if amount <= 0 {
		// Validation failure re-prompts with the dialogue still open.
		return []domain.Message{domain.TextMessage("⚠️ 金額格式錯誤，請輸入正整數（例如：10000）")}
	}
	text, err := d.deps.Ledger.SetBudget(ctx, userID, domain.CoerceAmount(amount), period)
	if err != nil {
		// The write this state was gating failed, so the state stays.
		log.Printf("set budget failed: %v", err)
		return []domain.Message{domain.TextMessage(text)}
	}
	d.deps.States.Clear(userID)
	return []domain.Message{domain.TextMessage(text)}
}

func (d *Dispatcher) stockQuery(ctx context.Context, codes []string) []domain.Message {
	var batch []domain.Message
	for _, code := range codes {
		batch = append(batch, d.stockReport(ctx, code))
	}
	return batch
}

// stockReport assembles one analysis message for a single stock code.
// The quick reply menu rides on the message so follow-up actions are
// one tap away.
func (d *Dispatcher) stockReport(ctx context.Context, code string) domain.Message {
	quote, err := d.deps.Stocks.Quote(ctx, code)
	if err != nil {
		log.Printf("quote fetch failed for %s: %v", code, err)
		return domain.TextMessage(fmt.Sprintf("⚠️ 查無 %s 的股票資訊，請確認代碼是否正確！", code))
	}

	arrow := "🔺"
	if quote.Change < 0 {
		arrow = "🔻"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📈 %s（%s）\n", quote.Name, quote.Code)
	fmt.Fprintf(&b, "💰 最新價格：%.2f 元（%s%.2f / %.2f%%）\n", quote.Price, arrow, math.Abs(quote.Change), quote.ChangePct)

	candles, err := d.deps.Stocks.History(ctx, code, historyMonths)
	if err != nil {
		log.Printf("history fetch failed for %s: %v", code, err)
		b.WriteString("⚠️ 歷史數據不足，無法計算技術指標")
	} else if signals, aerr := stock.Analyze(candles); aerr != nil {
		b.WriteString("⚠️ 歷史數據不足，無法計算技術指標")
	} else {
		b.WriteString(signals)
	}

	if d.deps.Predictor != nil {
		if pred, perr := d.deps.Predictor.Predict(ctx, code); perr != nil {
			log.Printf("prediction failed for %s: %v", code, perr)
			b.WriteString("\n⚠️ 無法取得股價預測")
		} else {
			fmt.Fprintf(&b, "\n🤖 AI 預測明日股價：%.2f 元", pred)
		}
	}

	msg := domain.TextMessage(b.String())
	msg.QuickReplies = stockMenu(quote.Code, quote.Name)
	return msg
}

func (d *Dispatcher) watchlistReport(ctx context.Context, userID string) []domain.Message {
	entries, err := d.deps.Watchlist.List(ctx, userID)
	if err != nil {
		log.Printf("watchlist list failed: %v", err)
		return []domain.Message{domain.TextMessage("❌ 查詢關注股票時發生錯誤，請稍後再試！")}
	}
	if len(entries) == 0 {
		return []domain.Message{domain.TextMessage("⚠️你目前沒有關注任何股票！")}
	}

	var b strings.Builder
	for _, e := range entries {
		quote, qerr := d.deps.Stocks.Quote(ctx, e.StockCode)
		if qerr != nil {
			fmt.Fprintf(&b, "\n⚠️ %s（%s）資訊查詢失敗\n", e.StockName, e.StockCode)
			continue
		}

		fmt.Fprintf(&b, "📌%s—%s：\n", e.StockCode, e.StockName)
		fmt.Fprintf(&b, "日期: %s\n", d.deps.Now().Format("2006-01-02"))
		fmt.Fprintf(&b, "🔹 最新收盤價: %.2f 元\n", quote.Price)
		fmt.Fprintf(&b, "🔹 開盤價: %.2f 元\n", quote.Open)
		fmt.Fprintf(&b, "🔹 最高價: %.2f 元\n", quote.High)
		fmt.Fprintf(&b, "🔹 最低價: %.2f 元\n", quote.Low)
		arrow := "🔺"
		if quote.Change < 0 {
			arrow = "🔻"
		}
		fmt.Fprintf(&b, "🔹 漲跌: %s %.2f 元 (%.2f%%)\n", arrow, math.Abs(quote.Change), quote.ChangePct)

		if candles, herr := d.deps.Stocks.History(ctx, e.StockCode, 1); herr == nil && len(candles) >= 5 {
			closes := extractCloses(candles)
			mean, std := stock.RecentStats(closes, 5)
			fmt.Fprintf(&b, "🔹 近五日平均價: %.2f 元\n", mean)
			fmt.Fprintf(&b, "🔹 近五日標準差: %.2f\n", std)
		}
		b.WriteString("———————————————\n")
	}
	return []domain.Message{domain.TextMessage(strings.TrimSpace(b.String()))}
}

func (d *Dispatcher) freeChat(ctx context.Context, text string) []domain.Message {
	if d.deps.AI == nil {
		return []domain.Message{domain.TextMessage("❌ 抱歉，我現在無法回應您的問題。")}
	}
	reply, err := d.deps.AI.FreeChat(ctx, text)
	if err != nil {
		log.Printf("free chat failed: %v", err)
		return []domain.Message{domain.TextMessage("❌ 抱歉，我現在無法回應您的問題。")}
	}
	return []domain.Message{domain.TextMessage(reply)}
}

// saveStatic writes a generated asset under the static dir and returns
// its public URL. Old assets are pruned opportunistically.
func (d *Dispatcher) saveStatic(name string, data []byte) (string, error) {
	if d.deps.BaseURL == "" {
		return "", fmt.Errorf("no base url configured")
	}
	path := filepath.Join(d.deps.StaticDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write static asset: %w", err)
	}
	return d.deps.BaseURL + "/static/" + name, nil
}

func extractCloses(candles []stock.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// formatAmount drops the decimals for whole amounts so postback
// payloads round trip cleanly.
func formatAmount(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
