package dispatcher

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"life-assistant-bot/internal/domain"
	"life-assistant-bot/internal/imagefx"

	"github.com/google/uuid"
)

const msgBadPostback = "❌ 無法解析此操作，請重新點選按鈕。"

// HandlePostback routes a structured button payload. The grammar is
// comma-delimited with the command as the first token; a wrong field
// count fails closed with a parse message rather than guessing.
func (d *Dispatcher) HandlePostback(ctx context.Context, userID, data string) []domain.Message {
	ctx, span := d.tracer.Start(ctx, "dispatcher.postback")
	defer span.End()

	var batch []domain.Message
	d.deps.States.Do(userID, func() {
		batch = d.routePostback(ctx, userID, strings.TrimSpace(data))
	})
	return capBatch(batch)
}

func (d *Dispatcher) routePostback(ctx context.Context, userID, data string) []domain.Message {
	fields := strings.Split(data, ",")
	switch fields[0] {
	case "記帳":
		if len(fields) != 4 {
			return []domain.Message{domain.TextMessage(msgBadPostback)}
		}
		return d.confirmedTransaction(ctx, userID, fields[1], fields[2], fields[3])

	case "category":
		if len(fields) != 2 {
			return []domain.Message{domain.TextMessage(msgBadPostback)}
		}
		return d.categoryPrompt(userID, fields[1])

	case "watchlist":
		if len(fields) != 3 {
			return []domain.Message{domain.TextMessage(msgBadPostback)}
		}
		return d.watchlistAdd(ctx, userID, fields[1], fields[2])

	case "unwatchlist":
		if len(fields) != 3 {
			return []domain.Message{domain.TextMessage(msgBadPostback)}
		}
		return d.watchlistRemove(ctx, userID, fields[1], fields[2])

	case "filter":
		if len(fields) != 3 {
			return []domain.Message{domain.TextMessage(msgBadPostback)}
		}
		return d.applyFilter(ctx, fields[1], fields[2])

	case "news":
		if len(fields) != 2 {
			return []domain.Message{domain.TextMessage(msgBadPostback)}
		}
		return d.stockNews(ctx, fields[1])

	case "trend":
		if len(fields) != 3 {
			return []domain.Message{domain.TextMessage(msgBadPostback)}
		}
		return d.stockChart(ctx, fields[1], fields[2], false)

	case "kchart":
		if len(fields) != 3 {
			return []domain.Message{domain.TextMessage(msgBadPostback)}
		}
		return d.stockChart(ctx, fields[1], fields[2], true)

	case "breed_detect":
		if len(fields) != 2 {
			return []domain.Message{domain.TextMessage(msgBadPostback)}
		}
		return d.breedDetect(ctx, fields[1])

	case "查詢今日支出":
		return d.dispatch(ctx, userID, domain.Intent{
			Kind:  domain.IntentQueryExpense,
			Scope: domain.QueryScope{Window: domain.WindowToday, Type: domain.TypeExpense},
		})
	case "查詢本週支出":
		return d.dispatch(ctx, userID, domain.Intent{
			Kind:  domain.IntentQueryExpense,
			Scope: domain.QueryScope{Window: domain.WindowWeek, Type: domain.TypeExpense},
		})
	case "查詢本月支出":
		return d.dispatch(ctx, userID, domain.Intent{
			Kind:  domain.IntentQueryExpense,
			Scope: domain.QueryScope{Window: domain.WindowMonth, Type: domain.TypeExpense},
		})
	case "查詢本月收入":
		return d.dispatch(ctx, userID, domain.Intent{
			Kind:  domain.IntentQueryExpense,
			Scope: domain.QueryScope{Window: domain.WindowMonth, Type: domain.TypeIncome},
		})

	case "設定月預算":
		return d.budgetPrompt(userID, domain.PeriodMonthly)
	case "設定週預算":
		return d.budgetPrompt(userID, domain.PeriodWeekly)

	case "查詢我的股票":
		return d.watchlistReport(ctx, userID)

	case "search_new_stock":
		return []domain.Message{domain.TextMessage("🔍 請直接輸入股票代碼（例如：2330），即可查詢即時股價與技術分析！")}
	}
	return []domain.Message{domain.TextMessage(msgBadPostback)}
}

// confirmedTransaction completes the two phase commit started by the
// record confirmation: the user has now picked income or expense.
func (d *Dispatcher) confirmedTransaction(ctx context.Context, userID, rawType, category, rawAmount string) []domain.Message {
	typ, ok := domain.ParseTransactionType(rawType)
	if !ok {
		return []domain.Message{domain.TextMessage(msgBadPostback)}
	}
	amount, err := strconv.ParseFloat(rawAmount, 64)
	if err != nil || amount <= 0 {
		return []domain.Message{domain.TextMessage(msgBadPostback)}
	}
	text, err := d.deps.Ledger.Record(ctx, userID, category, amount, typ)
	if err != nil {
		log.Printf("ledger record failed: %v", err)
	}
	return []domain.Message{domain.TextMessage(text)}
}

func (d *Dispatcher) watchlistAdd(ctx context.Context, userID, code, name string) []domain.Message {
	entry := domain.WatchlistEntry{
		UserID:    userID,
		UserName:  d.deps.Names.DisplayName(ctx, userID),
		StockCode: code,
		StockName: name,
	}
	added, err := d.deps.Watchlist.Add(ctx, entry)
	if err != nil {
		log.Printf("watchlist add failed: %v", err)
		return []domain.Message{domain.TextMessage("❌ 無法加入關注清單，請稍後再試！")}
	}
	if !added {
		return []domain.Message{domain.TextMessage(fmt.Sprintf("⚠️ 你已經關注 %s（%s）了！", code, name))}
	}
	return []domain.Message{domain.TextMessage(fmt.Sprintf("✅ 成功關注 %s（%s）！", code, name))}
}

func (d *Dispatcher) watchlistRemove(ctx context.Context, userID, code, name string) []domain.Message {
	removed, err := d.deps.Watchlist.Remove(ctx, userID, code)
	if err != nil {
		log.Printf("watchlist remove failed: %v", err)
		return []domain.Message{domain.TextMessage("❌ 無法取消關注，請稍後再試！")}
	}
	if !removed {
		return []domain.Message{domain.TextMessage(fmt.Sprintf("⚠️ 你尚未關注 %s（%s），無法取消！", name, code))}
	}
	return []domain.Message{domain.TextMessage(fmt.Sprintf("✅ 已成功將 %s（%s）從關注清單移除！", name, code))}
}

// applyFilter runs a native raster filter in process; styles without a
// native implementation go to the external filter service when one is
// configured.
func (d *Dispatcher) applyFilter(ctx context.Context, filterID, imagePath string) []domain.Message {
	name := "filtered_" + uuid.NewString() + ".jpg"

	if imagefx.IsNative(filterID) {
		dst := d.staticPath(name)
		if err := imagefx.ApplyToFile(filterID, imagePath, dst); err != nil {
			log.Printf("filter %s failed: %v", filterID, err)
			return []domain.Message{domain.TextMessage("❌ 圖片處理失敗，請重新上傳照片再試一次！")}
		}
		d.pruneStatic()
		if d.deps.BaseURL == "" {
			return []domain.Message{domain.TextMessage(msgUnavailable)}
		}
		return []domain.Message{domain.ImageMessage(d.deps.BaseURL + "/static/" + name)}
	}

	if d.deps.Filters == nil {
		return []domain.Message{domain.TextMessage("⚠️ 此特效目前尚未開放，敬請期待！")}
	}
	out, err := d.deps.Filters.Apply(ctx, filterID, imagePath)
	if err != nil {
		log.Printf("filter service %s failed: %v", filterID, err)
		return []domain.Message{domain.TextMessage("❌ 圖片處理失敗，請重新上傳照片再試一次！")}
	}
	url, err := d.saveStatic(name, out)
	if err != nil {
		log.Printf("filtered image save failed: %v", err)
		return []domain.Message{domain.TextMessage(msgUnavailable)}
	}
	d.pruneStatic()
	return []domain.Message{domain.ImageMessage(url)}
}

func (d *Dispatcher) stockNews(ctx context.Context, code string) []domain.Message {
	query := code
	if quote, err := d.deps.Stocks.Quote(ctx, code); err == nil && quote.Name != "" {
		query = quote.Name
	}
	text, err := d.deps.StockNews.Search(ctx, query)
	if err != nil {
		log.Printf("stock news search failed: %v", err)
		return []domain.Message{domain.TextMessage(msgUnavailable)}
	}
	return []domain.Message{domain.TextMessage(text)}
}

func (d *Dispatcher) stockChart(ctx context.Context, code, name string, kchart bool) []domain.Message {
	failure := "⚠️ 無法產生走勢圖，請稍後再試！"
	if kchart {
		failure = "⚠️ 無法產生 K 線圖，請稍後再試！"
	}

	candles, err := d.deps.Stocks.History(ctx, code, historyMonths)
	if err != nil {
		log.Printf("history fetch failed for %s: %v", code, err)
		return []domain.Message{domain.TextMessage(failure)}
	}

	var png []byte
	caption := fmt.Sprintf("📈 %s（%s）近 %d 個月走勢圖", name, code, historyMonths)
	if kchart {
		caption = fmt.Sprintf("📊 %s（%s）近 %d 個月 K 線圖", name, code, historyMonths)
		png, err = d.deps.Charts.RenderCandles(candles)
	} else {
		png, err = d.deps.Charts.RenderTrend(candles)
	}
	if err != nil {
		log.Printf("chart render failed for %s: %v", code, err)
		return []domain.Message{domain.TextMessage(failure)}
	}

	url, err := d.saveStatic("chart_"+uuid.NewString()+".png", png)
	if err != nil {
		log.Printf("chart save failed: %v", err)
		return []domain.Message{domain.TextMessage(failure)}
	}
	d.pruneStatic()
	return []domain.Message{domain.TextMessage(caption), domain.ImageMessage(url)}
}

func (d *Dispatcher) breedDetect(ctx context.Context, imagePath string) []domain.Message {
	if d.deps.Breeds == nil {
		return []domain.Message{domain.TextMessage("⚠️ 品種辨識服務目前未開放，敬請期待！")}
	}
	res, err := d.deps.Breeds.Classify(ctx, imagePath)
	if err != nil {
		log.Printf("breed classification failed: %v", err)
		return []domain.Message{domain.TextMessage("❌ 品種辨識失敗，請稍後再試！")}
	}
	text := fmt.Sprintf("🔎 品種辨識結果：\n🐾 品種：%s（%s）\n📊 信心度：%.1f%%",
		res.NameLocal, res.NameEn, res.Confidence*100)
	return []domain.Message{domain.TextMessage(text)}
}

func (d *Dispatcher) staticPath(name string) string {
	return d.deps.StaticDir + "/" + name
}

func (d *Dispatcher) pruneStatic() {
	if err := imagefx.PruneOld(d.deps.StaticDir, staticKeep); err != nil {
		log.Printf("static prune failed: %v", err)
	}
}
