package dispatcher

import (
	"fmt"

	"life-assistant-bot/internal/domain"
	"life-assistant-bot/internal/imagefx"
)

func expenseMenu() []domain.Action {
	return []domain.Action{
		{Label: "查詢今日支出", Data: "查詢今日支出", DisplayText: "我要查詢今日支出"},
		{Label: "查詢本週支出", Data: "查詢本週支出", DisplayText: "我要查詢本週支出"},
		{Label: "查詢本月支出", Data: "查詢本月支出", DisplayText: "我要查詢本月支出"},
		{Label: "查詢本月收入", Data: "查詢本月收入", DisplayText: "我要查詢本月收入"},
		{Label: "設定月預算", Data: "設定月預算", DisplayText: "我要設定月預算"},
		{Label: "設定週預算", Data: "設定週預算", DisplayText: "我要設定週預算"},
	}
}

func stockMenu(code, name string) []domain.Action {
	return []domain.Action{
		{Label: "⭐ 關注", Data: fmt.Sprintf("watchlist,%s,%s", code, name)},
		{Label: "❌ 取消關注", Data: fmt.Sprintf("unwatchlist,%s,%s", code, name)},
		{Label: "📰 相關新聞", Data: fmt.Sprintf("news,%s", code)},
		{Label: "📈 走勢圖", Data: fmt.Sprintf("trend,%s,%s", code, name)},
		{Label: "📊 K 線圖", Data: fmt.Sprintf("kchart,%s,%s", code, name)},
		{Label: "📌 查詢我的股票", Data: "查詢我的股票"},
		{Label: "🔍 其他股票", Data: "search_new_stock"},
	}
}

func imageMenu(imagePath string) []domain.Action {
	return []domain.Action{
		{Label: "✏️ 素描風格", Data: fmt.Sprintf("filter,%s,%s", imagefx.FilterSketch, imagePath)},
		{Label: "🖼️ 浮雕效果", Data: fmt.Sprintf("filter,%s,%s", imagefx.FilterEmboss, imagePath)},
		{Label: "🖌️ 油畫風格", Data: fmt.Sprintf("filter,oil_paint,%s", imagePath)},
		{Label: "📽️ 黑白復古", Data: fmt.Sprintf("filter,%s,%s", imagefx.FilterBlackWhite, imagePath)},
		{Label: "✨ 霧面柔化", Data: fmt.Sprintf("filter,%s,%s", imagefx.FilterSoftGlow, imagePath)},
		{Label: "👀 大眼特效", Data: fmt.Sprintf("filter,big_eyes,%s", imagePath)},
		{Label: "🐱🐶品種辨識", Data: fmt.Sprintf("breed_detect,%s", imagePath)},
	}
}
