package stock

import (
	"fmt"
	"strings"
)

const volumeSurgeRatio = 1.5

// Analyze renders the technical readout for a daily candle series: the
// latest indicator values, crossover events against the previous bar,
// and a trading stance derived from the same thresholds. Needs one bar
// more than ComputeIndicators so crossovers can be detected.
func Analyze(candles []Candle) (string, error) {
	if len(candles) < minHistoryRows+1 {
		return "", fmt.Errorf("need at least %d candles, got %d", minHistoryRows+1, len(candles))
	}

	closes := extractCloses(candles)
	cur, err := ComputeIndicators(closes)
	if err != nil {
		return "", err
	}
	prev, err := ComputeIndicators(closes[:len(closes)-1])
	if err != nil {
		return "", err
	}

	lines := []string{
		"技術指標訊號：",
		fmt.Sprintf("🔹 MA5：%.2f  |  MA20：%.2f", cur.MA5, cur.MA20),
		fmt.Sprintf("🔹 RSI：%.2f", cur.RSI14),
		fmt.Sprintf("🔹 MACD：%.2f  |  信號線：%.2f", cur.MACD, cur.MACDSignal),
	}

	if cur.MA5 > cur.MA20 && prev.MA5 <= prev.MA20 {
		lines = append(lines, "✅ MA5 上穿 MA20（黃金交叉）")
	}
	if cur.MA5 < cur.MA20 && prev.MA5 >= prev.MA20 {
		lines = append(lines, "❌ MA5 下穿 MA20（死亡交叉）")
	}
	if cur.RSI14 < 30 {
		lines = append(lines, "✅ RSI < 30，超賣區，可能反彈")
	}
	if cur.RSI14 > 70 {
		lines = append(lines, "❌ RSI > 70，超買區，可能回調")
	}
	if cur.MACD > cur.MACDSignal && prev.MACD <= prev.MACDSignal {
		lines = append(lines, "✅ MACD 黃金交叉（買入訊號）")
	}
	if cur.MACD < cur.MACDSignal && prev.MACD >= prev.MACDSignal {
		lines = append(lines, "❌ MACD 死亡交叉（賣出訊號）")
	}

	recommendation, advice := stance(cur, volumeSurge(candles))
	lines = append(lines, "------------------------------", recommendation)
	if advice != "" {
		lines = append(lines, advice)
	}
	return strings.Join(lines, "\n"), nil
}

// stance maps the latest indicator values to a recommendation. The
// branches are ordered; the first match wins.
func stance(ind IndicatorSet, surge bool) (recommendation, advice string) {
	switch {
	case ind.MA5 > ind.MA20 && ind.RSI14 > 40 && ind.RSI14 < 60:
		return "📈 建議：買入",
			fmt.Sprintf("🔍 操作建議：若 RSI 突破 60，或價格站穩 MA5（%.2f），可考慮進場", ind.MA5)
	case ind.MA5 < ind.MA20 && ind.RSI14 > 40 && ind.RSI14 < 60:
		return "📉 建議：賣出",
			fmt.Sprintf("🔍 操作建議：若 RSI 跌破 40，或價格跌破 MA5（%.2f），可考慮減倉", ind.MA5)
	case ind.RSI14 > 70 && ind.MA5 > ind.MA20 && surge:
		return "⚠️ 建議：持續觀察",
			fmt.Sprintf("🔍 操作建議：若 RSI 回落至 65 以下，或價格跌破 MA5（%.2f），應設停利點", ind.MA5)
	case ind.RSI14 < 30 && ind.MA5 < ind.MA20 && !surge:
		return "⚠️ 建議：持續觀察",
			fmt.Sprintf("🔍 操作建議：若 RSI 回升至 35 以上，或價格突破 MA5（%.2f），可能是短期反彈", ind.MA5)
	case ind.MACD > ind.MACDSignal && ind.RSI14 > 50:
		return "📈 建議：買入",
			fmt.Sprintf("🔍 操作建議：若價格站穩 MA20（%.2f），確認支撐，則可進場", ind.MA20)
	case ind.MACD < ind.MACDSignal && ind.RSI14 < 50:
		return "📉 建議：賣出",
			fmt.Sprintf("🔍 操作建議：若價格跌破 MA20（%.2f），趨勢確認轉弱，應考慮停損", ind.MA20)
	}
	return "📢 建議：市場觀望，趨勢不明", ""
}

// volumeSurge reports whether the latest volume runs hot against its
// own 5-day average.
func volumeSurge(candles []Candle) bool {
	if len(candles) < 5 {
		return false
	}
	var sum float64
	for _, c := range candles[len(candles)-5:] {
		sum += float64(c.Volume)
	}
	avg := sum / 5
	return avg > 0 && float64(candles[len(candles)-1].Volume) > avg*volumeSurgeRatio
}

func extractCloses(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}
