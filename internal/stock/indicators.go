package stock

import (
	"fmt"
	"math"
)

const (
	rsiPeriod        = 14
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
	minHistoryRows   = 30
)

// IndicatorSet carries the latest values of the indicators quoted in chat.
type IndicatorSet struct {
	MA5        float64
	MA20       float64
	RSI14      float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
}

// ComputeIndicators derives indicators from daily closes, oldest first.
func ComputeIndicators(closes []float64) (IndicatorSet, error) {
	if len(closes) < minHistoryRows {
		return IndicatorSet{}, fmt.Errorf("indicators: need %d closes, got %d", minHistoryRows, len(closes))
	}

	ma5 := MovingAverage(closes, 5)
	ma20 := MovingAverage(closes, 20)
	rsi := rsiSeries(closes, rsiPeriod)
	macdLine, signalLine := macdSeries(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)

	last := len(closes) - 1
	set := IndicatorSet{
		MA5:        ma5[last],
		MA20:       ma20[last],
		RSI14:      rsi[last],
		MACD:       macdLine[last],
		MACDSignal: signalLine[last],
	}
	set.MACDHist = set.MACD - set.MACDSignal
	return set, nil
}

// MovingAverage returns the simple moving average series. Positions with
// fewer than `period` preceding values are NaN.
func MovingAverage(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// RecentStats returns mean and standard deviation of the last n closes.
func RecentStats(closes []float64, n int) (mean, std float64) {
	if n <= 0 || len(closes) == 0 {
		return 0, 0
	}
	if n > len(closes) {
		n = len(closes)
	}
	return meanStd(closes[len(closes)-n:])
}

func rsiSeries(closes []float64, period int) []float64 {
	series := make([]float64, len(closes))
	for i := range series {
		series[i] = math.NaN()
	}
	if len(closes) <= period {
		return series
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	series[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		series[i] = rsiFromAvg(avgGain, avgLoss)
	}
	return series
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func macdSeries(values []float64, fast, slow, signal int) ([]float64, []float64) {
	fastEMA := emaSeries(values, fast)
	slowEMA := emaSeries(values, slow)
	macdLine := make([]float64, len(values))
	for i := range values {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine := emaSeries(macdLine, signal)
	return macdLine, signalLine
}

func emaSeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	if len(values) == 1 {
		return mean, 0
	}
	for _, v := range values {
		d := v - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(values)))
	return mean, std
}
