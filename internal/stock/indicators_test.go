package stock

import (
	"math"
	"testing"
)

func TestMovingAverage(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := MovingAverage(values, 3)

	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Fatalf("expected NaN before the window fills, got %v", out[:2])
	}
	if out[2] != 2 || out[3] != 3 || out[4] != 4 {
		t.Fatalf("unexpected averages: %v", out[2:])
	}
}

func TestRSIAllGains(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	series := rsiSeries(closes, rsiPeriod)
	last := series[len(series)-1]
	if last != 100 {
		t.Fatalf("rsi of a pure uptrend = %v, want 100", last)
	}
}

func TestRSITooShort(t *testing.T) {
	series := rsiSeries([]float64{1, 2, 3}, rsiPeriod)
	for i, v := range series {
		if !math.IsNaN(v) {
			t.Fatalf("series[%d] = %v, want NaN", i, v)
		}
	}
}

func TestMACDHistogramSign(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	// A late rally pushes the fast EMA above the slow one.
	for i := 50; i < 60; i++ {
		closes[i] = 100 + float64(i-49)*2
	}
	macdLine, signalLine := macdSeries(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	last := len(closes) - 1
	if macdLine[last]-signalLine[last] <= 0 {
		t.Fatalf("expected positive histogram after rally, got %v", macdLine[last]-signalLine[last])
	}
}

func TestComputeIndicatorsTooFewRows(t *testing.T) {
	if _, err := ComputeIndicators(make([]float64, minHistoryRows-1)); err == nil {
		t.Fatal("expected error for short history")
	}
}

func TestComputeIndicators(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 50 + float64(i)
	}
	set, err := ComputeIndicators(closes)
	if err != nil {
		t.Fatalf("ComputeIndicators: %v", err)
	}
	if set.MA5 != 87 {
		t.Fatalf("MA5 = %v, want 87", set.MA5)
	}
	if set.MA20 != 79.5 {
		t.Fatalf("MA20 = %v, want 79.5", set.MA20)
	}
	if set.RSI14 != 100 {
		t.Fatalf("RSI14 = %v, want 100 for a pure uptrend", set.RSI14)
	}
	if got := set.MACD - set.MACDSignal; math.Abs(got-set.MACDHist) > 1e-12 {
		t.Fatalf("MACDHist = %v, want %v", set.MACDHist, got)
	}
}

func TestRecentStats(t *testing.T) {
	closes := []float64{1, 1, 1, 10, 20, 30, 40, 50}
	mean, std := RecentStats(closes, 5)
	if mean != 30 {
		t.Fatalf("mean = %v, want 30", mean)
	}
	if math.Abs(std-math.Sqrt(200)) > 1e-9 {
		t.Fatalf("std = %v, want sqrt(200)", std)
	}

	mean, std = RecentStats([]float64{7}, 5)
	if mean != 7 || std != 0 {
		t.Fatalf("short input: mean=%v std=%v", mean, std)
	}
}
