// Package chart renders the PNG images sent back through chat: the
// close/moving-average trend chart, the candlestick chart, and the
// news keyword frequency chart.
package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"life-assistant-bot/internal/stock"
)

const (
	chartWidth  = 960
	chartHeight = 640
	maxBars     = 120
)

var (
	colBackground = color.RGBA{R: 250, G: 252, B: 255, A: 255}
	colGrid       = color.RGBA{R: 225, G: 232, B: 240, A: 255}
	colBull       = color.RGBA{R: 210, G: 61, B: 87, A: 255}
	colBear       = color.RGBA{R: 18, G: 140, B: 126, A: 255}
	colWick       = color.RGBA{R: 58, G: 64, B: 90, A: 255}
	colClose      = color.RGBA{R: 62, G: 106, B: 214, A: 255}
	colMA5        = color.RGBA{R: 255, G: 149, B: 0, A: 255}
	colMA20       = color.RGBA{R: 104, G: 122, B: 146, A: 255}
	colVolume     = color.RGBA{R: 120, G: 139, B: 164, A: 255}
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderTrend draws daily closes with MA5 and MA20 overlays and a
// volume pane underneath.
func (r *Renderer) RenderTrend(candles []stock.Candle) ([]byte, error) {
	series := clipCandles(candles)
	if len(series) < 2 {
		return nil, fmt.Errorf("need at least 2 candles to render trend")
	}

	img, mainRect, auxRect := newCanvas()

	closes := extractCloses(series)
	ma5 := stock.MovingAverage(closes, 5)
	ma20 := stock.MovingAverage(closes, 20)

	minV, maxV := finiteBounds(closes)
	drawSeries(img, mainRect, closes, minV, maxV, colClose)
	drawSeries(img, mainRect, ma5, minV, maxV, colMA5)
	drawSeries(img, mainRect, ma20, minV, maxV, colMA20)
	drawVolumes(img, auxRect, series)

	return encodePNG(img)
}

// RenderCandles draws a candlestick chart with a volume pane. Taiwanese
// market convention: red body for up days, green for down days.
func (r *Renderer) RenderCandles(candles []stock.Candle) ([]byte, error) {
	series := clipCandles(candles)
	if len(series) < 2 {
		return nil, fmt.Errorf("need at least 2 candles to render chart")
	}

	img, mainRect, auxRect := newCanvas()
	drawCandles(img, mainRect, series)
	drawVolumes(img, auxRect, series)

	return encodePNG(img)
}

func newCanvas() (*image.RGBA, image.Rectangle, image.Rectangle) {
	img := image.NewRGBA(image.Rect(0, 0, chartWidth, chartHeight))
	fillRect(img, img.Bounds(), colBackground)

	mainRect := image.Rect(60, 20, chartWidth-20, (chartHeight*72)/100)
	auxRect := image.Rect(60, mainRect.Max.Y+16, chartWidth-20, chartHeight-30)
	drawGrid(img, mainRect, 8, 6)
	drawGrid(img, auxRect, 8, 3)
	return img, mainRect, auxRect
}

func encodePNG(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clipCandles(candles []stock.Candle) []stock.Candle {
	if len(candles) > maxBars {
		return candles[len(candles)-maxBars:]
	}
	return candles
}

func drawCandles(img *image.RGBA, rect image.Rectangle, candles []stock.Candle) {
	minPrice := candles[0].Low
	maxPrice := candles[0].High
	for _, c := range candles {
		if c.Low < minPrice {
			minPrice = c.Low
		}
		if c.High > maxPrice {
			maxPrice = c.High
		}
	}
	if maxPrice <= minPrice {
		maxPrice = minPrice + 1
	}

	candleWidth := max(3, (rect.Dx()-10)/len(candles)-1)
	for i, c := range candles {
		x := mapIndexToX(i, len(candles), rect)
		highY := mapValueToY(c.High, minPrice, maxPrice, rect)
		lowY := mapValueToY(c.Low, minPrice, maxPrice, rect)
		drawLine(img, x, highY, x, lowY, colWick)

		openY := mapValueToY(c.Open, minPrice, maxPrice, rect)
		closeY := mapValueToY(c.Close, minPrice, maxPrice, rect)
		top := min(openY, closeY)
		bottom := max(openY, closeY)
		if bottom-top < 2 {
			bottom = top + 2
		}

		bodyColor := colBull
		if c.Close < c.Open {
			bodyColor = colBear
		}
		fillRect(img, image.Rect(x-candleWidth/2, top, x+candleWidth/2+1, bottom+1), bodyColor)
	}
}

func drawVolumes(img *image.RGBA, rect image.Rectangle, candles []stock.Candle) {
	volumes := make([]float64, len(candles))
	for i := range candles {
		volumes[i] = float64(candles[i].Volume)
	}
	_, maxV := finiteBounds(volumes)
	drawBars(img, rect, volumes, 0, maxV, colVolume)
}

func drawSeries(img *image.RGBA, rect image.Rectangle, series []float64, minV, maxV float64, col color.RGBA) {
	lastX, lastY := -1, -1
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			lastX, lastY = -1, -1
			continue
		}
		x := mapIndexToX(i, len(series), rect)
		y := mapValueToY(v, minV, maxV, rect)
		if lastX >= 0 {
			drawLine(img, lastX, lastY, x, y, col)
		}
		lastX, lastY = x, y
	}
}

func drawBars(img *image.RGBA, rect image.Rectangle, series []float64, minV, maxV float64, col color.RGBA) {
	barW := max(1, (rect.Dx()-10)/len(series)-1)
	zeroY := mapValueToY(0, minV, maxV, rect)
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		x := mapIndexToX(i, len(series), rect)
		y := mapValueToY(v, minV, maxV, rect)
		top := min(y, zeroY)
		bottom := max(y, zeroY)
		fillRect(img, image.Rect(x-barW/2, top, x+barW/2+1, bottom+1), col)
	}
}

func drawGrid(img *image.RGBA, rect image.Rectangle, verticalLines, horizontalLines int) {
	for i := 0; i <= verticalLines; i++ {
		x := rect.Min.X + (rect.Dx()*i)/max(1, verticalLines)
		drawLine(img, x, rect.Min.Y, x, rect.Max.Y, colGrid)
	}
	for i := 0; i <= horizontalLines; i++ {
		y := rect.Min.Y + (rect.Dy()*i)/max(1, horizontalLines)
		drawLine(img, rect.Min.X, y, rect.Max.X, y, colGrid)
	}
}

func mapIndexToX(idx, total int, rect image.Rectangle) int {
	if total <= 1 {
		return rect.Min.X
	}
	return rect.Min.X + (idx*(rect.Dx()-1))/(total-1)
}

func mapValueToY(value, minV, maxV float64, rect image.Rectangle) int {
	if maxV <= minV {
		return rect.Max.Y
	}
	ratio := (value - minV) / (maxV - minV)
	ratio = math.Max(0, math.Min(1, ratio))
	return rect.Max.Y - int(ratio*float64(rect.Dy()-1))
}

func finiteBounds(values []float64) (float64, float64) {
	minV := math.Inf(1)
	maxV := math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	if math.IsInf(minV, 1) || math.IsInf(maxV, -1) {
		return 0, 1
	}
	if minV == maxV {
		return minV, maxV + 1
	}
	return minV, maxV
}

func extractCloses(candles []stock.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

func fillRect(img *image.RGBA, rect image.Rectangle, col color.RGBA) {
	r := rect.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

func drawLine(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		if image.Pt(x0, y0).In(img.Bounds()) {
			img.SetRGBA(x0, y0, col)
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			if x0 == x1 {
				break
			}
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				break
			}
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
