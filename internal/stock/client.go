// Package stock fetches Taiwanese equity quotes and daily history and
// derives the technical indicators shown in chat replies.
package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	quoteBaseURL   = "https://mis.twse.com.tw/stock/api/getStockInfo.jsp"
	chartBaseURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	requestTimeout = 10 * time.Second
	maxBodySize    = 4 << 20
)

// Quote is a realtime snapshot from the TWSE MIS endpoint.
type Quote struct {
	Code      string
	Name      string
	Price     float64
	PrevClose float64
	Open      float64
	High      float64
	Low       float64
	Change    float64
	ChangePct float64
	Volume    int64
	Time      string
}

// Candle is one daily bar of history.
type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Client talks to TWSE MIS for realtime quotes and Yahoo Finance for
// daily history. Zero value is not usable; call NewClient.
type Client struct {
	http     *http.Client
	quoteURL string
	chartURL string
}

func NewClient() *Client {
	return &Client{
		http:     &http.Client{Timeout: requestTimeout},
		quoteURL: quoteBaseURL,
		chartURL: chartBaseURL,
	}
}

type misResponse struct {
	MsgArray []map[string]string `json:"msgArray"`
}

// Quote returns the realtime snapshot for a stock code, checking the
// listed (tse) and over-the-counter (otc) boards in one request.
func (c *Client) Quote(ctx context.Context, code string) (*Quote, error) {
	q := url.Values{}
	q.Set("ex_ch", fmt.Sprintf("tse_%s.tw|otc_%s.tw", code, code))
	q.Set("json", "1")
	q.Set("delay", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.quoteURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build quote request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quote %s: %w", code, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch quote %s: status %d", code, resp.StatusCode)
	}

	var body misResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode quote %s: %w", code, err)
	}

	for _, row := range body.MsgArray {
		if row["n"] == "" {
			continue
		}
		return quoteFromRow(code, row), nil
	}
	return nil, fmt.Errorf("quote %s: no such stock", code)
}

func quoteFromRow(code string, row map[string]string) *Quote {
	q := &Quote{
		Code:      code,
		Name:      row["n"],
		Price:     misFloat(row["z"]),
		PrevClose: misFloat(row["y"]),
		Open:      misFloat(row["o"]),
		High:      misFloat(row["h"]),
		Low:       misFloat(row["l"]),
		Time:      row["t"],
	}
	if v, err := strconv.ParseInt(row["v"], 10, 64); err == nil {
		q.Volume = v
	}
	// Before the first trade of the day MIS reports "-" for the price.
	if q.Price == 0 {
		q.Price = q.PrevClose
	}
	if q.PrevClose != 0 {
		q.Change = q.Price - q.PrevClose
		q.ChangePct = q.Change / q.PrevClose * 100
	}
	return q
}

func misFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// History returns daily candles for the last `months` months, oldest
// first. Listed stocks resolve under the .TW suffix, OTC under .TWO.
func (c *Client) History(ctx context.Context, code string, months int) ([]Candle, error) {
	if months <= 0 {
		months = 6
	}
	candles, err := c.fetchChart(ctx, code+".TW", months)
	if err != nil || len(candles) == 0 {
		otc, otcErr := c.fetchChart(ctx, code+".TWO", months)
		if otcErr == nil && len(otc) > 0 {
			return otc, nil
		}
	}
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("history %s: no data", code)
	}
	return candles, nil
}

func (c *Client) fetchChart(ctx context.Context, symbol string, months int) ([]Candle, error) {
	u := fmt.Sprintf("%s/%s?range=%dmo&interval=1d", c.chartURL, url.PathEscape(symbol), months)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build chart request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch chart %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch chart %s: status %d", symbol, resp.StatusCode)
	}

	var body yahooChart
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode chart %s: %w", symbol, err)
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := body.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	candles := make([]Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		c := Candle{
			Date:  time.Unix(ts, 0),
			Close: *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			c.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			c.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			c.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			c.Volume = *quote.Volume[i]
		}
		candles = append(candles, c)
	}
	return candles, nil
}
