package stock

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(srv *httptest.Server) *Client {
	return &Client{
		http:     srv.Client(),
		quoteURL: srv.URL + "/quote",
		chartURL: srv.URL + "/chart",
	}
}

func TestQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ex_ch"); !strings.Contains(got, "tse_2330.tw") {
			t.Errorf("ex_ch = %q, want tse_2330.tw channel", got)
		}
		fmt.Fprint(w, `{"msgArray":[{"c":"2330","n":"台積電","z":"1000.00","y":"980.00","o":"985.00","h":"1005.00","l":"982.00","v":"25123","t":"13:30:00"}]}`)
	}))
	defer srv.Close()

	q, err := newTestClient(srv).Quote(context.Background(), "2330")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Name != "台積電" {
		t.Fatalf("Name = %q", q.Name)
	}
	if q.Price != 1000 || q.PrevClose != 980 {
		t.Fatalf("Price=%v PrevClose=%v", q.Price, q.PrevClose)
	}
	if q.Change != 20 {
		t.Fatalf("Change = %v, want 20", q.Change)
	}
	if q.Volume != 25123 {
		t.Fatalf("Volume = %v", q.Volume)
	}
}

func TestQuoteNoTradeFallsBackToPrevClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"msgArray":[{"c":"2330","n":"台積電","z":"-","y":"980.00","v":"-"}]}`)
	}))
	defer srv.Close()

	q, err := newTestClient(srv).Quote(context.Background(), "2330")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Price != 980 {
		t.Fatalf("Price = %v, want prev close 980", q.Price)
	}
	if q.Change != 0 {
		t.Fatalf("Change = %v, want 0", q.Change)
	}
}

func TestQuoteUnknownCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"msgArray":[]}`)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).Quote(context.Background(), "9999"); err == nil {
		t.Fatal("expected error for unknown code")
	}
}

func TestHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "2330.TW") {
			t.Errorf("path = %q, want 2330.TW", r.URL.Path)
		}
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1700000000,1700086400,1700172800],
			"indicators":{"quote":[{"open":[100,101,null],"high":[102,103,null],
			"low":[99,100,null],"close":[101,102,null],"volume":[1000,2000,null]}]}}]}}`)
	}))
	defer srv.Close()

	candles, err := newTestClient(srv).History(context.Background(), "2330", 6)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	// The all-null third bar is dropped.
	if len(candles) != 2 {
		t.Fatalf("len = %d, want 2", len(candles))
	}
	if candles[0].Close != 101 || candles[1].Close != 102 {
		t.Fatalf("closes = %v, %v", candles[0].Close, candles[1].Close)
	}
	if candles[1].Volume != 2000 {
		t.Fatalf("volume = %v", candles[1].Volume)
	}
}

func TestHistoryFallsBackToOTC(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, ".TWO") {
			fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1700000000],
				"indicators":{"quote":[{"open":[50],"high":[51],"low":[49],"close":[50.5],"volume":[300]}]}}]}}`)
			return
		}
		fmt.Fprint(w, `{"chart":{"result":[]}}`)
	}))
	defer srv.Close()

	candles, err := newTestClient(srv).History(context.Background(), "6510", 6)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(candles) != 1 || candles[0].Close != 50.5 {
		t.Fatalf("candles = %+v", candles)
	}
}

func TestPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q", r.Method)
		}
		fmt.Fprint(w, `{"prediction":1012.5}`)
	}))
	defer srv.Close()

	p := NewPredictor(srv.URL + "/")
	got, err := p.Predict(context.Background(), "2330")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got != 1012.5 {
		t.Fatalf("prediction = %v", got)
	}
}

func TestNewPredictorEmptyURL(t *testing.T) {
	if NewPredictor("  ") != nil {
		t.Fatal("expected nil predictor for blank URL")
	}
}
