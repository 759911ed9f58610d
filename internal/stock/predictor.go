package stock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Predictor calls the external price-prediction service. A nil Predictor
// means no service is configured; callers skip the prediction line.
type Predictor struct {
	baseURL string
	http    *http.Client
}

func NewPredictor(baseURL string) *Predictor {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	return &Predictor{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type predictRequest struct {
	Code string `json:"code"`
}

type predictResponse struct {
	Prediction float64 `json:"prediction"`
}

// Predict returns the model's next-close estimate for a stock code.
func (p *Predictor) Predict(ctx context.Context, code string) (float64, error) {
	payload, err := json.Marshal(predictRequest{Code: code})
	if err != nil {
		return 0, fmt.Errorf("encode predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("predict %s: %w", code, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("predict %s: status %d", code, resp.StatusCode)
	}

	var body predictResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode predict %s: %w", code, err)
	}
	return body.Prediction, nil
}
