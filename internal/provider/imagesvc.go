package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BreedResult is the top prediction from the hosted breed classifier.
type BreedResult struct {
	NameEn     string  `json:"name_en"`
	NameLocal  string  `json:"name_local"`
	Confidence float64 `json:"confidence"`
}

// BreedClassifier calls the hosted cat/dog breed model. Model inference
// stays out of process; this client only moves the image and the
// prediction. A nil client means the service is not configured.
type BreedClassifier struct {
	baseURL string
	http    *http.Client
}

func NewBreedClassifier(baseURL string) *BreedClassifier {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	return &BreedClassifier{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Classify uploads the image at path and returns the top prediction.
func (b *BreedClassifier) Classify(ctx context.Context, path string) (*BreedResult, error) {
	body, contentType, err := fileForm(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/predict", body)
	if err != nil {
		return nil, fmt.Errorf("build breed request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify breed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classify breed: status %d", resp.StatusCode)
	}

	var result BreedResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode breed result: %w", err)
	}
	return &result, nil
}

// FilterService applies the filters that need server-side models, such
// as oil_paint and big_eyes. A nil client means not configured.
type FilterService struct {
	baseURL string
	http    *http.Client
}

func NewFilterService(baseURL string) *FilterService {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	return &FilterService{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Apply uploads the image and returns the transformed image bytes.
func (f *FilterService) Apply(ctx context.Context, filterID, path string) ([]byte, error) {
	body, contentType, err := fileForm(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/filter/"+filterID, body)
	if err != nil {
		return nil, fmt.Errorf("build filter request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apply filter %s: %w", filterID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("apply filter %s: status %d", filterID, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read filtered image: %w", err)
	}
	return data, nil
}

func fileForm(path string) (*bytes.Buffer, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}
