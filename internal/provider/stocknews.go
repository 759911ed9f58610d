package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// StockNews searches Google News RSS for articles about a stock.
type StockNews struct {
	http    *http.Client
	baseURL string
}

func NewStockNews() *StockNews {
	return &StockNews{
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: "https://news.google.com/rss/search",
	}
}

type rssFeed struct {
	Channel struct {
		Items []struct {
			Title string `xml:"title"`
			Link  string `xml:"link"`
		} `xml:"item"`
	} `xml:"channel"`
}

// Search returns up to five headlines for the query formatted for chat.
// The query is usually a stock name, falling back to the code.
func (s *StockNews) Search(ctx context.Context, query string) (string, error) {
	u := fmt.Sprintf("%s?q=%s&hl=zh-TW&gl=TW&ceid=TW:zh-Hant", s.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch stock news %q: %w", query, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch stock news %q: status %d", query, resp.StatusCode)
	}

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return "", fmt.Errorf("decode stock news %q: %w", query, err)
	}

	if len(feed.Channel.Items) == 0 {
		return fmt.Sprintf("⚠️ 沒有找到 %s 的相關新聞。", query), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📰 %s 相關新聞：\n", query)
	for i, item := range feed.Channel.Items {
		if i >= 5 {
			break
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "無標題新聞"
		}
		link := item.Link
		if link == "" {
			link = "https://www.google.com/search?q=" + url.QueryEscape(query)
		}
		fmt.Fprintf(&b, "%d. %s\n🔗 %s\n\n", i+1, title, link)
	}
	return b.String(), nil
}
