// Package provider holds clients for the external data sources behind
// chat replies: news and horoscope scraping, weather and earthquake
// open data, stock news, and the hosted image services.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	browserUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"
	requestTimeout = 15 * time.Second
)

// News scrapes the Yahoo Taiwan front page for trending searches and
// Google News search results for headline keywords.
type News struct {
	http      *http.Client
	yahooURL  string
	googleURL string
}

func NewNews() *News {
	return &News{
		http:      &http.Client{Timeout: requestTimeout},
		yahooURL:  "https://tw.yahoo.com/",
		googleURL: "https://www.google.com/search",
	}
}

// HotNews returns the top ten trending searches formatted for chat.
func (n *News) HotNews(ctx context.Context) (string, error) {
	doc, err := n.fetchDocument(ctx, n.yahooURL)
	if err != nil {
		return "", err
	}

	var items []string
	doc.Find("div#header-search-keywords > span~a").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= 10 {
			return false
		}
		title := strings.TrimSpace(sel.Text())
		href, _ := sel.Attr("href")
		items = append(items, fmt.Sprintf("第%d則新聞：\n標題：%s\n網址：%s", i+1, title, href))
		return true
	})

	if len(items) == 0 {
		return "目前無法取得熱搜新聞，請稍後再試。", nil
	}
	return strings.Join(items, "\n\n"), nil
}

// Headlines scrapes up to maxPages pages of Google News search results
// for「新聞」and returns the raw titles for keyword counting.
func (n *News) Headlines(ctx context.Context, maxPages int) ([]string, error) {
	if maxPages <= 0 {
		maxPages = 3
	}

	var titles []string
	for page := 0; page < maxPages; page++ {
		u := fmt.Sprintf("%s?q=%s&tbm=nws&start=%d", n.googleURL, url.QueryEscape("新聞"), page*10)
		doc, err := n.fetchDocument(ctx, u)
		if err != nil {
			if len(titles) > 0 {
				break
			}
			return nil, err
		}

		found := 0
		doc.Find("div.SoAPf div.n0jPhd").Each(func(_ int, sel *goquery.Selection) {
			if title := strings.TrimSpace(sel.Text()); title != "" {
				titles = append(titles, title)
				found++
			}
		})
		if found == 0 {
			break
		}
	}

	if len(titles) == 0 {
		return nil, fmt.Errorf("no headlines found")
	}
	return titles, nil
}

func (n *News) fetchDocument(ctx context.Context, u string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := n.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", u, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", u, err)
	}
	return doc, nil
}
