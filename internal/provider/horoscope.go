package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrUnknownSign reports that the index page carries no article for the
// requested sign, as opposed to the site being unreachable.
var ErrUnknownSign = errors.New("unknown zodiac sign")

// Horoscope scrapes the ELLE Taiwan daily horoscope pages.
type Horoscope struct {
	http    *http.Client
	baseURL string
	now     func() time.Time
}

func NewHoroscope() *Horoscope {
	return &Horoscope{
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: "https://www.elle.com",
		now:     time.Now,
	}
}

// Daily returns the formatted daily fortune for a zodiac sign, e.g.
// 天蠍座. The index page links each sign to its own article; sections
// inside the article sit at fixed positions.
func (h *Horoscope) Daily(ctx context.Context, zodiac string) (string, error) {
	index, err := h.fetchDocument(ctx, h.baseURL+"/tw/starsigns/")
	if err != nil {
		return "", err
	}

	selector := fmt.Sprintf(`[data-theme-key="custom-item"][data-vars-cta="今日運勢"][data-vars-ga-call-to-action="%s"]`, zodiac)
	link := index.Find(selector).First()
	href, ok := link.Attr("href")
	if !ok {
		return "", fmt.Errorf("%s: %w", zodiac, ErrUnknownSign)
	}

	articleURL := href
	if strings.HasPrefix(href, "/") {
		articleURL = h.baseURL + href
	}

	article, err := h.fetchDocument(ctx, articleURL)
	if err != nil {
		return "", err
	}

	fortune := sectionText(article, `[data-journey-content="true"][data-node-id="4"]`, "找不到整體運勢內容。")
	love := sectionText(article, "p:nth-child(11)", "找不到愛情運勢內容。")
	career := sectionText(article, "p:nth-child(15)", "找不到事業運勢內容。")
	wealth := sectionText(article, "p:nth-child(19)", "找不到財運運勢內容。")

	return fmt.Sprintf(
		"🔮 %s 今日運勢\n📅 日期：%s\n——————————————\n📌 整體運勢：%s\n❤️ 愛情運勢：%s\n💼 事業運勢：%s\n💰 財運運勢：%s\n🔗 [查看完整運勢](%s)",
		zodiac, h.now().Format("01月02日"), fortune, love, career, wealth, articleURL,
	), nil
}

func sectionText(doc *goquery.Document, selector, fallback string) string {
	text := strings.TrimSpace(doc.Find(selector).First().Text())
	if text == "" {
		return fallback
	}
	return text
}

func (h *Horoscope) fetchDocument(ctx context.Context, u string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := h.http.Do(req)
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
