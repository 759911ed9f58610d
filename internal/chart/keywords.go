package chart

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode"

	gochart "github.com/wcharczuk/go-chart/v2"
)

// KeywordCount is one keyword with its occurrence count across news titles.
type KeywordCount struct {
	Word  string
	Count int
}

const maxKeywordBars = 10

// TopKeywords counts keyword frequencies across headlines and returns
// the n most common, highest first. Latin words count as whole tokens;
// CJK text is counted as overlapping bigrams since there is no
// segmenter in the loop.
func TopKeywords(titles []string, n int) []KeywordCount {
	counts := make(map[string]int)
	for _, title := range titles {
		for _, token := range tokenize(title) {
			counts[token]++
		}
	}

	out := make([]KeywordCount, 0, len(counts))
	for word, count := range counts {
		out = append(out, KeywordCount{Word: word, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func tokenize(s string) []string {
	var tokens []string
	var latin []rune
	var cjk []rune

	flushLatin := func() {
		if len(latin) >= 2 {
			tokens = append(tokens, strings.ToLower(string(latin)))
		}
		latin = latin[:0]
	}
	flushCJK := func() {
		for i := 0; i+1 < len(cjk); i++ {
			tokens = append(tokens, string(cjk[i:i+2]))
		}
		cjk = cjk[:0]
	}

	for _, r := range s {
		switch {
		case unicode.Is(unicode.Han, r):
			flushLatin()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			latin = append(latin, r)
		default:
			flushLatin()
			flushCJK()
		}
	}
	flushLatin()
	flushCJK()
	return tokens
}

// RenderKeywordBars draws a bar chart of keyword frequencies, highest
// first. Counts are expected pre-sorted; only the top ten are drawn.
func (r *Renderer) RenderKeywordBars(counts []KeywordCount) ([]byte, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("no keywords to render")
	}
	if len(counts) > maxKeywordBars {
		counts = counts[:maxKeywordBars]
	}

	bars := make([]gochart.Value, 0, len(counts))
	for _, kc := range counts {
		bars = append(bars, gochart.Value{
			Value: float64(kc.Count),
			Label: kc.Word,
		})
	}

	graph := gochart.BarChart{
		Width:    1024,
		Height:   512,
		BarWidth: 64,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
			FillColor: gochart.ColorWhite,
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render keyword chart: %w", err)
	}
	return buf.Bytes(), nil
}
