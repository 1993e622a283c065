package news

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/skalibog/cryptopulse/internal/config"
)

const summaryLimit = 500

var tagPattern = regexp.MustCompile(`<[^>]*>`)

type coinMatcher struct {
	symbol  string
	pattern *regexp.Regexp
}

// CoinMatcher находит монеты из конфига, упомянутые в тексте
type CoinMatcher struct {
	coins []coinMatcher
}

// NewCoinMatcher ищет монету по символу или алиасу целым словом без учета регистра
func NewCoinMatcher(coins []config.CoinAlias) *CoinMatcher {
	m := &CoinMatcher{}
	for _, c := range coins {
		words := append([]string{c.Symbol}, c.Names...)
		quoted := make([]string, 0, len(words))
		for _, w := range words {
			if w = strings.TrimSpace(w); w != "" {
				quoted = append(quoted, regexp.QuoteMeta(w))
			}
		}
		if len(quoted) == 0 {
			continue
		}
		m.coins = append(m.coins, coinMatcher{
			symbol:  strings.ToUpper(c.Symbol),
			pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
		})
	}
	return m
}

// Extract возвращает упомянутые символы в порядке конфига
func (m *CoinMatcher) Extract(text string) []string {
	var out []string
	for _, c := range m.coins {
		if c.pattern.MatchString(text) {
			out = append(out, c.symbol)
		}
	}
	return out
}

// ImportanceScore ранжирует заголовок по свежести и силе настроения
func ImportanceScore(publishedAt, now time.Time, compound float64) float64 {
	score := 50.0

	age := now.Sub(publishedAt)
	switch {
	case age < time.Hour:
		score += 30
	case age < 6*time.Hour:
		score += 20
	case age < 24*time.Hour:
		score += 10
	}

	score += math.Abs(compound) * 20
	return math.Min(score, 100)
}

// Snippet убирает разметку из описания и обрезает его
func Snippet(html string) string {
	text := strings.Join(strings.Fields(tagPattern.ReplaceAllString(html, " ")), " ")
	if utf8.RuneCountInString(text) <= summaryLimit {
		return text
	}
	return string([]rune(text)[:summaryLimit])
}
