package sentiment

import (
	"math"
	"regexp"
	"strings"

	"github.com/skalibog/cryptopulse/pkg/models"
)

// Scores - доли полярности текста и нормализованный compound в [-1, 1]
type Scores struct {
	Negative float64
	Neutral  float64
	Positive float64
	Compound float64
}

// Scorer оценивает полярность одного текста
type Scorer interface {
	PolarityScores(text string) Scores
}

const (
	extremeThreshold = 0.7
	volumeThreshold  = 0.5
	fullVolume       = 100.0
)

var (
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
)

// Analyzer сводит пачку текстов в один SentimentResult
type Analyzer struct {
	scorer Scorer
}

// NewAnalyzer без явного scorer использует VADER.
func NewAnalyzer(scorer Scorer) *Analyzer {
	if scorer == nil {
		scorer = NewVaderScorer()
	}
	return &Analyzer{scorer: scorer}
}

// Analyze возвращает среднее по текстам и контрарный обратный сигнал
func (a *Analyzer) Analyze(texts []string) models.SentimentResult {
	if len(texts) == 0 {
		return models.SentimentResult{Neutral: 1}
	}

	var sum Scores
	for _, text := range texts {
		s := a.scorer.PolarityScores(Clean(text))
		sum.Compound += s.Compound
		sum.Positive += s.Positive
		sum.Neutral += s.Neutral
		sum.Negative += s.Negative
	}

	n := float64(len(texts))
	mean := sum.Compound / n

	return models.SentimentResult{
		Compound:   mean,
		Positive:   sum.Positive / n,
		Neutral:    sum.Neutral / n,
		Negative:   sum.Negative / n,
		Inverse:    Inverse(mean, len(texts)),
		SampleSize: len(texts),
	}
}

// Inverse ненулевой, только если толпа настроена крайне и ее достаточно много
func Inverse(mean float64, samples int) float64 {
	extremeness := math.Abs(mean)
	volumeWeight := math.Min(float64(samples)/fullVolume, 1)
	if extremeness > extremeThreshold && volumeWeight > volumeThreshold {
		return -mean * extremeness
	}
	return 0
}

// Clean убирает ссылки, @упоминания и решетки
func Clean(text string) string {
	text = urlPattern.ReplaceAllString(text, "")
	text = mentionPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "#", "")
	return strings.TrimSpace(text)
}
