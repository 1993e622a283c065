package oianalysis

import (
	"context"
	"fmt"

	"github.com/skalibog/cryptopulse/pkg/models"
)

// InterestSource отдает текущий открытый интерес; nil - биржа его не сообщает
type InterestSource interface {
	FetchOpenInterest(ctx context.Context, exchange, symbol string) (*models.OpenInterest, error)
}

// Result - грубая оценка открытого интереса
type Result struct {
	Value float64
	// Increasing приблизителен: истории нет, поэтому любой ненулевой интерес считается растущим
	Increasing bool
}

type Analyzer struct {
	source InterestSource
}

func NewAnalyzer(source InterestSource) *Analyzer {
	return &Analyzer{source: source}
}

func (a *Analyzer) Analyze(ctx context.Context, exchange, symbol string) (*Result, error) {
	oi, err := a.source.FetchOpenInterest(ctx, exchange, symbol)
	if err != nil {
		return nil, fmt.Errorf("open interest: %w", err)
	}
	if oi == nil {
		return &Result{}, nil
	}
	return &Result{
		Value:      oi.Value,
		Increasing: oi.Value > 0,
	}, nil
}
