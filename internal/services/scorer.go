package services

import (
	"fmt"
	"time"

	"github.com/senyabanana/tender-service/internal/models"

	"github.com/shopspring/decimal"
)

var (
	minScore      = decimal.Zero
	maxScore      = decimal.NewFromInt(100)
	maxWeight     = decimal.NewFromInt(1)
	weightEpsilon = decimal.New(1, -6)
)

// scorePrecision совпадает с масштабом NUMERIC(7,4) в таблице bid.
const scorePrecision = 4

// DefaultWeights - веса по умолчанию: 0.6 техническая оценка, 0.4 финансовая.
func DefaultWeights() models.ScoreWeights {
	return models.ScoreWeights{
		Technical: decimal.New(6, -1),
		Financial: decimal.New(4, -1),
	}
}

// Scorer считает итоговую оценку предложения.
type Scorer struct {
	defaults models.ScoreWeights
}

// NewScorer создаёт Scorer с весами по умолчанию из конфигурации.
func NewScorer(defaults models.ScoreWeights) (*Scorer, error) {
	if err := ValidateWeights(defaults); err != nil {
		return nil, err
	}
	return &Scorer{defaults: defaults}, nil
}

// ValidateWeights проверяет, что каждый вес в [0,1], а их сумма равна 1 с точностью 1e-6.
func ValidateWeights(w models.ScoreWeights) error {
	if w.Technical.LessThan(decimal.Zero) || w.Technical.GreaterThan(maxWeight) {
		return models.NewValidationError("weights.technical", "must be within [0,1]")
	}
	if w.Financial.LessThan(decimal.Zero) || w.Financial.GreaterThan(maxWeight) {
		return models.NewValidationError("weights.financial", "must be within [0,1]")
	}
	if w.Technical.Add(w.Financial).Sub(maxWeight).Abs().GreaterThan(weightEpsilon) {
		return models.NewValidationError("weights", fmt.Sprintf("must sum to 1.0, got %s", w.Technical.Add(w.Financial)))
	}
	return nil
}

func validateScore(field string, v decimal.Decimal) error {
	if v.LessThan(minScore) || v.GreaterThan(maxScore) {
		return models.NewValidationError(field, "must be within [0,100]")
	}
	return nil
}

// Composite возвращает взвешенную сумму оценок. Nil weights - веса по умолчанию.
func (s *Scorer) Composite(technical, financial decimal.Decimal, weights *models.ScoreWeights) (decimal.Decimal, error) {
	w := s.defaults
	if weights != nil {
		w = *weights
	}
	if err := ValidateWeights(w); err != nil {
		return decimal.Decimal{}, err
	}
	if err := validateScore("technical", technical); err != nil {
		return decimal.Decimal{}, err
	}
	if err := validateScore("financial", financial); err != nil {
		return decimal.Decimal{}, err
	}
	return technical.Mul(w.Technical).Add(financial.Mul(w.Financial)).Round(scorePrecision), nil
}

// Apply записывает оценки в предложение. Прежние значения уходят в журнал ScoreHistory
// вместе с автором и временем. Повторная оценка теми же значениями ничего не меняет
// и возвращает changed=false.
func (s *Scorer) Apply(bid *models.Bid, technical, financial decimal.Decimal, weights *models.ScoreWeights, actor string, at time.Time) (bool, error) {
	technical = technical.Round(scorePrecision)
	financial = financial.Round(scorePrecision)
	composite, err := s.Composite(technical, financial, weights)
	if err != nil {
		return false, err
	}
	if sameScore(bid.TechnicalScore, technical) && sameScore(bid.FinancialScore, financial) && sameScore(bid.CompositeScore, composite) {
		return false, nil
	}

	bid.ScoreHistory = append(bid.ScoreHistory, models.ScoreAudit{
		TechnicalScore: bid.TechnicalScore,
		FinancialScore: bid.FinancialScore,
		CompositeScore: bid.CompositeScore,
		Actor:          actor,
		ChangedAt:      at,
	})
	bid.TechnicalScore = decimal.NewNullDecimal(technical)
	bid.FinancialScore = decimal.NewNullDecimal(financial)
	bid.CompositeScore = decimal.NewNullDecimal(composite)
	return true, nil
}

func sameScore(current decimal.NullDecimal, v decimal.Decimal) bool {
	return current.Valid && current.Decimal.Equal(v)
}
