package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BidStatus - статус предложения.
type BidStatus string

const (
	SubmittedBid BidStatus = "submitted" // Предложение подано
	WithdrawnBid BidStatus = "withdrawn" // Предложение отозвано поставщиком
	RejectedBid  BidStatus = "rejected"  // Предложение отклонено при выборе победителя
	AwardedBid   BidStatus = "awarded"   // Предложение победило
)

// ScoreAudit - запись журнала переоценки предложения.
type ScoreAudit struct {
	TechnicalScore decimal.NullDecimal `json:"technicalScore"`
	FinancialScore decimal.NullDecimal `json:"financialScore"`
	CompositeScore decimal.NullDecimal `json:"compositeScore"`
	Actor          string              `json:"actor"`
	ChangedAt      time.Time           `json:"changedAt"`
}

// Bid представляет модель предложения.
type Bid struct {
	ID              string              `json:"id"`
	TenderID        string              `json:"tenderId"`
	VendorID        string              `json:"vendorId"`
	VendorName      string              `json:"vendorName"`
	BidAmount       decimal.Decimal     `json:"bidAmount"`
	TechnicalScore  decimal.NullDecimal `json:"technicalScore"`
	FinancialScore  decimal.NullDecimal `json:"financialScore"`
	CompositeScore  decimal.NullDecimal `json:"compositeScore"`
	EvaluationNotes string              `json:"evaluationNotes"`
	ScoreHistory    []ScoreAudit        `json:"scoreHistory"`
	Status          BidStatus           `json:"status"`
	SubmittedAt     time.Time           `json:"submittedAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
	Version         int32               `json:"version"`
}

// Clone возвращает копию предложения без общего журнала оценок.
func (b Bid) Clone() Bid {
	c := b
	if b.ScoreHistory != nil {
		c.ScoreHistory = make([]ScoreAudit, len(b.ScoreHistory))
		copy(c.ScoreHistory, b.ScoreHistory)
	}
	return c
}

// RankedBid - место предложения в рейтинге по итоговой оценке.
type RankedBid struct {
	Rank int `json:"rank"`
	Bid  Bid `json:"bid"`
}

// BidRequest представляет структуру запроса для подачи предложения.
type BidRequest struct {
	TenderID   string          `json:"tenderId"`
	VendorID   string          `json:"vendorId"`
	VendorName string          `json:"vendorName"`
	BidAmount  decimal.Decimal `json:"bidAmount"`
}

// ScoreWeights - веса технической и финансовой оценки.
type ScoreWeights struct {
	Technical decimal.Decimal `json:"technical"`
	Financial decimal.Decimal `json:"financial"`
}

// ScoreRequest - тело запроса оценки предложения.
type ScoreRequest struct {
	Technical decimal.Decimal `json:"technical"`
	Financial decimal.Decimal `json:"financial"`
	Weights   *ScoreWeights   `json:"weights"`
}

// NotesRequest - тело запроса изменения комментария оценки.
type NotesRequest struct {
	EvaluationNotes string `json:"evaluationNotes"`
}
