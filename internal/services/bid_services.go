package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/senyabanana/tender-service/internal/models"
	"github.com/senyabanana/tender-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidService реализует подачу, отзыв и оценку предложений.
type BidService struct {
	Deps
	scorer *Scorer
}

// NewBidService создаёт новый экземпляр BidService.
func NewBidService(deps Deps, scorer *Scorer) *BidService {
	return &BidService{Deps: deps.withDefaults(), scorer: scorer}
}

// SubmitBid подаёт предложение по активному тендеру до окончания срока подачи.
// У поставщика может быть только одно поданное предложение на тендер.
func (s *BidService) SubmitBid(ctx context.Context, req models.BidRequest) (*models.Bid, error) {
	req.VendorID = strings.TrimSpace(req.VendorID)
	req.VendorName = strings.TrimSpace(req.VendorName)
	switch {
	case req.TenderID == "":
		return nil, models.NewValidationError("tenderId", "is required")
	case req.VendorID == "":
		return nil, models.NewValidationError("vendorId", "is required")
	case req.VendorName == "":
		return nil, models.NewValidationError("vendorName", "is required")
	case req.BidAmount.LessThan(decimal.Zero):
		return nil, models.NewValidationError("bidAmount", "must not be negative")
	}

	tender, err := s.Tenders.GetTender(ctx, req.TenderID)
	if err != nil {
		return nil, err
	}
	if err := AllowsBids(*tender, models.SubmitBidAction); err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	if tender.SubmissionDeadline != nil && now.After(*tender.SubmissionDeadline) {
		return nil, models.NewValidationError("submissionDeadline", "submission deadline has passed")
	}

	bid := &models.Bid{
		ID:          uuid.NewString(),
		TenderID:    tender.ID,
		VendorID:    req.VendorID,
		VendorName:  req.VendorName,
		BidAmount:   req.BidAmount,
		Status:      models.SubmittedBid,
		SubmittedAt: now,
		UpdatedAt:   now,
		Version:     1,
	}
	created, err := s.Bids.CreateBid(ctx, bid)
	if err != nil {
		return nil, err
	}
	s.Logger.Info().Str("bid_id", created.ID).Str("tender_id", created.TenderID).Str("vendor_id", created.VendorID).Msg("bid submitted")
	return created, nil
}

// WithdrawBid отзывает поданное предложение, пока тендер активен.
// После отзыва поставщик может подать новое предложение.
func (s *BidService) WithdrawBid(ctx context.Context, bidId string) (*models.Bid, error) {
	var withdrawn *models.Bid
	err := s.Tx.Run(ctx, func(tenders repository.TenderRepository, bids repository.BidRepository) error {
		bid, err := bids.GetBid(ctx, bidId)
		if err != nil {
			return err
		}
		tender, err := tenders.GetTender(ctx, bid.TenderID)
		if err != nil {
			return err
		}
		if err := AllowsBids(*tender, models.WithdrawBidAction); err != nil {
			return err
		}
		if bid.Status != models.SubmittedBid {
			return models.NewValidationError("bidId", fmt.Sprintf("bid %s is %s, only submitted bids can be withdrawn", bid.ID, bid.Status))
		}

		expected := bid.Version
		bid.Status = models.WithdrawnBid
		bid.UpdatedAt = s.Clock.Now()
		withdrawn, err = bids.UpdateBid(ctx, bid, expected)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info().Str("bid_id", withdrawn.ID).Str("tender_id", withdrawn.TenderID).Msg("bid withdrawn")
	return withdrawn, nil
}

// ScoreBid выставляет техническую и финансовую оценки. Оценивать можно, пока
// тендер закрыт или находится на оценке.
func (s *BidService) ScoreBid(ctx context.Context, bidId string, req models.ScoreRequest, actor string) (*models.Bid, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, models.NewValidationError("username", "scoring actor is required")
	}

	bid, err := s.Bids.GetBid(ctx, bidId)
	if err != nil {
		return nil, err
	}
	tender, err := s.Tenders.GetTender(ctx, bid.TenderID)
	if err != nil {
		return nil, err
	}
	if tender.Status != models.ClosedTender && tender.Status != models.UnderEvaluationTender {
		return nil, &models.InvalidTransitionError{From: tender.Status, Action: models.ScoreBidAction}
	}
	if bid.Status != models.SubmittedBid {
		return nil, models.NewValidationError("bidId", fmt.Sprintf("bid %s is %s, only submitted bids can be scored", bid.ID, bid.Status))
	}

	now := s.Clock.Now()
	expected := bid.Version
	changed, err := s.scorer.Apply(bid, req.Technical, req.Financial, req.Weights, actor, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return bid, nil
	}
	bid.UpdatedAt = now

	scored, err := s.Bids.UpdateBid(ctx, bid, expected)
	if err != nil {
		return nil, err
	}
	s.Logger.Info().
		Str("bid_id", scored.ID).
		Str("actor", actor).
		Str("composite", scored.CompositeScore.Decimal.String()).
		Msg("bid scored")
	return scored, nil
}

// UpdateBidNotes меняет комментарий оценки. Разрешено в любом статусе тендера.
func (s *BidService) UpdateBidNotes(ctx context.Context, bidId string, req models.NotesRequest) (*models.Bid, error) {
	bid, err := s.Bids.GetBid(ctx, bidId)
	if err != nil {
		return nil, err
	}
	if bid.EvaluationNotes == req.EvaluationNotes {
		return bid, nil
	}

	expected := bid.Version
	bid.EvaluationNotes = req.EvaluationNotes
	bid.UpdatedAt = s.Clock.Now()
	return s.Bids.UpdateBid(ctx, bid, expected)
}

// ListBidsForTender возвращает предложения тендера в порядке подачи.
func (s *BidService) ListBidsForTender(ctx context.Context, tenderId string) ([]models.Bid, error) {
	if _, err := s.Tenders.GetTender(ctx, tenderId); err != nil {
		return nil, err
	}
	return s.Bids.ListTenderBids(ctx, tenderId)
}

// ListBidsForVendor возвращает предложения поставщика, новые первыми.
func (s *BidService) ListBidsForVendor(ctx context.Context, vendorId string) ([]models.Bid, error) {
	if strings.TrimSpace(vendorId) == "" {
		return nil, models.NewValidationError("vendorId", "is required")
	}
	return s.Bids.ListVendorBids(ctx, vendorId)
}

// RankBids возвращает оценённые неотозванные предложения по убыванию итоговой
// оценки. При равенстве выше то, что подано раньше.
func (s *BidService) RankBids(ctx context.Context, tenderId string) ([]models.RankedBid, error) {
	bids, err := s.ListBidsForTender(ctx, tenderId)
	if err != nil {
		return nil, err
	}

	scored := make([]models.Bid, 0, len(bids))
	for _, b := range bids {
		if b.Status != models.WithdrawnBid && b.CompositeScore.Valid {
			scored = append(scored, b)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if cmp := a.CompositeScore.Decimal.Cmp(b.CompositeScore.Decimal); cmp != 0 {
			return cmp > 0
		}
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		return a.ID < b.ID
	})

	ranked := make([]models.RankedBid, len(scored))
	for i, b := range scored {
		ranked[i] = models.RankedBid{Rank: i + 1, Bid: b}
	}
	return ranked, nil
}
