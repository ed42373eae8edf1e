package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/senyabanana/tender-service/internal/models"
	"github.com/senyabanana/tender-service/internal/repository"
)

// AwardCoordinator выбирает победителя тендера. Тендер, выигравшее предложение
// и отклонённые предложения меняются в одной транзакции.
type AwardCoordinator struct {
	Deps
}

// NewAwardCoordinator создаёт новый экземпляр AwardCoordinator.
func NewAwardCoordinator(deps Deps) *AwardCoordinator {
	return &AwardCoordinator{Deps: deps.withDefaults()}
}

// Award присуждает тендер предложению bidId. Повторный вызов с тем же bidId
// возвращает текущее состояние без изменений, с другим bidId - ConflictError.
func (c *AwardCoordinator) Award(ctx context.Context, tenderId, bidId string) (*models.Tender, error) {
	if bidId == "" {
		return nil, models.NewValidationError("bidId", "bid to award is required")
	}

	tender, err := c.Tenders.GetTender(ctx, tenderId)
	if err != nil {
		return nil, err
	}
	if tender.Status == models.AwardedTender {
		return alreadyAwarded(tender, bidId)
	}

	bid, err := c.Bids.GetBid(ctx, bidId)
	if err != nil {
		return nil, err
	}

	now := c.Clock.Now()
	next, err := ValidateTransition(*tender, models.AwardAction, TransitionInput{Bid: bid}, now)
	if err != nil {
		if bid.TenderID == tenderId && (bid.Status == models.AwardedBid || bid.Status == models.RejectedBid) {
			// Предложение решено параллельным присуждением между двумя чтениями.
			return c.resolveConflict(ctx, tenderId, bidId, models.NewConflictError(
				fmt.Sprintf("bid %s was decided concurrently", bidId), nil), err)
		}
		return nil, err
	}

	var (
		awarded  *models.Tender
		decided  []models.Bid
		expected = tender.Version
	)
	err = c.Tx.Run(ctx, func(tenders repository.TenderRepository, bids repository.BidRepository) error {
		decided = decided[:0]

		update := tender.Clone()
		update.Status = next
		update.AwardedBidID = &bidId
		update.UpdatedAt = now
		saved, err := tenders.UpdateTender(ctx, &update, expected)
		if err != nil {
			return err
		}

		all, err := bids.ListTenderBids(ctx, tenderId)
		if err != nil {
			return err
		}
		winnerFound := false
		for _, b := range all {
			if b.Status != models.SubmittedBid {
				continue
			}
			bidVersion := b.Version
			if b.ID == bidId {
				b.Status = models.AwardedBid
				winnerFound = true
			} else {
				b.Status = models.RejectedBid
			}
			b.UpdatedAt = now
			stored, err := bids.UpdateBid(ctx, &b, bidVersion)
			if err != nil {
				return err
			}
			decided = append(decided, *stored)
		}
		if !winnerFound {
			return models.NewConflictError(fmt.Sprintf("bid %s is no longer submitted", bidId), nil)
		}

		awarded = saved
		return nil
	})
	if err != nil {
		var conflict *models.ConflictError
		if errors.As(err, &conflict) {
			return c.resolveConflict(ctx, tenderId, bidId, conflict, nil)
		}
		return nil, fmt.Errorf("award tender %s: %w", tenderId, err)
	}

	c.Logger.Info().
		Str("tender_id", awarded.ID).
		Str("bid_id", bidId).
		Int("rejected", len(decided)-1).
		Msg("tender awarded")

	notes := make([]models.Notification, 0, len(decided))
	for _, b := range decided {
		kind := models.BidRejectedNotification
		if b.Status == models.AwardedBid {
			kind = models.BidAwardedNotification
		}
		notes = append(notes, models.Notification{
			Kind:         kind,
			TenderID:     awarded.ID,
			TenderNumber: awarded.TenderNumber,
			BidID:        b.ID,
			VendorID:     b.VendorID,
			Status:       string(b.Status),
		})
	}
	c.notify(ctx, notes...)

	return awarded, nil
}

// resolveConflict перечитывает тендер после проигранной гонки. Если победителем
// уже выбрано то же предложение, повтор считается успешным. Если тендер так и не
// присуждён, а fallback задан, возвращается fallback.
func (c *AwardCoordinator) resolveConflict(ctx context.Context, tenderId, bidId string, cause *models.ConflictError, fallback error) (*models.Tender, error) {
	current, err := c.Tenders.GetTender(ctx, tenderId)
	if err != nil {
		return nil, err
	}
	if current.Status == models.AwardedTender {
		return alreadyAwarded(current, bidId)
	}
	if fallback != nil {
		return nil, fallback
	}
	return nil, models.NewConflictError(cause.Reason, current)
}

func alreadyAwarded(tender *models.Tender, bidId string) (*models.Tender, error) {
	if tender.AwardedBidID != nil && *tender.AwardedBidID == bidId {
		return tender, nil
	}
	winner := ""
	if tender.AwardedBidID != nil {
		winner = *tender.AwardedBidID
	}
	return nil, models.NewConflictError(fmt.Sprintf("tender %s is already awarded to bid %s", tender.ID, winner), tender)
}
