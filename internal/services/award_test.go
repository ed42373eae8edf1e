package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/senyabanana/tender-service/internal/logger"
	"github.com/senyabanana/tender-service/internal/models"
	"github.com/senyabanana/tender-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closedWithBids возвращает закрытый тендер с предложениями от указанных поставщиков.
func closedWithBids(t *testing.T, f *fixture, vendors ...string) (*models.Tender, []*models.Bid) {
	t.Helper()
	tender := f.active(t, "Generators")
	bids := make([]*models.Bid, 0, len(vendors))
	for _, v := range vendors {
		bids = append(bids, f.submit(t, tender.ID, v, 100))
	}
	closed, err := f.tenders.CloseTender(context.Background(), tender.ID)
	require.NoError(t, err)
	return closed, bids
}

func TestAward_SameBidIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, TenderOptions{})
	tender, bids := closedWithBids(t, f, "vendor-a", "vendor-b")

	first, err := f.awards.Award(ctx, tender.ID, bids[0].ID)
	require.NoError(t, err)
	assert.Equal(t, tender.Version+1, first.Version)

	second, err := f.awards.Award(ctx, tender.ID, bids[0].ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, first.Version, f.tender(t, tender.ID).Version)
}

func TestAward_DifferentBidAfterAwardConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, TenderOptions{})
	tender, bids := closedWithBids(t, f, "vendor-a", "vendor-b")

	_, err := f.awards.Award(ctx, tender.ID, bids[1].ID)
	require.NoError(t, err)

	_, err = f.awards.Award(ctx, tender.ID, bids[0].ID)
	var conflict *models.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.NotNil(t, conflict.Current)
	assert.Equal(t, bids[1].ID, *conflict.Current.AwardedBidID)
}

func TestAward_RejectsForeignOrWithdrawnBid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, TenderOptions{})

	other := f.active(t, "Other")
	foreign := f.submit(t, other.ID, "vendor-x", 10)

	tender := f.active(t, "Main")
	kept := f.submit(t, tender.ID, "vendor-a", 10)
	gone := f.submit(t, tender.ID, "vendor-b", 10)
	_, err := f.bids.WithdrawBid(ctx, gone.ID)
	require.NoError(t, err)
	_, err = f.tenders.CloseTender(ctx, tender.ID)
	require.NoError(t, err)

	var validation *models.ValidationError
	_, err = f.awards.Award(ctx, tender.ID, foreign.ID)
	require.ErrorAs(t, err, &validation)
	_, err = f.awards.Award(ctx, tender.ID, gone.ID)
	require.ErrorAs(t, err, &validation)

	_, err = f.awards.Award(ctx, tender.ID, "missing")
	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)

	assert.Equal(t, models.ClosedTender, f.tender(t, tender.ID).Status)
	assert.Equal(t, models.SubmittedBid, f.bid(t, kept.ID).Status)
}

func TestAward_NotAllowedWhileActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, TenderOptions{})
	tender := f.active(t, "Trucks")
	bid := f.submit(t, tender.ID, "vendor-a", 10)

	_, err := f.awards.Award(ctx, tender.ID, bid.ID)
	var transition *models.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, models.ActiveTender, transition.From)
}

func TestAward_ConcurrentAwardsOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, TenderOptions{})
	tender, bids := closedWithBids(t, f, "vendor-a", "vendor-b", "vendor-c", "vendor-d")

	errs := make([]error, len(bids))
	var wg sync.WaitGroup
	for i, b := range bids {
		i, b := i, b
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.awards.Award(ctx, tender.ID, b.ID)
		}()
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var conflict *models.ConflictError
		assert.True(t, errors.As(err, &conflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, winners)

	final := f.tender(t, tender.ID)
	require.Equal(t, models.AwardedTender, final.Status)
	assert.Equal(t, tender.Version+1, final.Version)

	awarded := 0
	for _, b := range bids {
		got := f.bid(t, b.ID)
		if got.ID == *final.AwardedBidID {
			assert.Equal(t, models.AwardedBid, got.Status)
			awarded++
			continue
		}
		assert.Equal(t, models.RejectedBid, got.Status)
	}
	assert.Equal(t, 1, awarded)
}

func TestAward_NotifierFailureDoesNotFailAward(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, TenderOptions{})
	tender, bids := closedWithBids(t, f, "vendor-a", "vendor-b")
	f.notifier.fails = errors.New("smtp unavailable")

	awarded, err := f.awards.Award(ctx, tender.ID, bids[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.AwardedTender, awarded.Status)
	assert.Contains(t, f.notifier.kinds(), models.BidRejectedNotification)
}

// interleavedBids выполняет before один раз перед первым чтением предложения.
type interleavedBids struct {
	repository.BidRepository
	once   sync.Once
	before func()
}

func (b *interleavedBids) GetBid(ctx context.Context, bidId string) (*models.Bid, error) {
	b.once.Do(b.before)
	return b.BidRepository.GetBid(ctx, bidId)
}

// racingCoordinator возвращает координатор, у которого между чтением тендера и
// чтением предложения успевает пройти присуждение winnerId.
func racingCoordinator(f *fixture, tenderId, winnerId string) *AwardCoordinator {
	bids := &interleavedBids{BidRepository: f.store.Bids()}
	bids.before = func() {
		_, _ = f.awards.Award(context.Background(), tenderId, winnerId)
	}
	return NewAwardCoordinator(Deps{
		Tenders:  f.store.Tenders(),
		Bids:     bids,
		Tx:       f.store,
		Clock:    f.clock,
		Notifier: f.notifier,
		Logger:   logger.Nop(),
	})
}

func TestAward_LosesRaceBetweenReads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, TenderOptions{})
	tender, bids := closedWithBids(t, f, "vendor-a", "vendor-b")

	_, err := racingCoordinator(f, tender.ID, bids[0].ID).Award(ctx, tender.ID, bids[1].ID)
	var conflict *models.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.NotNil(t, conflict.Current)
	assert.Equal(t, models.AwardedTender, conflict.Current.Status)
	assert.Equal(t, bids[0].ID, *conflict.Current.AwardedBidID)
}

func TestAward_SameBidWonBetweenReadsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, TenderOptions{})
	tender, bids := closedWithBids(t, f, "vendor-a", "vendor-b")

	awarded, err := racingCoordinator(f, tender.ID, bids[0].ID).Award(ctx, tender.ID, bids[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.AwardedTender, awarded.Status)
	assert.Equal(t, bids[0].ID, *awarded.AwardedBidID)
	assert.Equal(t, tender.Version+1, f.tender(t, tender.ID).Version)
}
