package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/senyabanana/tender-service/internal/logger"
	"github.com/senyabanana/tender-service/internal/models"
	"github.com/senyabanana/tender-service/internal/repository"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

// recordingNotifier запоминает уведомления и может возвращать ошибку.
type recordingNotifier struct {
	mu    sync.Mutex
	sent  []models.Notification
	fails error
}

func (n *recordingNotifier) Notify(_ context.Context, msg models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.fails
}

func (n *recordingNotifier) kinds() []models.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.NotificationKind, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.Kind)
	}
	return out
}

type fixture struct {
	store     *repository.MemoryStore
	clock     *clockwork.FakeClock
	notifier  *recordingNotifier
	tenders   *TenderService
	bids      *BidService
	awards    *AwardCoordinator
	deadlines *DeadlineManager
}

func newFixture(t *testing.T, opts TenderOptions) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := clockwork.NewFakeClockAt(testStart)
	notifier := &recordingNotifier{}
	deps := Deps{
		Tenders:  store.Tenders(),
		Bids:     store.Bids(),
		Tx:       store,
		Clock:    clock,
		Notifier: notifier,
		Logger:   logger.Nop(),
	}
	scorer, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	deadlines := NewDeadlineManager(deps)
	return &fixture{
		store:     store,
		clock:     clock,
		notifier:  notifier,
		tenders:   NewTenderService(deps, deadlines, opts),
		bids:      NewBidService(deps, scorer),
		awards:    NewAwardCoordinator(deps),
		deadlines: deadlines,
	}
}

func (f *fixture) draft(t *testing.T, title string) *models.Tender {
	t.Helper()
	deadline := f.clock.Now().Add(7 * 24 * time.Hour)
	tender, err := f.tenders.CreateTender(context.Background(), models.TenderRequest{
		Title:              title,
		Category:           models.Construction,
		Description:        title + " description",
		ScopeOfWork:        "full scope",
		BudgetMin:          decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		BudgetMax:          decimal.NewNullDecimal(decimal.NewFromInt(5000)),
		SubmissionDeadline: &deadline,
	})
	require.NoError(t, err)
	return tender
}

func (f *fixture) active(t *testing.T, title string) *models.Tender {
	t.Helper()
	tender := f.draft(t, title)
	published, err := f.tenders.PublishTender(context.Background(), tender.ID)
	require.NoError(t, err)
	return published
}

func (f *fixture) submit(t *testing.T, tenderId, vendor string, amount int64) *models.Bid {
	t.Helper()
	bid, err := f.bids.SubmitBid(context.Background(), models.BidRequest{
		TenderID:   tenderId,
		VendorID:   vendor,
		VendorName: "Vendor " + vendor,
		BidAmount:  decimal.NewFromInt(amount),
	})
	require.NoError(t, err)
	return bid
}

func (f *fixture) bid(t *testing.T, id string) *models.Bid {
	t.Helper()
	bid, err := f.store.Bids().GetBid(context.Background(), id)
	require.NoError(t, err)
	return bid
}

func (f *fixture) tender(t *testing.T, id string) *models.Tender {
	t.Helper()
	tender, err := f.store.Tenders().GetTender(context.Background(), id)
	require.NoError(t, err)
	return tender
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func nullDec(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(v))
}
