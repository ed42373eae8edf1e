package services

import (
	"context"
	"testing"
	"time"

	"github.com/senyabanana/tender-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBidService_OneSubmittedBidPerVendor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, TenderOptions{})
	tender := f.active(t, "Laptops")

	first := f.submit(t, tender.ID, "vendor-a", 900)
	_, err := f.bids.SubmitBid(ctx, models.BidRequest{TenderID: tender.ID, VendorID: "vendor-a", VendorName: "A", BidAmount: dec("850")})
	var conflict *models.ConflictError
	require.ErrorAs(t, err, &conflict)

	withdrawn, err := f.bids.WithdrawBid(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawnBid, withdrawn.Status)
	assert.Equal(t, first.Version+1, withdrawn.Version)

	second, err := f.bids.SubmitBid(ctx, models.BidRequest{TenderID: tender.ID, VendorID: "vendor-a", VendorName: "A", BidAmount: dec("850")})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	vendorBids, err := f.bids.ListBidsForVendor(ctx, "vendor-a")
	require.NoError(t, err)
	assert.Len(t, vendorBids, 2)
}

func TestBidService_SubmitRequiresActiveTenderBeforeDeadline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, TenderOptions{})

	draft := f.draft(t, "Draft tender")
	_, err := f.bids.SubmitBid(ctx, models.BidRequest{TenderID: draft.ID, VendorID: "v", VendorName: "V", BidAmount: dec("1")})
	var transition *models.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, models.SubmitBidAction, transition.Action)

	active := f.active(t, "Active tender")
	f.clock.Advance(7*24*time.Hour + time.Second)
	_, err = f.bids.SubmitBid(ctx, models.BidRequest{TenderID: active.ID, VendorID: "v", VendorName: "V", BidAmount: dec("1")})
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "submissionDeadline", validation.Field)

	_, err = f.bids.SubmitBid(ctx, models.BidRequest{TenderID: "missing", VendorID: "v", VendorName: "V"})
	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestBidService_SubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, TenderOptions{})
	tender := f.active(t, "Paper")

	tests := []struct {
		name  string
		req   models.BidRequest
		field string
	}{
		{"no tender", models.BidRequest{VendorID: "v", VendorName: "V"}, "tenderId"},
		{"no vendor", models.BidRequest{TenderID: tender.ID, VendorName: "V"}, "vendorId"},
		{"no vendor name", models.BidRequest{TenderID: tender.ID, VendorID: "v", VendorName: " "}, "vendorName"},
		{"negative amount", models.BidRequest{TenderID: tender.ID, VendorID: "v", VendorName: "V", BidAmount: dec("-5")}, "bidAmount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bids.SubmitBid(ctx, tt.req)
			var validation *models.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.field, validation.Field)
		})
	}
}

func TestBidService_WithdrawOnlyWhileActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, TenderOptions{})
	tender := f.active(t, "Chairs")
	bid := f.submit(t, tender.ID, "vendor-a", 10)
	_, err := f.tenders.CloseTender(ctx, tender.ID)
	require.NoError(t, err)

	_, err = f.bids.WithdrawBid(ctx, bid.ID)
	var transition *models.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, models.WithdrawBidAction, transition.Action)
	assert.Equal(t, models.SubmittedBid, f.bid(t, bid.ID).Status)
}

func TestBidService_ScoreRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, TenderOptions{})
	tender := f.active(t, "Printers")
	bid := f.submit(t, tender.ID, "vendor-a", 10)
	req := models.ScoreRequest{Technical: dec("80"), Financial: dec("70")}

	_, err := f.bids.ScoreBid(ctx, bid.ID, req, "evaluator")
	var transition *models.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, models.ScoreBidAction, transition.Action)

	_, err = f.tenders.CloseTender(ctx, tender.ID)
	require.NoError(t, err)

	_, err = f.bids.ScoreBid(ctx, bid.ID, req, "")
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)

	_, err = f.bids.ScoreBid(ctx, bid.ID, models.ScoreRequest{
		Technical: dec("80"),
		Financial: dec("70"),
		Weights:   &models.ScoreWeights{Technical: dec("0.5"), Financial: dec("0.6")},
	}, "evaluator")
	require.ErrorAs(t, err, &validation)

	scored, err := f.bids.ScoreBid(ctx, bid.ID, req, "evaluator")
	require.NoError(t, err)
	assert.Equal(t, bid.Version+1, scored.Version)

	again, err := f.bids.ScoreBid(ctx, bid.ID, req, "evaluator")
	require.NoError(t, err)
	assert.Equal(t, scored.Version, again.Version, "identical rescoring must not bump the version")
	assert.Len(t, again.ScoreHistory, 1)
}

func TestBidService_NotesEditableAfterAward(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, TenderOptions{})
	tender := f.active(t, "Desks")
	bid := f.submit(t, tender.ID, "vendor-a", 10)
	_, err := f.tenders.CloseTender(ctx, tender.ID)
	require.NoError(t, err)
	_, err = f.awards.Award(ctx, tender.ID, bid.ID)
	require.NoError(t, err)

	before := f.bid(t, bid.ID)
	updated, err := f.bids.UpdateBidNotes(ctx, bid.ID, models.NotesRequest{EvaluationNotes: "delivery terms confirmed"})
	require.NoError(t, err)
	assert.Equal(t, "delivery terms confirmed", updated.EvaluationNotes)
	assert.Equal(t, before.Version+1, updated.Version)
	assert.Equal(t, models.AwardedBid, updated.Status)

	same, err := f.bids.UpdateBidNotes(ctx, bid.ID, models.NotesRequest{EvaluationNotes: "delivery terms confirmed"})
	require.NoError(t, err)
	assert.Equal(t, updated.Version, same.Version)
}

func TestBidService_RankBids(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, TenderOptions{})
	tender := f.active(t, "Software licences")

	a := f.submit(t, tender.ID, "vendor-a", 100)
	f.clock.Advance(time.Minute)
	b := f.submit(t, tender.ID, "vendor-b", 90)
	f.clock.Advance(time.Minute)
	c := f.submit(t, tender.ID, "vendor-c", 80)
	f.clock.Advance(time.Minute)
	f.submit(t, tender.ID, "vendor-d", 70)

	_, err := f.tenders.CloseTender(ctx, tender.ID)
	require.NoError(t, err)

	score := func(id, technical, financial string) {
		_, err := f.bids.ScoreBid(ctx, id, models.ScoreRequest{Technical: dec(technical), Financial: dec(financial)}, "evaluator")
		require.NoError(t, err)
	}
	score(a.ID, "70", "70")
	score(b.ID, "90", "90")
	score(c.ID, "70", "70")

	ranking, err := f.bids.RankBids(ctx, tender.ID)
	require.NoError(t, err)
	require.Len(t, ranking, 3, "unscored bids are not ranked")
	assert.Equal(t, b.ID, ranking[0].Bid.ID)
	assert.Equal(t, a.ID, ranking[1].Bid.ID, "ties go to the earlier submission")
	assert.Equal(t, c.ID, ranking[2].Bid.ID)
	assert.Equal(t, []int{1, 2, 3}, []int{ranking[0].Rank, ranking[1].Rank, ranking[2].Rank})

	_, err = f.bids.RankBids(ctx, "missing")
	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
