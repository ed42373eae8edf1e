package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/tender-service/internal/logger"
	"github.com/senyabanana/tender-service/internal/models"
	"github.com/senyabanana/tender-service/internal/services"
	"github.com/senyabanana/tender-service/internal/utils"

	"github.com/go-chi/chi/v5"
)

// BidHandler - структура для обработки HTTP-запросов по предложениям.
type BidHandler struct {
	Service *services.BidService
	Logger  *logger.Logger
	Timeout time.Duration
}

// NewBidHandler создаёт новый экземпляр BidHandler.
func NewBidHandler(service *services.BidService, log *logger.Logger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Service: service,
		Logger:  log.Named("bid_handler"),
		Timeout: timeout,
	}
}

// CreateBid обрабатывает запросы для подачи предложения.
func (h *BidHandler) CreateBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var bidReq models.BidRequest
	if !decodeBody(w, r, &bidReq) {
		return
	}

	bid, err := h.Service.SubmitBid(ctx, bidReq)
	if err != nil {
		respondError(h.Logger, w, r, err, "failed to submit bid")
		return
	}
	utils.SendJSON(w, http.StatusOK, bid)
}

// GetUserBid обрабатывает запросы для получения предложений поставщика.
func (h *BidHandler) GetUserBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bids, err := h.Service.ListBidsForVendor(ctx, r.URL.Query().Get("vendorId"))
	if err != nil {
		respondError(h.Logger, w, r, err, "failed to retrieve vendor bids")
		return
	}
	if bids == nil {
		bids = []models.Bid{}
	}
	utils.SendJSON(w, http.StatusOK, bids)
}

// GetTenderBid обрабатывает запросы для получения предложений по тендеру.
func (h *BidHandler) GetTenderBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bids, err := h.Service.ListBidsForTender(ctx, chi.URLParam(r, "tenderId"))
	if err != nil {
		respondError(h.Logger, w, r, err, "failed to retrieve bids for tender")
		return
	}
	if bids == nil {
		bids = []models.Bid{}
	}
	utils.SendJSON(w, http.StatusOK, bids)
}

// GetBidRanking обрабатывает запросы рейтинга предложений по тендеру.
func (h *BidHandler) GetBidRanking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ranking, err := h.Service.RankBids(ctx, chi.URLParam(r, "tenderId"))
	if err != nil {
		respondError(h.Logger, w, r, err, "failed to rank bids")
		return
	}
	utils.SendJSON(w, http.StatusOK, ranking)
}

// WithdrawBid обрабатывает запросы отзыва предложения.
func (h *BidHandler) WithdrawBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bid, err := h.Service.WithdrawBid(ctx, chi.URLParam(r, "bidId"))
	if err != nil {
		respondError(h.Logger, w, r, err, "failed to withdraw bid")
		return
	}
	utils.SendJSON(w, http.StatusOK, bid)
}

// ScoreBid обрабатывает запросы оценки предложения.
func (h *BidHandler) ScoreBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.ScoreRequest
	if !decodeBody(w, r, &req) {
		return
	}

	bid, err := h.Service.ScoreBid(ctx, chi.URLParam(r, "bidId"), req, r.URL.Query().Get("username"))
	if err != nil {
		respondError(h.Logger, w, r, err, "failed to score bid")
		return
	}
	utils.SendJSON(w, http.StatusOK, bid)
}

// EditBidNotes обрабатывает запросы изменения комментария оценки.
func (h *BidHandler) EditBidNotes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.NotesRequest
	if !decodeBody(w, r, &req) {
		return
	}

	bid, err := h.Service.UpdateBidNotes(ctx, chi.URLParam(r, "bidId"), req)
	if err != nil {
		respondError(h.Logger, w, r, err, "failed to update bid notes")
		return
	}
	utils.SendJSON(w, http.StatusOK, bid)
}
