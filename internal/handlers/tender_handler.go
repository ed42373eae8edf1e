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

// TenderHandler - структура для обработки HTTP-запросов.
type TenderHandler struct {
	Service *services.TenderService
	Awards  *services.AwardCoordinator
	Logger  *logger.Logger
	Timeout time.Duration
}

// NewTenderHandler создаёт новый экземпляр TenderHandler.
func NewTenderHandler(service *services.TenderService, awards *services.AwardCoordinator, log *logger.Logger, timeout time.Duration) *TenderHandler {
	return &TenderHandler{
		Service: service,
		Awards:  awards,
		Logger:  log.Named("tender_handler"),
		Timeout: timeout,
	}
}

// GetTenders обрабатывает запросы для получения списка тендеров.
func (h *TenderHandler) GetTenders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	query := r.URL.Query()
	limit, offset, err := utils.ParseLimitOffset(query.Get("limit"), query.Get("offset"))
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := models.TenderFilter{
		Search: query.Get("search"),
		Sort:   models.TenderSort(query.Get("sort")),
		Limit:  limit,
		Offset: offset,
	}
	for _, c := range utils.SplitQuery(query["category"]) {
		filter.Categories = append(filter.Categories, models.TenderCategory(c))
	}
	for _, s := range utils.SplitQuery(query["status"]) {
		filter.Statuses = append(filter.Statuses, models.TenderStatus(s))
	}

	tenders, err := h.Service.ListTenders(ctx, filter)
	if err != nil {
		respondError(h.Logger, w, r, err, "failed to fetch tenders")
		return
	}
	if tenders == nil {
		tenders = []models.Tender{}
	}
	utils.SendJSON(w, http.StatusOK, tenders)
}

// CreateTender обрабатывает запросы для создания тендера.
func (h *TenderHandler) CreateTender(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var tenderReq models.TenderRequest
	if !decodeBody(w, r, &tenderReq) {
		return
	}

	tender, err := h.Service.CreateTender(ctx, tenderReq)
	if err != nil {
		respondError(h.Logger, w, r, err, "failed to create tender")
		return
	}
	utils.SendJSON(w, http.StatusOK, tender)
}

// GetTender обрабатывает запросы для получения тендера.
func (h *TenderHandler) GetTender(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tender, err := h.Service.GetTender(ctx, chi.URLParam(r, "tenderId"))
	if err != nil {
		respondError(h.Logger, w, r, err, "failed to get tender")
		return
	}
	utils.SendJSON(w, http.StatusOK, tender)
}

// EditTender обрабатывает запросы изменения тендера.
func (h *TenderHandler) EditTender(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var upd models.TenderUpdate
	if !decodeBody(w, r, &upd) {
		return
	}

	tender, err := h.Service.UpdateTender(ctx, chi.URLParam(r, "tenderId"), upd)
	if err != nil {
		respondError(h.Logger, w, r, err, "failed to update tender")
		return
	}
	utils.SendJSON(w, http.StatusOK, tender)
}

// DeleteTender обрабатывает запросы удаления тендера.
func (h *TenderHandler) DeleteTender(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	force, err := utils.ParseBool("force", r.URL.Query().Get("force"))
	if err != nil {
		utils.SendError(w, err)
		return
	}

	if err := h.Service.DeleteTender(ctx, chi.URLParam(r, "tenderId"), force); err != nil {
		respondError(h.Logger, w, r, err, "failed to delete tender")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkDeleteTenders обрабатывает запросы массового удаления тендеров.
func (h *TenderHandler) BulkDeleteTenders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.BulkDeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	results, err := h.Service.BulkDeleteTenders(ctx, req.IDs, req.Force)
	if err != nil {
		respondError(h.Logger, w, r, err, "failed to delete tenders")
		return
	}
	utils.SendJSON(w, http.StatusOK, results)
}

// PublishTender обрабатывает запросы публикации тендера.
func (h *TenderHandler) PublishTender(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.Service.PublishTender, "failed to publish tender")
}

// CloseTender обрабатывает запросы закрытия приёма предложений.
func (h *TenderHandler) CloseTender(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.Service.CloseTender, "failed to close tender")
}

// BeginEvaluation обрабатывает запросы перехода к оценке.
func (h *TenderHandler) BeginEvaluation(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.Service.BeginEvaluation, "failed to begin evaluation")
}

// CancelTender обрабатывает запросы отмены тендера.
func (h *TenderHandler) CancelTender(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.Service.CancelTender, "failed to cancel tender")
}

// ExtendDeadline обрабатывает запросы продления срока подачи.
func (h *TenderHandler) ExtendDeadline(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.ExtendRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tender, err := h.Service.ExtendDeadline(ctx, chi.URLParam(r, "tenderId"), req.SubmissionDeadline)
	if err != nil {
		respondError(h.Logger, w, r, err, "failed to extend deadline")
		return
	}
	utils.SendJSON(w, http.StatusOK, tender)
}

// AwardTender обрабатывает запросы выбора победителя.
func (h *TenderHandler) AwardTender(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.AwardRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tender, err := h.Awards.Award(ctx, chi.URLParam(r, "tenderId"), req.BidID)
	if err != nil {
		respondError(h.Logger, w, r, err, "failed to award tender")
		return
	}
	utils.SendJSON(w, http.StatusOK, tender)
}

type statusChange func(ctx context.Context, tenderId string) (*models.Tender, error)

func (h *TenderHandler) changeStatus(w http.ResponseWriter, r *http.Request, change statusChange, msg string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tender, err := change(ctx, chi.URLParam(r, "tenderId"))
	if err != nil {
		respondError(h.Logger, w, r, err, msg)
		return
	}
	utils.SendJSON(w, http.StatusOK, tender)
}
