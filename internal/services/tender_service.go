package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/senyabanana/tender-service/internal/models"
	"github.com/senyabanana/tender-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const defaultBulkConcurrency = 4

// TenderOptions - настраиваемое поведение TenderService.
type TenderOptions struct {
	SweepOnRead     bool // закрывать просроченные тендеры перед чтением
	BulkConcurrency int  // сколько тендеров удаляется параллельно в пакете
}

// TenderService реализует операции жизненного цикла тендера.
type TenderService struct {
	Deps
	deadlines *DeadlineManager
	opts      TenderOptions
}

// NewTenderService создаёт новый экземпляр TenderService.
func NewTenderService(deps Deps, deadlines *DeadlineManager, opts TenderOptions) *TenderService {
	if opts.BulkConcurrency <= 0 {
		opts.BulkConcurrency = defaultBulkConcurrency
	}
	return &TenderService{Deps: deps.withDefaults(), deadlines: deadlines, opts: opts}
}

// CreateTender создаёт тендер в статусе draft.
func (s *TenderService) CreateTender(ctx context.Context, req models.TenderRequest) (*models.Tender, error) {
	now := s.Clock.Now()
	tender := &models.Tender{
		ID:                 uuid.NewString(),
		TenderNumber:       strings.TrimSpace(req.TenderNumber),
		Title:              strings.TrimSpace(req.Title),
		Category:           req.Category,
		Description:        req.Description,
		ScopeOfWork:        req.ScopeOfWork,
		BudgetMin:          req.BudgetMin,
		BudgetMax:          req.BudgetMax,
		PublicationDate:    req.PublicationDate,
		SubmissionDeadline: req.SubmissionDeadline,
		EvaluationDate:     req.EvaluationDate,
		Visibility:         req.Visibility,
		Status:             models.DraftTender,
		Attachments:        req.Attachments,
		CreatedAt:          now,
		UpdatedAt:          now,
		Version:            1,
	}
	if tender.TenderNumber == "" {
		tender.TenderNumber = newTenderNumber(now)
	}
	if tender.Visibility == "" {
		tender.Visibility = models.PublicTender
	}
	if err := validateTender(tender); err != nil {
		return nil, err
	}

	created, err := s.Tenders.CreateTender(ctx, tender)
	if err != nil {
		return nil, err
	}
	s.Logger.Info().Str("tender_id", created.ID).Str("tender_number", created.TenderNumber).Msg("tender created")
	return created, nil
}

// GetTender возвращает тендер по ID.
func (s *TenderService) GetTender(ctx context.Context, tenderId string) (*models.Tender, error) {
	tender, err := s.Tenders.GetTender(ctx, tenderId)
	if err != nil {
		return nil, err
	}
	if s.opts.SweepOnRead && s.deadlines != nil {
		return s.deadlines.Refresh(ctx, tender)
	}
	return tender, nil
}

// UpdateTender применяет частичное изменение. До публикации можно менять любые поля,
// у активного или закрытого тендера - только дату оценки и вложения.
func (s *TenderService) UpdateTender(ctx context.Context, tenderId string, upd models.TenderUpdate) (*models.Tender, error) {
	if upd.Version <= 0 {
		return nil, models.NewValidationError("version", "current version is required")
	}

	tender, err := s.Tenders.GetTender(ctx, tenderId)
	if err != nil {
		return nil, err
	}
	if tender.Version != upd.Version {
		return nil, models.NewConflictError(
			fmt.Sprintf("tender %s was modified concurrently, current version is %d", tenderId, tender.Version), tender)
	}
	if tender.Status.IsTerminal() || (tender.Status != models.DraftTender && upd.TouchesCoreFields()) {
		return nil, &models.InvalidTransitionError{From: tender.Status, Action: models.UpdateAction}
	}

	before := tender.Clone()
	applyUpdate(tender, upd)
	if sameEditableFields(&before, tender) {
		return tender, nil
	}
	if err := validateTender(tender); err != nil {
		return nil, err
	}
	tender.UpdatedAt = s.Clock.Now()

	updated, err := s.Tenders.UpdateTender(ctx, tender, upd.Version)
	if err != nil {
		return nil, err
	}
	s.Logger.Info().Str("tender_id", updated.ID).Int32("version", updated.Version).Msg("tender updated")
	return updated, nil
}

// DeleteTender удаляет тендер. Тендер с неотозванными предложениями удаляется
// только с force, при этом все его предложения помечаются отозванными в той же транзакции.
func (s *TenderService) DeleteTender(ctx context.Context, tenderId string, force bool) error {
	withdrawn := 0
	err := s.Tx.Run(ctx, func(tenders repository.TenderRepository, bids repository.BidRepository) error {
		withdrawn = 0
		tender, err := tenders.GetTender(ctx, tenderId)
		if err != nil {
			return err
		}
		if tender.Status == models.AwardedTender {
			return &models.InvalidTransitionError{From: tender.Status, Action: models.DeleteAction}
		}

		all, err := bids.ListTenderBids(ctx, tenderId)
		if err != nil {
			return err
		}
		var live []models.Bid
		for _, b := range all {
			if b.Status != models.WithdrawnBid {
				live = append(live, b)
			}
		}
		if len(live) > 0 && !force {
			return models.NewConflictError(
				fmt.Sprintf("tender %s has %d bids that are not withdrawn", tenderId, len(live)), tender)
		}

		now := s.Clock.Now()
		for _, b := range live {
			expected := b.Version
			b.Status = models.WithdrawnBid
			b.UpdatedAt = now
			if _, err := bids.UpdateBid(ctx, &b, expected); err != nil {
				return err
			}
			withdrawn++
		}
		return tenders.DeleteTender(ctx, tenderId, tender.Version)
	})
	if err != nil {
		return err
	}

	s.Logger.Info().Str("tender_id", tenderId).Bool("force", force).Int("withdrawn_bids", withdrawn).Msg("tender deleted")
	return nil
}

// BulkDeleteTenders удаляет тендеры независимо друг от друга. Ошибка одного
// тендера не прерывает обработку остальных, результаты идут в порядке ids.
func (s *TenderService) BulkDeleteTenders(ctx context.Context, ids []string, force bool) ([]models.BulkDeleteResult, error) {
	if len(ids) == 0 {
		return nil, models.NewValidationError("ids", "at least one tender id is required")
	}

	results := make([]models.BulkDeleteResult, len(ids))
	var g errgroup.Group
	g.SetLimit(s.opts.BulkConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			err := s.DeleteTender(ctx, id, force)
			results[i] = bulkResult(id, err)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.Deleted {
			failed++
		}
	}
	s.Logger.Info().Int("requested", len(ids)).Int("failed", failed).Msg("bulk delete finished")
	return results, nil
}

func bulkResult(id string, err error) models.BulkDeleteResult {
	if err == nil {
		return models.BulkDeleteResult{ID: id, Deleted: true}
	}
	return models.BulkDeleteResult{ID: id, Code: models.ErrorCode(err), Reason: err.Error(), Err: err}
}

// ListTenders возвращает тендеры по фильтру.
func (s *TenderService) ListTenders(ctx context.Context, filter models.TenderFilter) ([]models.Tender, error) {
	for _, c := range filter.Categories {
		if !models.ValidTenderCategory(c) {
			return nil, models.NewValidationError("category", fmt.Sprintf("unsupported category: %s", c))
		}
	}
	for _, st := range filter.Statuses {
		if !models.ValidTenderStatus(st) {
			return nil, models.NewValidationError("status", fmt.Sprintf("unsupported status: %s", st))
		}
	}
	if filter.Sort == "" {
		filter.Sort = models.SortNewest
	}
	if !models.ValidTenderSort(filter.Sort) {
		return nil, models.NewValidationError("sort", fmt.Sprintf("unsupported sort: %s", filter.Sort))
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, models.NewValidationError("limit", "limit and offset must be non-negative")
	}

	if s.opts.SweepOnRead && s.deadlines != nil {
		if _, err := s.deadlines.Sweep(ctx, s.Clock.Now()); err != nil {
			s.Logger.Warn().Err(err).Msg("sweep before list failed")
		}
	}
	return s.Tenders.ListTenders(ctx, filter)
}

// PublishTender переводит черновик в статус active.
func (s *TenderService) PublishTender(ctx context.Context, tenderId string) (*models.Tender, error) {
	published, err := s.transition(ctx, tenderId, models.PublishAction, TransitionInput{}, func(t *models.Tender, now time.Time) {
		if t.PublicationDate == nil {
			t.PublicationDate = &now
		}
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, tenderNotification(models.TenderPublishedNotification, published))
	return published, nil
}

// ExtendDeadline продлевает срок подачи предложений.
func (s *TenderService) ExtendDeadline(ctx context.Context, tenderId string, newDeadline time.Time) (*models.Tender, error) {
	return s.deadlines.Extend(ctx, tenderId, newDeadline)
}

// CloseTender закрывает приём предложений вручную. Повторное закрытие уже
// закрытого тендера ничего не меняет и возвращает его текущее состояние.
func (s *TenderService) CloseTender(ctx context.Context, tenderId string) (*models.Tender, error) {
	closed, err := s.transition(ctx, tenderId, models.CloseAction, TransitionInput{}, nil)
	if err != nil {
		var (
			conflict   *models.ConflictError
			transition *models.InvalidTransitionError
		)
		switch {
		case errors.As(err, &conflict) && conflict.Current != nil && conflict.Current.Status == models.ClosedTender:
			return conflict.Current, nil
		case errors.As(err, &transition) && transition.From == models.ClosedTender:
			current, getErr := s.Tenders.GetTender(ctx, tenderId)
			if getErr == nil && current.Status == models.ClosedTender {
				return current, nil
			}
		}
		return nil, err
	}
	s.notify(ctx, tenderNotification(models.TenderClosedNotification, closed))
	return closed, nil
}

// BeginEvaluation начинает оценку. Нужно хотя бы одно поданное предложение.
func (s *TenderService) BeginEvaluation(ctx context.Context, tenderId string) (*models.Tender, error) {
	bids, err := s.Bids.ListTenderBids(ctx, tenderId)
	if err != nil {
		return nil, err
	}
	submitted := 0
	for _, b := range bids {
		if b.Status == models.SubmittedBid {
			submitted++
		}
	}
	return s.transition(ctx, tenderId, models.BeginEvaluationAction, TransitionInput{SubmittedBids: submitted}, nil)
}

// CancelTender отменяет тендер из любого нетерминального статуса.
func (s *TenderService) CancelTender(ctx context.Context, tenderId string) (*models.Tender, error) {
	cancelled, err := s.transition(ctx, tenderId, models.CancelAction, TransitionInput{}, nil)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, tenderNotification(models.TenderCancelledNotification, cancelled))
	return cancelled, nil
}

// transition проверяет действие по таблице переходов и сохраняет новый статус
// с проверкой версии.
func (s *TenderService) transition(ctx context.Context, tenderId string, action models.TenderAction, in TransitionInput, mutate func(t *models.Tender, now time.Time)) (*models.Tender, error) {
	tender, err := s.Tenders.GetTender(ctx, tenderId)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	next, err := ValidateTransition(*tender, action, in, now)
	if err != nil {
		return nil, err
	}

	expected := tender.Version
	from := tender.Status
	tender.Status = next
	tender.UpdatedAt = now
	if mutate != nil {
		mutate(tender, now)
	}

	updated, err := s.Tenders.UpdateTender(ctx, tender, expected)
	if err != nil {
		return nil, err
	}
	s.Logger.Info().
		Str("tender_id", updated.ID).
		Str("action", string(action)).
		Str("from", string(from)).
		Str("to", string(updated.Status)).
		Msg("tender status changed")
	return updated, nil
}

func applyUpdate(t *models.Tender, upd models.TenderUpdate) {
	if upd.Title != nil {
		t.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Category != nil {
		t.Category = *upd.Category
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.ScopeOfWork != nil {
		t.ScopeOfWork = *upd.ScopeOfWork
	}
	if upd.BudgetMin != nil {
		t.BudgetMin = *upd.BudgetMin
	}
	if upd.BudgetMax != nil {
		t.BudgetMax = *upd.BudgetMax
	}
	if upd.PublicationDate != nil {
		t.PublicationDate = upd.PublicationDate
	}
	if upd.SubmissionDeadline != nil {
		t.SubmissionDeadline = upd.SubmissionDeadline
	}
	if upd.EvaluationDate != nil {
		t.EvaluationDate = upd.EvaluationDate
	}
	if upd.Visibility != nil {
		t.Visibility = *upd.Visibility
	}
	if upd.Attachments != nil {
		t.Attachments = *upd.Attachments
	}
}

// sameEditableFields сообщает, что изменение не затронуло ни одного поля.
func sameEditableFields(a, b *models.Tender) bool {
	return a.Title == b.Title &&
		a.Category == b.Category &&
		a.Description == b.Description &&
		a.ScopeOfWork == b.ScopeOfWork &&
		sameNullDecimal(a.BudgetMin, b.BudgetMin) &&
		sameNullDecimal(a.BudgetMax, b.BudgetMax) &&
		sameTime(a.PublicationDate, b.PublicationDate) &&
		sameTime(a.SubmissionDeadline, b.SubmissionDeadline) &&
		sameTime(a.EvaluationDate, b.EvaluationDate) &&
		a.Visibility == b.Visibility &&
		slices.Equal(a.Attachments, b.Attachments)
}

func sameNullDecimal(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// validateTender проверяет поля, которые должны быть корректны в любом статусе.
// Обязательность полей для публикации проверяет ValidateTransition.
func validateTender(t *models.Tender) error {
	if t.Category != "" && !models.ValidTenderCategory(t.Category) {
		return models.NewValidationError("category", fmt.Sprintf("unsupported category: %s", t.Category))
	}
	if t.Visibility != models.PublicTender && t.Visibility != models.RestrictedTender {
		return models.NewValidationError("visibility", "must be public or restricted")
	}
	if t.BudgetMin.Valid && t.BudgetMin.Decimal.LessThan(decimal.Zero) {
		return models.NewValidationError("budgetMin", "must not be negative")
	}
	if t.BudgetMax.Valid && t.BudgetMax.Decimal.LessThan(decimal.Zero) {
		return models.NewValidationError("budgetMax", "must not be negative")
	}
	if t.BudgetMin.Valid && t.BudgetMax.Valid && t.BudgetMin.Decimal.GreaterThan(t.BudgetMax.Decimal) {
		return models.NewValidationError("budgetMin", "must not exceed budgetMax")
	}
	if t.PublicationDate != nil && t.SubmissionDeadline != nil && !t.SubmissionDeadline.After(*t.PublicationDate) {
		return models.NewValidationError("submissionDeadline", "must be later than the publication date")
	}
	if t.EvaluationDate != nil && t.SubmissionDeadline != nil && !t.EvaluationDate.After(*t.SubmissionDeadline) {
		return models.NewValidationError("evaluationDate", "must be later than the submission deadline")
	}
	for i, a := range t.Attachments {
		if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.URL) == "" {
			return models.NewValidationError(fmt.Sprintf("attachments[%d]", i), "name and url are required")
		}
	}
	return nil
}

// newTenderNumber генерирует номер вида TND-2024-1A2B3C4D.
func newTenderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("TND-%d-%s", now.Year(), suffix)
}
