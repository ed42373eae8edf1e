package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/tender-service/internal/models"
)

// SweepReport - итог одного прохода по просроченным тендерам.
type SweepReport struct {
	Closed  []string
	Skipped []string
	Failed  map[string]error
}

// DeadlineManager продлевает сроки подачи и закрывает просроченные тендеры.
type DeadlineManager struct {
	Deps
}

// NewDeadlineManager создаёт новый экземпляр DeadlineManager.
func NewDeadlineManager(deps Deps) *DeadlineManager {
	return &DeadlineManager{Deps: deps.withDefaults()}
}

// Extend переносит срок подачи предложений активного тендера на более поздний.
func (m *DeadlineManager) Extend(ctx context.Context, tenderId string, newDeadline time.Time) (*models.Tender, error) {
	tender, err := m.Tenders.GetTender(ctx, tenderId)
	if err != nil {
		return nil, err
	}

	now := m.Clock.Now()
	if _, err := ValidateTransition(*tender, models.ExtendAction, TransitionInput{NewDeadline: &newDeadline}, now); err != nil {
		return nil, err
	}
	if tender.EvaluationDate != nil && !tender.EvaluationDate.After(newDeadline) {
		return nil, models.NewValidationError("submissionDeadline", "must be earlier than the evaluation date")
	}

	expected := tender.Version
	previous := tender.SubmissionDeadline
	tender.SubmissionDeadline = &newDeadline
	tender.UpdatedAt = now

	updated, err := m.Tenders.UpdateTender(ctx, tender, expected)
	if err != nil {
		return nil, err
	}

	m.Logger.Info().
		Str("tender_id", updated.ID).
		Time("previous_deadline", derefTime(previous)).
		Time("deadline", newDeadline).
		Msg("submission deadline extended")
	return updated, nil
}

// Sweep закрывает активные тендеры со сроком подачи раньше now. Каждый тендер
// перечитывается непосредственно перед записью, тендеры, закрытые или продлённые
// параллельно, пропускаются.
func (m *DeadlineManager) Sweep(ctx context.Context, now time.Time) (SweepReport, error) {
	report := SweepReport{Failed: make(map[string]error)}

	expired, err := m.Tenders.ListTenders(ctx, models.TenderFilter{
		Statuses:       []models.TenderStatus{models.ActiveTender},
		DeadlineBefore: &now,
		Sort:           models.SortDeadline,
	})
	if err != nil {
		return report, fmt.Errorf("list expired tenders: %w", err)
	}

	for _, candidate := range expired {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		closed, err := m.closeExpired(ctx, candidate.ID, now)
		switch {
		case err == nil && closed != nil:
			report.Closed = append(report.Closed, candidate.ID)
			m.notify(ctx, tenderNotification(models.TenderClosedNotification, closed))
		case err == nil, lostRace(err):
			report.Skipped = append(report.Skipped, candidate.ID)
			m.Logger.Debug().Str("tender_id", candidate.ID).Msg("sweep skipped tender")
		default:
			report.Failed[candidate.ID] = err
			m.Logger.Error().Err(err).Str("tender_id", candidate.ID).Msg("sweep failed to close tender")
		}
	}

	if len(report.Closed) > 0 || len(report.Failed) > 0 {
		m.Logger.Info().
			Int("closed", len(report.Closed)).
			Int("skipped", len(report.Skipped)).
			Int("failed", len(report.Failed)).
			Msg("deadline sweep finished")
	}
	return report, nil
}

// Refresh закрывает просроченный тендер при чтении и возвращает его актуальное состояние.
func (m *DeadlineManager) Refresh(ctx context.Context, tender *models.Tender) (*models.Tender, error) {
	now := m.Clock.Now()
	if !expiredAt(tender, now) {
		return tender, nil
	}

	closed, err := m.closeExpired(ctx, tender.ID, now)
	if err != nil {
		if lostRace(err) {
			return m.Tenders.GetTender(ctx, tender.ID)
		}
		return nil, err
	}
	if closed == nil {
		return m.Tenders.GetTender(ctx, tender.ID)
	}
	m.notify(ctx, tenderNotification(models.TenderClosedNotification, closed))
	return closed, nil
}

// closeExpired возвращает nil без ошибки, если по свежему состоянию тендер закрывать не нужно.
func (m *DeadlineManager) closeExpired(ctx context.Context, tenderId string, now time.Time) (*models.Tender, error) {
	current, err := m.Tenders.GetTender(ctx, tenderId)
	if err != nil {
		return nil, err
	}
	if !expiredAt(current, now) {
		return nil, nil
	}

	next, err := ValidateTransition(*current, models.CloseAction, TransitionInput{}, now)
	if err != nil {
		return nil, err
	}
	expected := current.Version
	current.Status = next
	current.UpdatedAt = now

	closed, err := m.Tenders.UpdateTender(ctx, current, expected)
	if err != nil {
		return nil, err
	}
	m.Logger.Info().Str("tender_id", closed.ID).Msg("tender closed after submission deadline")
	return closed, nil
}

func expiredAt(t *models.Tender, now time.Time) bool {
	return t.Status == models.ActiveTender && t.SubmissionDeadline != nil && now.After(*t.SubmissionDeadline)
}

// lostRace сообщает, что тендер изменили или удалили между чтением и записью.
func lostRace(err error) bool {
	var conflict *models.ConflictError
	var notFound *models.NotFoundError
	return errors.As(err, &conflict) || errors.As(err, &notFound)
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
