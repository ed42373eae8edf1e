package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/tender-service/internal/models"
)

// TransitionInput - данные, которые нужны для проверки условий перехода,
// но не хранятся в самом тендере.
type TransitionInput struct {
	NewDeadline   *time.Time  // для extend
	SubmittedBids int         // для begin_evaluation
	Bid           *models.Bid // для award
}

// transitions - единственная таблица допустимых переходов статуса тендера.
var transitions = map[models.TenderStatus]map[models.TenderAction]models.TenderStatus{
	models.DraftTender: {
		models.PublishAction: models.ActiveTender,
		models.CancelAction:  models.CancelledTender,
	},
	models.ActiveTender: {
		models.ExtendAction: models.ActiveTender,
		models.CloseAction:  models.ClosedTender,
		models.CancelAction: models.CancelledTender,
	},
	models.ClosedTender: {
		models.BeginEvaluationAction: models.UnderEvaluationTender,
		models.AwardAction:           models.AwardedTender,
		models.CancelAction:          models.CancelledTender,
	},
	models.UnderEvaluationTender: {
		models.AwardAction:  models.AwardedTender,
		models.CancelAction: models.CancelledTender,
	},
}

// ValidateTransition проверяет действие над тендером и возвращает новый статус.
// Функция ничего не сохраняет.
func ValidateTransition(t models.Tender, action models.TenderAction, in TransitionInput, now time.Time) (models.TenderStatus, error) {
	next, ok := transitions[t.Status][action]
	if !ok {
		return "", &models.InvalidTransitionError{From: t.Status, Action: action}
	}

	switch action {
	case models.PublishAction:
		if err := checkPublishable(t, now); err != nil {
			return "", err
		}
	case models.ExtendAction:
		if in.NewDeadline == nil {
			return "", models.NewValidationError("submissionDeadline", "new deadline is required")
		}
		if t.SubmissionDeadline != nil && !in.NewDeadline.After(*t.SubmissionDeadline) {
			return "", models.NewValidationError("submissionDeadline", "new deadline must be later than the current deadline")
		}
		if !in.NewDeadline.After(now) {
			return "", models.NewValidationError("submissionDeadline", "new deadline must be in the future")
		}
	case models.BeginEvaluationAction:
		if in.SubmittedBids < 1 {
			return "", models.NewValidationError("", fmt.Sprintf("tender %s has no submitted bids to evaluate", t.TenderNumber))
		}
	case models.AwardAction:
		if err := checkAwardable(t, in.Bid); err != nil {
			return "", err
		}
	}
	return next, nil
}

// AllowsBids сообщает, принимает ли тендер действия поставщиков с предложениями.
func AllowsBids(t models.Tender, action models.TenderAction) error {
	if t.Status != models.ActiveTender {
		return &models.InvalidTransitionError{From: t.Status, Action: action}
	}
	return nil
}

func checkPublishable(t models.Tender, now time.Time) error {
	var missing []string
	if strings.TrimSpace(t.Title) == "" {
		missing = append(missing, "title")
	}
	if t.Category == "" {
		missing = append(missing, "category")
	}
	if strings.TrimSpace(t.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return models.NewValidationError(strings.Join(missing, ","), "required to publish a tender")
	}
	if t.SubmissionDeadline == nil {
		return models.NewValidationError("submissionDeadline", "required to publish a tender")
	}
	if !t.SubmissionDeadline.After(now) {
		return models.NewValidationError("submissionDeadline", "must be in the future to publish a tender")
	}
	if t.PublicationDate != nil && !t.SubmissionDeadline.After(*t.PublicationDate) {
		return models.NewValidationError("submissionDeadline", "must be later than the publication date")
	}
	return nil
}

func checkAwardable(t models.Tender, bid *models.Bid) error {
	if bid == nil {
		return models.NewValidationError("bidId", "bid to award is required")
	}
	if bid.TenderID != t.ID {
		return models.NewValidationError("bidId", fmt.Sprintf("bid %s does not belong to tender %s", bid.ID, t.ID))
	}
	if bid.Status != models.SubmittedBid {
		return models.NewValidationError("bidId", fmt.Sprintf("bid %s is %s, only submitted bids can be awarded", bid.ID, bid.Status))
	}
	return nil
}
