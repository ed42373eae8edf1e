package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	TenderCategory   string // Категория тендера
	TenderStatus     string // Статус тендера
	TenderVisibility string // Видимость тендера
	TenderAction     string // Действие над тендером
	TenderSort       string // Порядок сортировки списка тендеров
)

const (
	Construction TenderCategory = "construction"
	Delivery     TenderCategory = "delivery"
	Manufacture  TenderCategory = "manufacture"
	Consulting   TenderCategory = "consulting"
	ITServices   TenderCategory = "it_services"
	Maintenance  TenderCategory = "maintenance"

	DraftTender           TenderStatus = "draft"            // Тендер создан, не опубликован
	ActiveTender          TenderStatus = "active"           // Тендер опубликован, приём предложений
	ClosedTender          TenderStatus = "closed"           // Приём предложений завершён
	UnderEvaluationTender TenderStatus = "under_evaluation" // Идёт оценка предложений
	AwardedTender         TenderStatus = "awarded"          // Победитель выбран
	CancelledTender       TenderStatus = "cancelled"        // Тендер отменён

	PublicTender     TenderVisibility = "public"
	RestrictedTender TenderVisibility = "restricted"

	PublishAction         TenderAction = "publish"
	ExtendAction          TenderAction = "extend"
	CloseAction           TenderAction = "close"
	BeginEvaluationAction TenderAction = "begin_evaluation"
	AwardAction           TenderAction = "award"
	CancelAction          TenderAction = "cancel"
	UpdateAction          TenderAction = "update"
	DeleteAction          TenderAction = "delete"
	SubmitBidAction       TenderAction = "submit_bid"
	WithdrawBidAction     TenderAction = "withdraw_bid"
	ScoreBidAction        TenderAction = "score_bid"

	SortNewest       TenderSort = "newest"
	SortOldest       TenderSort = "oldest"
	SortAlphabetical TenderSort = "alphabetical"
	SortDeadline     TenderSort = "deadline"
)

// ValidTenderCategory проверяет, что категория входит в закрытый список.
func ValidTenderCategory(c TenderCategory) bool {
	switch c {
	case Construction, Delivery, Manufacture, Consulting, ITServices, Maintenance:
		return true
	default:
		return false
	}
}

// ValidTenderStatus проверяет, что статус известен.
func ValidTenderStatus(s TenderStatus) bool {
	switch s {
	case DraftTender, ActiveTender, ClosedTender, UnderEvaluationTender, AwardedTender, CancelledTender:
		return true
	default:
		return false
	}
}

// ValidTenderSort проверяет порядок сортировки.
func ValidTenderSort(s TenderSort) bool {
	switch s {
	case SortNewest, SortOldest, SortAlphabetical, SortDeadline:
		return true
	default:
		return false
	}
}

// IsTerminal сообщает, что из статуса нет переходов.
func (s TenderStatus) IsTerminal() bool {
	return s == AwardedTender || s == CancelledTender
}

// Attachment - непрозрачная ссылка на файл, содержимое хранится вне сервиса.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Tender представляет модель тендера.
type Tender struct {
	ID                 string              `json:"id"`
	TenderNumber       string              `json:"tenderNumber"`
	Title              string              `json:"title"`
	Category           TenderCategory      `json:"category"`
	Description        string              `json:"description"`
	ScopeOfWork        string              `json:"scopeOfWork"`
	BudgetMin          decimal.NullDecimal `json:"budgetMin"`
	BudgetMax          decimal.NullDecimal `json:"budgetMax"`
	PublicationDate    *time.Time          `json:"publicationDate"`
	SubmissionDeadline *time.Time          `json:"submissionDeadline"`
	EvaluationDate     *time.Time          `json:"evaluationDate"`
	Visibility         TenderVisibility    `json:"visibility"`
	Status             TenderStatus        `json:"status"`
	AwardedBidID       *string             `json:"awardedBidId"`
	Attachments        []Attachment        `json:"attachments"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
	Version            int32               `json:"version"`
}

// Clone возвращает копию тендера без общих срезов и указателей.
func (t Tender) Clone() Tender {
	c := t
	c.PublicationDate = cloneTime(t.PublicationDate)
	c.SubmissionDeadline = cloneTime(t.SubmissionDeadline)
	c.EvaluationDate = cloneTime(t.EvaluationDate)
	if t.AwardedBidID != nil {
		id := *t.AwardedBidID
		c.AwardedBidID = &id
	}
	if t.Attachments != nil {
		c.Attachments = make([]Attachment, len(t.Attachments))
		copy(c.Attachments, t.Attachments)
	}
	return c
}

// TenderRequest представляет структуру запроса для создания тендера.
type TenderRequest struct {
	TenderNumber       string              `json:"tenderNumber"`
	Title              string              `json:"title"`
	Category           TenderCategory      `json:"category"`
	Description        string              `json:"description"`
	ScopeOfWork        string              `json:"scopeOfWork"`
	BudgetMin          decimal.NullDecimal `json:"budgetMin"`
	BudgetMax          decimal.NullDecimal `json:"budgetMax"`
	PublicationDate    *time.Time          `json:"publicationDate"`
	SubmissionDeadline *time.Time          `json:"submissionDeadline"`
	EvaluationDate     *time.Time          `json:"evaluationDate"`
	Visibility         TenderVisibility    `json:"visibility"`
	Attachments        []Attachment        `json:"attachments"`
}

// TenderUpdate описывает частичное изменение тендера. Nil-поля не меняются.
type TenderUpdate struct {
	Version            int32                `json:"version"`
	Title              *string              `json:"title"`
	Category           *TenderCategory      `json:"category"`
	Description        *string              `json:"description"`
	ScopeOfWork        *string              `json:"scopeOfWork"`
	BudgetMin          *decimal.NullDecimal `json:"budgetMin"`
	BudgetMax          *decimal.NullDecimal `json:"budgetMax"`
	PublicationDate    *time.Time           `json:"publicationDate"`
	SubmissionDeadline *time.Time           `json:"submissionDeadline"`
	EvaluationDate     *time.Time           `json:"evaluationDate"`
	Visibility         *TenderVisibility    `json:"visibility"`
	Attachments        *[]Attachment        `json:"attachments"`
}

// TouchesCoreFields сообщает, меняет ли запрос поля, закрытые после публикации.
func (u TenderUpdate) TouchesCoreFields() bool {
	return u.Title != nil || u.Category != nil || u.Description != nil || u.ScopeOfWork != nil ||
		u.BudgetMin != nil || u.BudgetMax != nil || u.PublicationDate != nil ||
		u.SubmissionDeadline != nil || u.Visibility != nil
}

// TenderFilter - параметры выборки списка тендеров.
type TenderFilter struct {
	Categories     []TenderCategory
	Statuses       []TenderStatus
	Search         string
	Sort           TenderSort
	DeadlineBefore *time.Time
	Limit          int
	Offset         int
}

// BulkDeleteRequest - тело запроса массового удаления.
type BulkDeleteRequest struct {
	IDs   []string `json:"ids"`
	Force bool     `json:"force"`
}

// BulkDeleteResult - результат удаления одного тендера в пакете.
type BulkDeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Err     error  `json:"-"`
}

// ExtendRequest - тело запроса продления срока подачи.
type ExtendRequest struct {
	SubmissionDeadline time.Time `json:"submissionDeadline"`
}

// AwardRequest - тело запроса выбора победителя.
type AwardRequest struct {
	BidID string `json:"bidId"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
