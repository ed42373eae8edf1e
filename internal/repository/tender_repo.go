package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/senyabanana/tender-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

// TenderRepository - интерфейс для работы с тендерами.
type TenderRepository interface {
	GetTender(ctx context.Context, tenderId string) (*models.Tender, error)
	CreateTender(ctx context.Context, tender *models.Tender) (*models.Tender, error)
	UpdateTender(ctx context.Context, tender *models.Tender, expectedVersion int32) (*models.Tender, error)
	DeleteTender(ctx context.Context, tenderId string, expectedVersion int32) error
	ListTenders(ctx context.Context, filter models.TenderFilter) ([]models.Tender, error)
}

const tenderColumns = `id, tender_number, title, category, description, scope_of_work, budget_min, budget_max,
	publication_date, submission_deadline, evaluation_date, visibility, status, awarded_bid_id, attachments,
	created_at, updated_at, version`

// PostgresTenderRepository - реализация TenderRepository для базы данных.
type PostgresTenderRepository struct {
	DB Querier
}

// NewPostgresTenderRepository создаёт новый экземпляр PostgresTenderRepository.
func NewPostgresTenderRepository(db Querier) *PostgresTenderRepository {
	return &PostgresTenderRepository{DB: db}
}

func scanTender(row rowScanner) (*models.Tender, error) {
	var tender models.Tender
	err := row.Scan(
		&tender.ID,
		&tender.TenderNumber,
		&tender.Title,
		&tender.Category,
		&tender.Description,
		&tender.ScopeOfWork,
		&tender.BudgetMin,
		&tender.BudgetMax,
		&tender.PublicationDate,
		&tender.SubmissionDeadline,
		&tender.EvaluationDate,
		&tender.Visibility,
		&tender.Status,
		&tender.AwardedBidID,
		&tender.Attachments,
		&tender.CreatedAt,
		&tender.UpdatedAt,
		&tender.Version)
	if err != nil {
		return nil, err
	}
	return &tender, nil
}

// GetTender возвращает тендер по ID.
func (r *PostgresTenderRepository) GetTender(ctx context.Context, tenderId string) (*models.Tender, error) {
	if err := checkID("tender", tenderId); err != nil {
		return nil, err
	}
	query := `SELECT ` + tenderColumns + ` FROM tender WHERE id = $1 AND deleted_at IS NULL`
	tender, err := scanTender(r.DB.QueryRow(ctx, query, tenderId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NewNotFoundError("tender", tenderId)
		}
		return nil, fmt.Errorf("get tender: %w", err)
	}
	return tender, nil
}

// CreateTender создает новый тендер.
func (r *PostgresTenderRepository) CreateTender(ctx context.Context, tender *models.Tender) (*models.Tender, error) {
	query := `INSERT INTO tender (` + tenderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING ` + tenderColumns
	created, err := scanTender(r.DB.QueryRow(ctx, query,
		tender.ID,
		tender.TenderNumber,
		tender.Title,
		tender.Category,
		tender.Description,
		tender.ScopeOfWork,
		tender.BudgetMin,
		tender.BudgetMax,
		tender.PublicationDate,
		tender.SubmissionDeadline,
		tender.EvaluationDate,
		tender.Visibility,
		tender.Status,
		tender.AwardedBidID,
		attachmentsOrEmpty(tender.Attachments),
		tender.CreatedAt,
		tender.UpdatedAt,
		tender.Version))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.NewConflictError(fmt.Sprintf("tender number %s already exists", tender.TenderNumber), nil)
		}
		return nil, fmt.Errorf("failed to insert tender: %w", err)
	}
	return created, nil
}

// UpdateTender сохраняет тендер, если его версия не изменилась с момента чтения.
func (r *PostgresTenderRepository) UpdateTender(ctx context.Context, tender *models.Tender, expectedVersion int32) (*models.Tender, error) {
	query := `UPDATE tender SET
		title = $3, category = $4, description = $5, scope_of_work = $6, budget_min = $7, budget_max = $8,
		publication_date = $9, submission_deadline = $10, evaluation_date = $11, visibility = $12,
		status = $13, awarded_bid_id = $14, attachments = $15, updated_at = $16, version = version + 1
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
		RETURNING ` + tenderColumns
	updated, err := scanTender(r.DB.QueryRow(ctx, query,
		tender.ID,
		expectedVersion,
		tender.Title,
		tender.Category,
		tender.Description,
		tender.ScopeOfWork,
		tender.BudgetMin,
		tender.BudgetMax,
		tender.PublicationDate,
		tender.SubmissionDeadline,
		tender.EvaluationDate,
		tender.Visibility,
		tender.Status,
		tender.AwardedBidID,
		attachmentsOrEmpty(tender.Attachments),
		tender.UpdatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.staleVersion(ctx, tender.ID)
		}
		return nil, fmt.Errorf("update tender: %w", err)
	}
	return updated, nil
}

// DeleteTender помечает тендер удалённым. Номер тендера остаётся занятым.
func (r *PostgresTenderRepository) DeleteTender(ctx context.Context, tenderId string, expectedVersion int32) error {
	if err := checkID("tender", tenderId); err != nil {
		return err
	}
	query := `UPDATE tender SET deleted_at = now(), version = version + 1
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL`
	cmd, err := r.DB.Exec(ctx, query, tenderId, expectedVersion)
	if err != nil {
		return fmt.Errorf("delete tender: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return r.staleVersion(ctx, tenderId)
	}
	return nil
}

// checkID отсекает идентификаторы, которые не являются UUID: такой записи в базе быть не может.
func checkID(entity, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.NewNotFoundError(entity, id)
	}
	return nil
}

// staleVersion отличает отсутствующий тендер от устаревшей версии.
func (r *PostgresTenderRepository) staleVersion(ctx context.Context, tenderId string) error {
	current, err := r.GetTender(ctx, tenderId)
	if err != nil {
		return err
	}
	return models.NewConflictError(
		fmt.Sprintf("tender %s was modified concurrently, current version is %d", tenderId, current.Version), current)
}

// ListTenders возвращает список тендеров по фильтру.
func (r *PostgresTenderRepository) ListTenders(ctx context.Context, filter models.TenderFilter) ([]models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tender`
	filters := []string{"deleted_at IS NULL"}
	var args []interface{}
	argIndex := 1

	if len(filter.Categories) > 0 {
		filters = append(filters, fmt.Sprintf("category = ANY($%d)", argIndex))
		args = append(args, pq.Array(toStrings(filter.Categories)))
		argIndex++
	}

	if len(filter.Statuses) > 0 {
		filters = append(filters, fmt.Sprintf("status = ANY($%d)", argIndex))
		args = append(args, pq.Array(toStrings(filter.Statuses)))
		argIndex++
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		filters = append(filters, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+escapeLike(search)+"%")
		argIndex++
	}

	if filter.DeadlineBefore != nil {
		filters = append(filters, fmt.Sprintf("submission_deadline < $%d", argIndex))
		args = append(args, *filter.DeadlineBefore)
		argIndex++
	}

	query += " WHERE " + strings.Join(filters, " AND ")
	query += " ORDER BY " + orderBy(filter.Sort)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tenders: %w", err)
	}
	defer rows.Close()

	var tenders []models.Tender
	for rows.Next() {
		tender, err := scanTender(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tender: %w", err)
		}
		tenders = append(tenders, *tender)
	}
	return tenders, rows.Err()
}

func orderBy(sort models.TenderSort) string {
	switch sort {
	case models.SortOldest:
		return "created_at ASC, id"
	case models.SortAlphabetical:
		return "lower(title) ASC, id"
	case models.SortDeadline:
		return "submission_deadline ASC NULLS LAST, id"
	default:
		return "created_at DESC, id"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}

func attachmentsOrEmpty(attachments []models.Attachment) []models.Attachment {
	if attachments == nil {
		return []models.Attachment{}
	}
	return attachments
}
