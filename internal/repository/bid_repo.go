package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/senyabanana/tender-service/internal/models"

	"github.com/jackc/pgx/v5"
)

// BidRepository - интерфейс для работы с предложениями.
type BidRepository interface {
	GetBid(ctx context.Context, bidId string) (*models.Bid, error)
	CreateBid(ctx context.Context, bid *models.Bid) (*models.Bid, error)
	UpdateBid(ctx context.Context, bid *models.Bid, expectedVersion int32) (*models.Bid, error)
	ListTenderBids(ctx context.Context, tenderId string) ([]models.Bid, error)
	ListVendorBids(ctx context.Context, vendorId string) ([]models.Bid, error)
}

const bidColumns = `id, tender_id, vendor_id, vendor_name, bid_amount, technical_score, financial_score,
	composite_score, evaluation_notes, score_history, status, submitted_at, updated_at, version`

// PostgresBidRepository - реализация BidRepository для базы данных.
type PostgresBidRepository struct {
	DB Querier
}

// NewPostgresBidRepository создает новый экземпляр PostgresBidRepository.
func NewPostgresBidRepository(db Querier) *PostgresBidRepository {
	return &PostgresBidRepository{DB: db}
}

func scanBid(row rowScanner) (*models.Bid, error) {
	var bid models.Bid
	err := row.Scan(
		&bid.ID,
		&bid.TenderID,
		&bid.VendorID,
		&bid.VendorName,
		&bid.BidAmount,
		&bid.TechnicalScore,
		&bid.FinancialScore,
		&bid.CompositeScore,
		&bid.EvaluationNotes,
		&bid.ScoreHistory,
		&bid.Status,
		&bid.SubmittedAt,
		&bid.UpdatedAt,
		&bid.Version)
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// GetBid возвращает предложение по ID.
func (r *PostgresBidRepository) GetBid(ctx context.Context, bidId string) (*models.Bid, error) {
	if err := checkID("bid", bidId); err != nil {
		return nil, err
	}
	query := `SELECT ` + bidColumns + ` FROM bid WHERE id = $1`
	bid, err := scanBid(r.DB.QueryRow(ctx, query, bidId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NewNotFoundError("bid", bidId)
		}
		return nil, fmt.Errorf("get bid: %w", err)
	}
	return bid, nil
}

// CreateBid создает новое предложение. Вставка выполняется только пока тендер активен,
// второе поданное предложение того же поставщика отсекается частичным уникальным индексом.
func (r *PostgresBidRepository) CreateBid(ctx context.Context, bid *models.Bid) (*models.Bid, error) {
	query := `INSERT INTO bid (` + bidColumns + `)
		SELECT $1::uuid, $2::uuid, $3::text, $4::text, $5::numeric, $6::numeric, $7::numeric, $8::numeric,
			$9::text, $10::jsonb, $11::text, $12::timestamptz, $13::timestamptz, $14::integer
		WHERE EXISTS (SELECT 1 FROM tender WHERE id = $2::uuid AND status = 'active' AND deleted_at IS NULL)
		RETURNING ` + bidColumns
	created, err := scanBid(r.DB.QueryRow(ctx, query,
		bid.ID,
		bid.TenderID,
		bid.VendorID,
		bid.VendorName,
		bid.BidAmount,
		bid.TechnicalScore,
		bid.FinancialScore,
		bid.CompositeScore,
		bid.EvaluationNotes,
		historyOrEmpty(bid.ScoreHistory),
		bid.Status,
		bid.SubmittedAt,
		bid.UpdatedAt,
		bid.Version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NewConflictError(fmt.Sprintf("tender %s is not accepting bids", bid.TenderID), nil)
		}
		if isUniqueViolation(err) {
			return nil, models.NewConflictError(
				fmt.Sprintf("vendor %s already has a submitted bid for tender %s", bid.VendorID, bid.TenderID), nil)
		}
		return nil, fmt.Errorf("failed to insert bid: %w", err)
	}
	return created, nil
}

// UpdateBid сохраняет предложение, если его версия не изменилась.
func (r *PostgresBidRepository) UpdateBid(ctx context.Context, bid *models.Bid, expectedVersion int32) (*models.Bid, error) {
	query := `UPDATE bid SET
		technical_score = $3, financial_score = $4, composite_score = $5, evaluation_notes = $6,
		score_history = $7, status = $8, updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING ` + bidColumns
	updated, err := scanBid(r.DB.QueryRow(ctx, query,
		bid.ID,
		expectedVersion,
		bid.TechnicalScore,
		bid.FinancialScore,
		bid.CompositeScore,
		bid.EvaluationNotes,
		historyOrEmpty(bid.ScoreHistory),
		bid.Status,
		bid.UpdatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current, getErr := r.GetBid(ctx, bid.ID)
			if getErr != nil {
				return nil, getErr
			}
			return nil, models.NewConflictError(
				fmt.Sprintf("bid %s was modified concurrently, current version is %d", bid.ID, current.Version), nil)
		}
		if isUniqueViolation(err) {
			return nil, models.NewConflictError(
				fmt.Sprintf("vendor %s already has a submitted bid for tender %s", bid.VendorID, bid.TenderID), nil)
		}
		return nil, fmt.Errorf("update bid: %w", err)
	}
	return updated, nil
}

// ListTenderBids возвращает предложения по тендеру в порядке подачи.
func (r *PostgresBidRepository) ListTenderBids(ctx context.Context, tenderId string) ([]models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bid WHERE tender_id = $1 ORDER BY submitted_at, id`
	return r.list(ctx, query, tenderId)
}

// ListVendorBids возвращает предложения поставщика, новые первыми.
func (r *PostgresBidRepository) ListVendorBids(ctx context.Context, vendorId string) ([]models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bid WHERE vendor_id = $1 ORDER BY submitted_at DESC, id`
	return r.list(ctx, query, vendorId)
}

func (r *PostgresBidRepository) list(ctx context.Context, query string, arg string) ([]models.Bid, error) {
	rows, err := r.DB.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, *bid)
	}
	return bids, rows.Err()
}

func historyOrEmpty(history []models.ScoreAudit) []models.ScoreAudit {
	if history == nil {
		return []models.ScoreAudit{}
	}
	return history
}
