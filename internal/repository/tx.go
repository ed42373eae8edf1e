package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier - общий интерфейс пула и транзакции, репозитории работают с обоими.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner выполняет fn в одной транзакции с репозиториями, привязанными к ней.
// Ошибка из fn откатывает все изменения.
type TxRunner interface {
	Run(ctx context.Context, fn func(tenders TenderRepository, bids BidRepository) error) error
}

var _ TxRunner = (*PostgresTxRunner)(nil)

// PostgresTxRunner - реализация TxRunner для PostgreSQL.
type PostgresTxRunner struct {
	pool *pgxpool.Pool
}

// NewPostgresTxRunner создаёт новый экземпляр PostgresTxRunner.
func NewPostgresTxRunner(pool *pgxpool.Pool) *PostgresTxRunner {
	return &PostgresTxRunner{pool: pool}
}

// Run открывает транзакцию, выполняет fn и фиксирует или откатывает её.
func (r *PostgresTxRunner) Run(ctx context.Context, fn func(tenders TenderRepository, bids BidRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewPostgresTenderRepository(tx), NewPostgresBidRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// isUniqueViolation проверяет нарушение уникального ограничения (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// rowScanner - общий интерфейс pgx.Row и pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
