package repository

import (
	"context"
	"errors"
	"fmt"

	"economy-service/internal/domain"
	"economy-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, req *domain.TransactionRequest) (*domain.Transaction, error)
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
	ListByKind(ctx context.Context, kind domain.TransactionKind, limit int) ([]*domain.Transaction, error)
}

type transactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepo(db *pgxpool.Pool) TransactionRepository {
	return &transactionRepo{db: db}
}

const transactionColumns = `id, kind, reference, created_by, idempotency_key, created_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.Kind, &t.Reference, &t.CreatedBy, &t.IdempotencyKey, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return &t, nil
}

func (r *transactionRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.TransactionRequest) (*domain.Transaction, error) {
	query := `
		INSERT INTO transactions (kind, reference, created_by, idempotency_key)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + transactionColumns

	txn, err := scanTransaction(tx.QueryRow(ctx, query,
		req.Kind, req.Reference, req.CreatedBy, req.IdempotencyKey))
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return nil, xerrors.ErrDuplicateIdempotencyKey
		}
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return txn, nil
}

func (r *transactionRepo) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, id))
}

func (r *transactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, key))
}

func (r *transactionRepo) ListByKind(ctx context.Context, kind domain.TransactionKind, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE kind = $1 ORDER BY id DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.Kind, &t.Reference, &t.CreatedBy, &t.IdempotencyKey, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, &t)
	}
	return txns, rows.Err()
}
