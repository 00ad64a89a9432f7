package repository

import (
	"context"
	"fmt"

	"economy-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostingRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transactionID, accountID, assetID int64, amount string) (*domain.Posting, error)
	ListByTransaction(ctx context.Context, transactionID int64) ([]*domain.Posting, error)
	ListByAccountAsset(ctx context.Context, accountID, assetID int64, limit int) ([]*domain.Posting, error)
}

type postingRepo struct {
	db *pgxpool.Pool
}

func NewPostingRepo(db *pgxpool.Pool) PostingRepository {
	return &postingRepo{db: db}
}

const postingColumns = `id, transaction_id, account_id, asset_id, amount, created_at`

func (r *postingRepo) Create(ctx context.Context, tx pgx.Tx, transactionID, accountID, assetID int64, amount string) (*domain.Posting, error) {
	query := `
		INSERT INTO postings (transaction_id, account_id, asset_id, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + postingColumns

	var p domain.Posting
	err := tx.QueryRow(ctx, query, transactionID, accountID, assetID, amount).Scan(
		&p.ID, &p.TransactionID, &p.AccountID, &p.AssetID, &p.Amount, &p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create posting: %w", err)
	}
	return &p, nil
}

func (r *postingRepo) ListByTransaction(ctx context.Context, transactionID int64) ([]*domain.Posting, error) {
	query := `SELECT ` + postingColumns + ` FROM postings WHERE transaction_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list postings: %w", err)
	}
	defer rows.Close()
	return collectPostings(rows)
}

func (r *postingRepo) ListByAccountAsset(ctx context.Context, accountID, assetID int64, limit int) ([]*domain.Posting, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + postingColumns + `
		FROM postings
		WHERE account_id = $1 AND asset_id = $2
		ORDER BY id DESC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, accountID, assetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list postings: %w", err)
	}
	defer rows.Close()
	return collectPostings(rows)
}

func collectPostings(rows pgx.Rows) ([]*domain.Posting, error) {
	var postings []*domain.Posting
	for rows.Next() {
		var p domain.Posting
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.AccountID, &p.AssetID, &p.Amount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan posting: %w", err)
		}
		postings = append(postings, &p)
	}
	return postings, rows.Err()
}
