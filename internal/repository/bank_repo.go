package repository

import (
	"context"
	"errors"
	"fmt"

	"economy-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type BankRepository interface {
	// GetAccountWithLock creates the bank row if missing and locks it.
	GetAccountWithLock(ctx context.Context, tx pgx.Tx, userID, assetID int64) (*domain.BankAccount, error)
	GetAccount(ctx context.Context, userID, assetID int64) (*domain.BankAccount, error)
	ApplyDelta(ctx context.Context, tx pgx.Tx, userID, assetID int64, delta decimal.Decimal) (decimal.Decimal, error)
	RecordHistory(ctx context.Context, tx pgx.Tx, bt *domain.BankTransaction) error
	History(ctx context.Context, userID, assetID int64, limit int) ([]*domain.BankTransaction, error)
}

type bankRepo struct {
	db *pgxpool.Pool
}

func NewBankRepo(db *pgxpool.Pool) BankRepository {
	return &bankRepo{db: db}
}

func (r *bankRepo) GetAccountWithLock(ctx context.Context, tx pgx.Tx, userID, assetID int64) (*domain.BankAccount, error) {
	seed := `
		INSERT INTO bank_accounts (user_id, asset_id, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id, asset_id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, seed, userID, assetID); err != nil {
		return nil, fmt.Errorf("failed to seed bank account: %w", err)
	}

	query := `
		SELECT id, user_id, asset_id, balance, created_at
		FROM bank_accounts
		WHERE user_id = $1 AND asset_id = $2
		FOR UPDATE
	`
	var b domain.BankAccount
	err := tx.QueryRow(ctx, query, userID, assetID).Scan(&b.ID, &b.UserID, &b.AssetID, &b.Balance, &b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to lock bank account: %w", err)
	}
	return &b, nil
}

func (r *bankRepo) GetAccount(ctx context.Context, userID, assetID int64) (*domain.BankAccount, error) {
	query := `
		SELECT id, user_id, asset_id, balance, created_at
		FROM bank_accounts
		WHERE user_id = $1 AND asset_id = $2
	`
	var b domain.BankAccount
	err := r.db.QueryRow(ctx, query, userID, assetID).Scan(&b.ID, &b.UserID, &b.AssetID, &b.Balance, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.BankAccount{UserID: userID, AssetID: assetID, Balance: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}
	return &b, nil
}

// ApplyDelta returns the balance after the update.
func (r *bankRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, userID, assetID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE bank_accounts
		SET balance = balance + $3
		WHERE user_id = $1 AND asset_id = $2
		RETURNING balance
	`
	var after decimal.Decimal
	if err := tx.QueryRow(ctx, query, userID, assetID, delta).Scan(&after); err != nil {
		return decimal.Zero, fmt.Errorf("failed to update bank balance: %w", err)
	}
	return after, nil
}

func (r *bankRepo) RecordHistory(ctx context.Context, tx pgx.Tx, bt *domain.BankTransaction) error {
	query := `
		INSERT INTO bank_transactions (user_id, asset_id, transaction_type, amount, balance_after)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, query, bt.UserID, bt.AssetID, bt.Type, bt.Amount, bt.BalanceAfter); err != nil {
		return fmt.Errorf("failed to record bank history: %w", err)
	}
	return nil
}

func (r *bankRepo) History(ctx context.Context, userID, assetID int64, limit int) ([]*domain.BankTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, user_id, asset_id, transaction_type, amount, balance_after, created_at
		FROM bank_transactions
		WHERE user_id = $1 AND asset_id = $2
		ORDER BY id DESC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, userID, assetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank history: %w", err)
	}
	defer rows.Close()

	var history []*domain.BankTransaction
	for rows.Next() {
		var bt domain.BankTransaction
		if err := rows.Scan(&bt.ID, &bt.UserID, &bt.AssetID, &bt.Type, &bt.Amount, &bt.BalanceAfter, &bt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bank history: %w", err)
		}
		history = append(history, &bt)
	}
	return history, rows.Err()
}
