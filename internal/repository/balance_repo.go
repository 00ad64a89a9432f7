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

type BalanceRepository interface {
	// Get returns the materialized balance, zero if no row exists yet.
	Get(ctx context.Context, accountID, assetID int64) (*domain.Balance, error)
	// GetWithLock locks the balance row for the rest of the transaction.
	// The row is created first if missing so there is always something
	// to lock.
	GetWithLock(ctx context.Context, tx pgx.Tx, accountID, assetID int64) (*domain.Balance, error)

	// ApplyDelta adds delta to the locked balance and bumps its version.
	ApplyDelta(ctx context.Context, tx pgx.Tx, accountID, assetID int64, delta decimal.Decimal) error

	// Rebuild recomputes the materialized balance from postings. The
	// postings table is the source of truth; balances are derived.
	Rebuild(ctx context.Context, accountID, assetID int64) (*domain.Balance, error)
}

type balanceRepo struct {
	db *pgxpool.Pool
}

func NewBalanceRepo(db *pgxpool.Pool) BalanceRepository {
	return &balanceRepo{db: db}
}

func (r *balanceRepo) Get(ctx context.Context, accountID, assetID int64) (*domain.Balance, error) {
	query := `
		SELECT account_id, asset_id, balance, version, updated_at
		FROM balances
		WHERE account_id = $1 AND asset_id = $2
	`

	var b domain.Balance
	err := r.db.QueryRow(ctx, query, accountID, assetID).Scan(
		&b.AccountID, &b.AssetID, &b.Balance, &b.Version, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.Balance{
				AccountID: accountID,
				AssetID:   assetID,
				Balance:   decimal.Zero,
			}, nil
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return &b, nil
}

func (r *balanceRepo) GetWithLock(ctx context.Context, tx pgx.Tx, accountID, assetID int64) (*domain.Balance, error) {
	seed := `
		INSERT INTO balances (account_id, asset_id, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (account_id, asset_id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, seed, accountID, assetID); err != nil {
		return nil, fmt.Errorf("failed to seed balance row: %w", err)
	}

	query := `
		SELECT account_id, asset_id, balance, version, updated_at
		FROM balances
		WHERE account_id = $1 AND asset_id = $2
		FOR UPDATE
	`

	var b domain.Balance
	err := tx.QueryRow(ctx, query, accountID, assetID).Scan(
		&b.AccountID, &b.AssetID, &b.Balance, &b.Version, &b.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock balance: %w", err)
	}
	return &b, nil
}

func (r *balanceRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, accountID, assetID int64, delta decimal.Decimal) error {
	query := `
		UPDATE balances
		SET balance = balance + $3,
		    version = version + 1,
		    updated_at = now()
		WHERE account_id = $1 AND asset_id = $2
	`

	tag, err := tx.Exec(ctx, query, accountID, assetID, delta)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("balance row missing for account %d asset %d", accountID, assetID)
	}
	return nil
}

func (r *balanceRepo) Rebuild(ctx context.Context, accountID, assetID int64) (*domain.Balance, error) {
	query := `
		INSERT INTO balances (account_id, asset_id, balance, version, updated_at)
		SELECT $1, $2, COALESCE(SUM(amount), 0), 0, now()
		FROM postings
		WHERE account_id = $1 AND asset_id = $2
		ON CONFLICT (account_id, asset_id) DO UPDATE
		SET balance = EXCLUDED.balance,
		    version = balances.version + 1,
		    updated_at = now()
		RETURNING account_id, asset_id, balance, version, updated_at
	`

	var b domain.Balance
	err := r.db.QueryRow(ctx, query, accountID, assetID).Scan(
		&b.AccountID, &b.AssetID, &b.Balance, &b.Version, &b.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild balance: %w", err)
	}
	return &b, nil
}
