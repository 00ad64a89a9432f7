package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"economy-service/internal/domain"
	"economy-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LedgerRepository is the single write path into the ledger. Every
// balance change in the system goes through Execute.
type LedgerRepository interface {
	// Execute commits a balanced transaction atomically: header,
	// postings and materialized balances all land or none do.
	Execute(ctx context.Context, req *domain.TransactionRequest) (*domain.LedgerAggregate, error)

	// ExecuteInTx is Execute inside a caller-owned transaction, for
	// operations that must commit ledger postings together with other
	// rows (asset creation, allowance history).
	ExecuteInTx(ctx context.Context, tx pgx.Tx, req *domain.TransactionRequest) (*domain.LedgerAggregate, error)

	// RefillTreasury tops up the treasury in its own committed
	// transaction when its locked balance is negative, zero, or below
	// required. At most one refill wins under concurrency; the others
	// observe the refilled balance. Returns true if a refill happened.
	RefillTreasury(ctx context.Context, treasury *domain.Account, burnAccountID, assetID int64, required *decimal.Decimal) (bool, error)

	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type ledgerRepo struct {
	db          *pgxpool.Pool
	accountRepo AccountRepository
	txnRepo     TransactionRepository
	postingRepo PostingRepository
	balanceRepo BalanceRepository
}

func NewLedgerRepo(
	db *pgxpool.Pool,
	accountRepo AccountRepository,
	txnRepo TransactionRepository,
	postingRepo PostingRepository,
	balanceRepo BalanceRepository,
) LedgerRepository {
	return &ledgerRepo{
		db:          db,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		postingRepo: postingRepo,
		balanceRepo: balanceRepo,
	}
}

func (r *ledgerRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

func (r *ledgerRepo) Execute(ctx context.Context, req *domain.TransactionRequest) (*domain.LedgerAggregate, error) {
	// Idempotency fast path, outside the transaction
	if req.IdempotencyKey != nil {
		existing, err := r.txnRepo.GetByIdempotencyKey(ctx, *req.IdempotencyKey)
		if err == nil {
			postings, perr := r.postingRepo.ListByTransaction(ctx, existing.ID)
			if perr != nil {
				return nil, perr
			}
			return &domain.LedgerAggregate{Transaction: existing, Postings: postings}, nil
		}
		if !errors.Is(err, xerrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
	}

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	agg, err := r.ExecuteInTx(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		if xerrors.IsSerializationFailure(err) {
			return nil, xerrors.ErrStorageConflict
		}
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return agg, nil
}

func (r *ledgerRepo) ExecuteInTx(ctx context.Context, tx pgx.Tx, req *domain.TransactionRequest) (*domain.LedgerAggregate, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transaction request: %w", err)
	}
	if !domain.ValidateDoubleEntry(req.Entries) {
		return nil, xerrors.ErrUnbalancedTransaction
	}

	txn, err := r.txnRepo.Create(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	// Net delta per (account, asset); one lock and one update per pair
	// even when the request carries several entries against it.
	deltas := make(map[domain.BalanceKey]decimal.Decimal)
	for _, e := range req.Entries {
		key := domain.BalanceKey{AccountID: e.AccountID, AssetID: e.AssetID}
		deltas[key] = deltas[key].Add(e.Amount)
	}

	// Lock in deterministic order to prevent deadlocks
	keys := make([]domain.BalanceKey, 0, len(deltas))
	for k := range deltas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].AccountID != keys[j].AccountID {
			return keys[i].AccountID < keys[j].AccountID
		}
		return keys[i].AssetID < keys[j].AssetID
	})

	accounts := make(map[int64]*domain.Account)
	balances := make(map[domain.BalanceKey]decimal.Decimal)
	for _, key := range keys {
		if _, ok := accounts[key.AccountID]; !ok {
			account, err := getAccountByIDTx(ctx, tx, key.AccountID)
			if err != nil {
				return nil, err
			}
			accounts[key.AccountID] = account
		}

		bal, err := r.balanceRepo.GetWithLock(ctx, tx, key.AccountID, key.AssetID)
		if err != nil {
			if xerrors.IsSerializationFailure(err) {
				return nil, xerrors.ErrStorageConflict
			}
			return nil, err
		}

		next := bal.Balance.Add(deltas[key])
		if next.IsNegative() && !accounts[key.AccountID].IsMint() {
			return nil, fmt.Errorf("account %s: %w (available: %s, required: %s)",
				accounts[key.AccountID].Name, xerrors.ErrInsufficientBalance,
				bal.Balance.String(), deltas[key].Neg().String())
		}
		balances[key] = next
	}

	var postings []*domain.Posting
	for _, e := range req.Entries {
		p, err := r.postingRepo.Create(ctx, tx, txn.ID, e.AccountID, e.AssetID, e.Amount.String())
		if err != nil {
			return nil, err
		}
		postings = append(postings, p)
	}

	for _, key := range keys {
		if err := r.balanceRepo.ApplyDelta(ctx, tx, key.AccountID, key.AssetID, deltas[key]); err != nil {
			return nil, err
		}
	}

	return &domain.LedgerAggregate{
		Transaction: txn,
		Postings:    postings,
		Balances:    balances,
	}, nil
}

// RefillTreasury runs in its own transaction so the top-up survives even
// when the operation that triggered it fails afterward.
func (r *ledgerRepo) RefillTreasury(ctx context.Context, treasury *domain.Account, burnAccountID, assetID int64, required *decimal.Decimal) (bool, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	bal, err := r.balanceRepo.GetWithLock(ctx, tx, treasury.ID, assetID)
	if err != nil {
		return false, err
	}
	// Re-check under the lock: a concurrent refill may have landed first.
	if !domain.TreasuryNeedsRefill(bal.Balance, required) {
		return false, nil
	}

	req := &domain.TransactionRequest{
		Kind: domain.KindAutoTreasuryRefill,
		Entries: []domain.EntrySpec{
			{AccountID: treasury.ID, AssetID: assetID, Amount: domain.TreasuryRefillAmount},
			{AccountID: burnAccountID, AssetID: assetID, Amount: domain.TreasuryRefillAmount.Neg()},
		},
	}

	txn, err := r.txnRepo.Create(ctx, tx, req)
	if err != nil {
		return false, err
	}
	for _, e := range req.Entries {
		if _, err := r.postingRepo.Create(ctx, tx, txn.ID, e.AccountID, e.AssetID, e.Amount.String()); err != nil {
			return false, err
		}
	}
	for _, e := range req.Entries {
		if err := r.balanceRepo.ApplyDelta(ctx, tx, e.AccountID, e.AssetID, e.Amount); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if xerrors.IsSerializationFailure(err) {
			return false, xerrors.ErrStorageConflict
		}
		return false, fmt.Errorf("failed to commit refill: %w", err)
	}
	return true, nil
}

func getAccountByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(tx.QueryRow(ctx, query, id))
}
