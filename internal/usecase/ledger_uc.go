package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"economy-service/internal/domain"
	"economy-service/internal/repository"
	"economy-service/internal/xerrors"
	"economy-service/pkg/utils"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// maxCommitRetries bounds retry on storage conflicts (serialization
// failures, deadlock victims). Each attempt re-runs the whole commit.
const maxCommitRetries = 3

// EventPublisher is the notification surface the usecases emit to after
// a successful write. *publisher.TransactionEventPublisher satisfies it;
// publishes are best-effort and never fail the operation.
type EventPublisher interface {
	PublishCommitted(ctx context.Context, guildID, assetSymbol string, txn *domain.Transaction, amount string) error
	PublishTreasuryRefilled(ctx context.Context, guildID, assetSymbol string, amount string) error
	PublishBetSettled(ctx context.Context, event *domain.BettingEvent) error
}

type LedgerUsecase struct {
	ledgerRepo  repository.LedgerRepository
	balanceRepo repository.BalanceRepository
	postingRepo repository.PostingRepository
	txnRepo     repository.TransactionRepository
	accountUC   *AccountUsecase
	redisClient *redis.Client
	pub         EventPublisher
	refGen      *utils.ReferenceGenerator
}

func NewLedgerUsecase(
	ledgerRepo repository.LedgerRepository,
	balanceRepo repository.BalanceRepository,
	postingRepo repository.PostingRepository,
	txnRepo repository.TransactionRepository,
	accountUC *AccountUsecase,
	redisClient *redis.Client,
	pub EventPublisher,
) *LedgerUsecase {
	return &LedgerUsecase{
		ledgerRepo:  ledgerRepo,
		balanceRepo: balanceRepo,
		postingRepo: postingRepo,
		txnRepo:     txnRepo,
		accountUC:   accountUC,
		redisClient: redisClient,
		pub:         pub,
		refGen:      utils.NewReferenceGenerator(),
	}
}

// Commit writes a balanced transaction to the ledger, retrying bounded
// times when the storage layer reports a conflict.
func (uc *LedgerUsecase) Commit(ctx context.Context, req *domain.TransactionRequest) (*domain.LedgerAggregate, error) {
	if req.Reference == nil {
		ref := uc.refGen.GenerateReference("TXN")
		req.Reference = &ref
	}

	var agg *domain.LedgerAggregate
	var err error

	for attempt := 1; attempt <= maxCommitRetries; attempt++ {
		agg, err = uc.ledgerRepo.Execute(ctx, req)
		if err == nil {
			break
		}
		if !errors.Is(err, xerrors.ErrStorageConflict) {
			return nil, err
		}
		log.WithFields(log.Fields{
			"kind":    req.Kind,
			"attempt": attempt,
		}).Warn("storage conflict, retrying commit")
	}
	if err != nil {
		return nil, err
	}

	uc.invalidateBalances(ctx, req.Entries)
	if uc.pub != nil {
		_ = uc.pub.PublishCommitted(ctx, req.GuildID, req.AssetSymbol, agg.Transaction, domain.GrossAmount(req.Entries).String())
	}
	return agg, nil
}

// BalanceOf reads the materialized balance through a short-lived cache.
func (uc *LedgerUsecase) BalanceOf(ctx context.Context, accountID, assetID int64) (decimal.Decimal, error) {
	cacheKey := balanceCacheKey(accountID, assetID)

	if uc.redisClient != nil {
		if val, err := uc.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			if dec, derr := decimal.NewFromString(val); derr == nil {
				return dec, nil
			}
		}
	}

	bal, err := uc.balanceRepo.Get(ctx, accountID, assetID)
	if err != nil {
		return decimal.Zero, err
	}

	if uc.redisClient != nil {
		_ = uc.redisClient.Set(ctx, cacheKey, bal.Balance.String(), 15*time.Second).Err()
	}
	return bal.Balance, nil
}

// History returns recent postings for an account and asset, newest first.
func (uc *LedgerUsecase) History(ctx context.Context, accountID, assetID int64, limit int) ([]*domain.Posting, error) {
	return uc.postingRepo.ListByAccountAsset(ctx, accountID, assetID, limit)
}

func (uc *LedgerUsecase) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, []*domain.Posting, error) {
	txn, err := uc.txnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	postings, err := uc.postingRepo.ListByTransaction(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return txn, postings, nil
}

// RebuildBalance recomputes a materialized balance from the postings
// table, the source of truth.
func (uc *LedgerUsecase) RebuildBalance(ctx context.Context, accountID, assetID int64) (*domain.Balance, error) {
	bal, err := uc.balanceRepo.Rebuild(ctx, accountID, assetID)
	if err != nil {
		return nil, err
	}
	if uc.redisClient != nil {
		_ = uc.redisClient.Del(ctx, balanceCacheKey(accountID, assetID)).Err()
	}
	return bal, nil
}

// EnsureTreasuryFunds tops up the guild treasury before an outgoing
// payment when its balance is depleted or below the required amount. The
// refill commits on its own, so it stands even if the payment that
// prompted it later fails.
func (uc *LedgerUsecase) EnsureTreasuryFunds(ctx context.Context, guildID string, asset *domain.Asset, required decimal.Decimal) (*domain.Account, error) {
	treasury, err := uc.accountUC.EnsureTreasury(ctx, guildID)
	if err != nil {
		return nil, err
	}

	bal, err := uc.balanceRepo.Get(ctx, treasury.ID, asset.ID)
	if err != nil {
		return nil, err
	}
	if !domain.TreasuryNeedsRefill(bal.Balance, &required) {
		return treasury, nil
	}

	burn, err := uc.accountUC.EnsureBurn(ctx, guildID)
	if err != nil {
		return nil, err
	}

	refilled, err := uc.ledgerRepo.RefillTreasury(ctx, treasury, burn.ID, asset.ID, &required)
	if err != nil {
		return nil, fmt.Errorf("treasury refill failed: %w", err)
	}
	if refilled {
		uc.invalidateBalance(ctx, treasury.ID, asset.ID)
		log.WithFields(log.Fields{
			"guild_id": guildID,
			"symbol":   asset.Symbol,
			"amount":   domain.TreasuryRefillAmount.String(),
		}).Info("treasury refilled")

		if uc.pub != nil {
			_ = uc.pub.PublishTreasuryRefilled(ctx, guildID, asset.Symbol, domain.TreasuryRefillAmount.String())
		}
	}
	return treasury, nil
}

func (uc *LedgerUsecase) invalidateBalances(ctx context.Context, entries []domain.EntrySpec) {
	if uc.redisClient == nil {
		return
	}
	for _, e := range entries {
		uc.invalidateBalance(ctx, e.AccountID, e.AssetID)
	}
}

func (uc *LedgerUsecase) invalidateBalance(ctx context.Context, accountID, assetID int64) {
	if uc.redisClient == nil {
		return
	}
	_ = uc.redisClient.Del(ctx, balanceCacheKey(accountID, assetID)).Err()
}

func balanceCacheKey(accountID, assetID int64) string {
	return fmt.Sprintf("balance:%d:%d", accountID, assetID)
}
