package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"economy-service/internal/domain"
	"economy-service/internal/repository"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type AssetUsecase struct {
	assetRepo   repository.AssetRepository
	accountUC   *AccountUsecase
	ledgerRepo  repository.LedgerRepository
	redisClient *redis.Client
}

func NewAssetUsecase(
	assetRepo repository.AssetRepository,
	accountUC *AccountUsecase,
	ledgerRepo repository.LedgerRepository,
	redisClient *redis.Client,
) *AssetUsecase {
	return &AssetUsecase{
		assetRepo:   assetRepo,
		accountUC:   accountUC,
		ledgerRepo:  ledgerRepo,
		redisClient: redisClient,
	}
}

// CreateAsset registers a currency and funds the guild treasury with the
// initial issue in the same database transaction, so an asset never
// exists without its opening supply.
func (uc *AssetUsecase) CreateAsset(ctx context.Context, ac *domain.AssetCreate) (*domain.Asset, error) {
	if err := ac.Validate(); err != nil {
		return nil, err
	}

	treasury, err := uc.accountUC.EnsureTreasury(ctx, ac.GuildID)
	if err != nil {
		return nil, err
	}
	burn, err := uc.accountUC.EnsureBurn(ctx, ac.GuildID)
	if err != nil {
		return nil, err
	}

	tx, err := uc.ledgerRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	asset, err := uc.assetRepo.Create(ctx, tx, ac)
	if err != nil {
		return nil, err
	}

	issue := &domain.TransactionRequest{
		Kind: domain.KindInitialIssue,
		Entries: []domain.EntrySpec{
			{AccountID: treasury.ID, AssetID: asset.ID, Amount: domain.InitialIssueAmount},
			{AccountID: burn.ID, AssetID: asset.ID, Amount: domain.InitialIssueAmount.Neg()},
		},
	}
	if _, err := uc.ledgerRepo.ExecuteInTx(ctx, tx, issue); err != nil {
		return nil, fmt.Errorf("failed to fund treasury: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit asset creation: %w", err)
	}

	log.WithFields(log.Fields{
		"guild_id": asset.GuildID,
		"symbol":   asset.Symbol,
		"decimals": asset.Decimals,
	}).Info("asset created")

	return asset, nil
}

// GetBySymbol resolves an asset with a short-lived cache in front.
func (uc *AssetUsecase) GetBySymbol(ctx context.Context, guildID, symbol string) (*domain.Asset, error) {
	cacheKey := fmt.Sprintf("asset:%s:%s", guildID, domain.NormalizeSymbol(symbol))

	if uc.redisClient != nil {
		if val, err := uc.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var asset domain.Asset
			if jsonErr := json.Unmarshal([]byte(val), &asset); jsonErr == nil {
				return &asset, nil
			}
		}
	}

	asset, err := uc.assetRepo.GetBySymbol(ctx, guildID, symbol)
	if err != nil {
		return nil, err
	}

	if uc.redisClient != nil {
		if data, err := json.Marshal(asset); err == nil {
			_ = uc.redisClient.Set(ctx, cacheKey, data, 10*time.Minute).Err()
		}
	}
	return asset, nil
}

func (uc *AssetUsecase) GetByID(ctx context.Context, id int64) (*domain.Asset, error) {
	return uc.assetRepo.GetByID(ctx, id)
}

func (uc *AssetUsecase) ListByGuild(ctx context.Context, guildID string) ([]*domain.Asset, error) {
	return uc.assetRepo.ListByGuild(ctx, guildID)
}

// DeleteAsset removes the asset together with all postings, balances and
// subledger rows that reference it.
func (uc *AssetUsecase) DeleteAsset(ctx context.Context, guildID, symbol string) error {
	asset, err := uc.assetRepo.GetBySymbol(ctx, guildID, symbol)
	if err != nil {
		return err
	}

	tx, err := uc.ledgerRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.assetRepo.Delete(ctx, tx, asset.ID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit asset deletion: %w", err)
	}

	if uc.redisClient != nil {
		cacheKey := fmt.Sprintf("asset:%s:%s", guildID, domain.NormalizeSymbol(symbol))
		_ = uc.redisClient.Del(ctx, cacheKey).Err()
	}

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"symbol":   asset.Symbol,
	}).Warn("asset deleted with all history")

	return nil
}
