package usecase

import (
	"context"
	"fmt"

	"economy-service/internal/domain"
	"economy-service/internal/repository"
	"economy-service/internal/xerrors"

	log "github.com/sirupsen/logrus"
)

// AutoRewardUsecase pays one-time rewards for posting a trigger message
// in a configured channel.
type AutoRewardUsecase struct {
	rewardRepo repository.AutoRewardRepository
	assetUC    *AssetUsecase
	accountUC  *AccountUsecase
	ledgerUC   *LedgerUsecase
	ledgerRepo repository.LedgerRepository
}

func NewAutoRewardUsecase(
	rewardRepo repository.AutoRewardRepository,
	assetUC *AssetUsecase,
	accountUC *AccountUsecase,
	ledgerUC *LedgerUsecase,
	ledgerRepo repository.LedgerRepository,
) *AutoRewardUsecase {
	return &AutoRewardUsecase{
		rewardRepo: rewardRepo,
		assetUC:    assetUC,
		accountUC:  accountUC,
		ledgerUC:   ledgerUC,
		ledgerRepo: ledgerRepo,
	}
}

// SetConfig creates or replaces the channel's reward config.
func (uc *AutoRewardUsecase) SetConfig(ctx context.Context, guildID, channelID, trigger, symbol string, amount string) (*domain.AutoRewardConfig, error) {
	asset, err := uc.assetUC.GetBySymbol(ctx, guildID, symbol)
	if err != nil {
		return nil, err
	}
	reward, err := parsePositiveAmount(amount)
	if err != nil {
		return nil, err
	}
	return uc.rewardRepo.UpsertConfig(ctx, &domain.AutoRewardConfig{
		GuildID:        guildID,
		ChannelID:      channelID,
		TriggerMessage: trigger,
		RewardAmount:   asset.Truncate(reward),
		AssetID:        asset.ID,
		Enabled:        true,
	})
}

func (uc *AutoRewardUsecase) ListConfigs(ctx context.Context, guildID string) ([]*domain.AutoRewardConfig, error) {
	return uc.rewardRepo.ListConfigs(ctx, guildID)
}

func (uc *AutoRewardUsecase) DeleteConfig(ctx context.Context, guildID, channelID string) error {
	return uc.rewardRepo.DeleteConfig(ctx, guildID, channelID)
}

func (uc *AutoRewardUsecase) SetEnabled(ctx context.Context, guildID, channelID string, enabled bool) error {
	return uc.rewardRepo.SetEnabled(ctx, guildID, channelID, enabled)
}

// ClaimForMessage checks a message against the channel's config and pays
// the reward on first match. The claim row and the ledger postings
// commit together, so a duplicate claim rolls the whole payout back.
func (uc *AutoRewardUsecase) ClaimForMessage(ctx context.Context, guildID, channelID string, userID int64, content string) (*domain.LedgerAggregate, error) {
	cfg, err := uc.rewardRepo.GetConfigByChannel(ctx, guildID, channelID)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, xerrors.ErrRewardDisabled
	}
	if !cfg.Matches(content) {
		return nil, xerrors.ErrNotFound
	}

	// Cheap pre-check; the unique index is the real guard.
	claimed, err := uc.rewardRepo.HasClaimed(ctx, cfg.ID, userID)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, xerrors.ErrDuplicateClaim
	}

	asset, err := uc.assetUC.GetByID(ctx, cfg.AssetID)
	if err != nil {
		return nil, err
	}
	treasury, err := uc.ledgerUC.EnsureTreasuryFunds(ctx, guildID, asset, cfg.RewardAmount)
	if err != nil {
		return nil, err
	}
	wallet, err := uc.accountUC.EnsureUser(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}

	tx, err := uc.ledgerRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := uc.rewardRepo.InsertClaim(ctx, tx, cfg.ID, userID, guildID); err != nil {
		return nil, err
	}

	req := &domain.TransactionRequest{
		Kind:      domain.KindAutoReward,
		CreatedBy: &userID,
		Entries: []domain.EntrySpec{
			{AccountID: treasury.ID, AssetID: asset.ID, Amount: cfg.RewardAmount.Neg()},
			{AccountID: wallet.ID, AssetID: asset.ID, Amount: cfg.RewardAmount},
		},
	}
	agg, err := uc.ledgerRepo.ExecuteInTx(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	uc.ledgerUC.invalidateBalances(ctx, req.Entries)
	log.WithFields(log.Fields{
		"guild_id":   guildID,
		"channel_id": channelID,
		"user_id":    userID,
		"amount":     cfg.RewardAmount.String(),
	}).Info("auto reward claimed")
	return agg, nil
}
