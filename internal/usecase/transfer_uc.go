package usecase

import (
	"context"
	"fmt"

	"economy-service/internal/domain"
	"economy-service/internal/xerrors"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// TransferUsecase covers the user-facing money movements: payments
// between users, issuance from the treasury, donations to it, and burns.
type TransferUsecase struct {
	assetUC   *AssetUsecase
	accountUC *AccountUsecase
	ledgerUC  *LedgerUsecase
}

func NewTransferUsecase(assetUC *AssetUsecase, accountUC *AccountUsecase, ledgerUC *LedgerUsecase) *TransferUsecase {
	return &TransferUsecase{
		assetUC:   assetUC,
		accountUC: accountUC,
		ledgerUC:  ledgerUC,
	}
}

// Pay moves funds between two users. The amount is truncated down to the
// asset's precision before posting, so the payer is never charged more
// than they asked for.
func (uc *TransferUsecase) Pay(ctx context.Context, guildID string, fromUser, toUser int64, symbol string, amount decimal.Decimal, idemKey *string) (*domain.LedgerAggregate, error) {
	if fromUser == toUser {
		return nil, fmt.Errorf("cannot pay yourself: %w", xerrors.ErrInvalidInput)
	}
	asset, err := uc.assetUC.GetBySymbol(ctx, guildID, symbol)
	if err != nil {
		return nil, err
	}
	amount = asset.Truncate(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %w", xerrors.ErrInvalidInput)
	}

	from, err := uc.accountUC.EnsureUser(ctx, guildID, fromUser)
	if err != nil {
		return nil, err
	}
	to, err := uc.accountUC.EnsureUser(ctx, guildID, toUser)
	if err != nil {
		return nil, err
	}

	req := &domain.TransactionRequest{
		Kind:           domain.KindTransfer,
		CreatedBy:      &fromUser,
		IdempotencyKey: idemKey,
		GuildID:        guildID,
		AssetSymbol:    asset.Symbol,
		Entries: []domain.EntrySpec{
			{AccountID: from.ID, AssetID: asset.ID, Amount: amount.Neg()},
			{AccountID: to.ID, AssetID: asset.ID, Amount: amount},
		},
	}
	agg, err := uc.ledgerUC.Commit(ctx, req)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"from":     fromUser,
		"to":       toUser,
		"symbol":   asset.Symbol,
		"amount":   amount.String(),
	}).Info("payment committed")
	return agg, nil
}

// Issue pays a user from the guild treasury, topping the treasury up
// first when it cannot cover the amount.
func (uc *TransferUsecase) Issue(ctx context.Context, guildID string, toUser int64, symbol string, amount decimal.Decimal, issuedBy int64, kind domain.TransactionKind, idemKey *string) (*domain.LedgerAggregate, error) {
	asset, err := uc.assetUC.GetBySymbol(ctx, guildID, symbol)
	if err != nil {
		return nil, err
	}
	amount = asset.Truncate(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %w", xerrors.ErrInvalidInput)
	}
	if kind == "" {
		kind = domain.KindIssue
	}

	treasury, err := uc.ledgerUC.EnsureTreasuryFunds(ctx, guildID, asset, amount)
	if err != nil {
		return nil, err
	}
	to, err := uc.accountUC.EnsureUser(ctx, guildID, toUser)
	if err != nil {
		return nil, err
	}

	req := &domain.TransactionRequest{
		Kind:           kind,
		CreatedBy:      &issuedBy,
		IdempotencyKey: idemKey,
		GuildID:        guildID,
		AssetSymbol:    asset.Symbol,
		Entries: []domain.EntrySpec{
			{AccountID: treasury.ID, AssetID: asset.ID, Amount: amount.Neg()},
			{AccountID: to.ID, AssetID: asset.ID, Amount: amount},
		},
	}
	return uc.ledgerUC.Commit(ctx, req)
}

// Donate moves funds from a user to the guild treasury.
func (uc *TransferUsecase) Donate(ctx context.Context, guildID string, fromUser int64, symbol string, amount decimal.Decimal) (*domain.LedgerAggregate, error) {
	asset, err := uc.assetUC.GetBySymbol(ctx, guildID, symbol)
	if err != nil {
		return nil, err
	}
	amount = asset.Truncate(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %w", xerrors.ErrInvalidInput)
	}

	from, err := uc.accountUC.EnsureUser(ctx, guildID, fromUser)
	if err != nil {
		return nil, err
	}
	treasury, err := uc.accountUC.EnsureTreasury(ctx, guildID)
	if err != nil {
		return nil, err
	}

	req := &domain.TransactionRequest{
		Kind:        domain.KindTransfer,
		CreatedBy:   &fromUser,
		GuildID:     guildID,
		AssetSymbol: asset.Symbol,
		Entries: []domain.EntrySpec{
			{AccountID: from.ID, AssetID: asset.ID, Amount: amount.Neg()},
			{AccountID: treasury.ID, AssetID: asset.ID, Amount: amount},
		},
	}
	return uc.ledgerUC.Commit(ctx, req)
}

// Burn destroys a user's funds by moving them to the burn account.
func (uc *TransferUsecase) Burn(ctx context.Context, guildID string, fromUser int64, symbol string, amount decimal.Decimal) (*domain.LedgerAggregate, error) {
	asset, err := uc.assetUC.GetBySymbol(ctx, guildID, symbol)
	if err != nil {
		return nil, err
	}
	amount = asset.Truncate(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %w", xerrors.ErrInvalidInput)
	}

	from, err := uc.accountUC.EnsureUser(ctx, guildID, fromUser)
	if err != nil {
		return nil, err
	}
	burn, err := uc.accountUC.EnsureBurn(ctx, guildID)
	if err != nil {
		return nil, err
	}

	req := &domain.TransactionRequest{
		Kind:        domain.KindBurn,
		CreatedBy:   &fromUser,
		GuildID:     guildID,
		AssetSymbol: asset.Symbol,
		Entries: []domain.EntrySpec{
			{AccountID: from.ID, AssetID: asset.ID, Amount: amount.Neg()},
			{AccountID: burn.ID, AssetID: asset.ID, Amount: amount},
		},
	}
	return uc.ledgerUC.Commit(ctx, req)
}
