package usecase

import (
	"context"
	"fmt"

	"economy-service/internal/domain"
	"economy-service/internal/repository"
	"economy-service/internal/xerrors"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// BankUsecase handles custodial deposits. Deposited funds move from the
// user's wallet into the treasury; the bank tables only track who has a
// claim on how much.
type BankUsecase struct {
	bankRepo   repository.BankRepository
	assetUC    *AssetUsecase
	accountUC  *AccountUsecase
	ledgerUC   *LedgerUsecase
	ledgerRepo repository.LedgerRepository
}

func NewBankUsecase(
	bankRepo repository.BankRepository,
	assetUC *AssetUsecase,
	accountUC *AccountUsecase,
	ledgerUC *LedgerUsecase,
	ledgerRepo repository.LedgerRepository,
) *BankUsecase {
	return &BankUsecase{
		bankRepo:   bankRepo,
		assetUC:    assetUC,
		accountUC:  accountUC,
		ledgerUC:   ledgerUC,
		ledgerRepo: ledgerRepo,
	}
}

// Deposit moves wallet funds into custody. Amount is truncated to the
// asset's precision; wallet debit, bank credit and history land in one
// database transaction.
func (uc *BankUsecase) Deposit(ctx context.Context, guildID string, userID int64, symbol string, amount decimal.Decimal) (decimal.Decimal, error) {
	asset, err := uc.assetUC.GetBySymbol(ctx, guildID, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	amount = asset.Truncate(amount)
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive: %w", xerrors.ErrInvalidInput)
	}

	wallet, err := uc.accountUC.EnsureUser(ctx, guildID, userID)
	if err != nil {
		return decimal.Zero, err
	}
	treasury, err := uc.accountUC.EnsureTreasury(ctx, guildID)
	if err != nil {
		return decimal.Zero, err
	}

	tx, err := uc.ledgerRepo.BeginTx(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback(ctx)

	req := &domain.TransactionRequest{
		Kind:      domain.KindBankDeposit,
		CreatedBy: &userID,
		Entries: []domain.EntrySpec{
			{AccountID: wallet.ID, AssetID: asset.ID, Amount: amount.Neg()},
			{AccountID: treasury.ID, AssetID: asset.ID, Amount: amount},
		},
	}
	if _, err := uc.ledgerRepo.ExecuteInTx(ctx, tx, req); err != nil {
		return decimal.Zero, err
	}

	if _, err := uc.bankRepo.GetAccountWithLock(ctx, tx, userID, asset.ID); err != nil {
		return decimal.Zero, err
	}
	after, err := uc.bankRepo.ApplyDelta(ctx, tx, userID, asset.ID, amount)
	if err != nil {
		return decimal.Zero, err
	}
	err = uc.bankRepo.RecordHistory(ctx, tx, &domain.BankTransaction{
		UserID:       userID,
		AssetID:      asset.ID,
		Type:         domain.BankDeposit,
		Amount:       amount,
		BalanceAfter: after,
	})
	if err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to commit deposit: %w", err)
	}

	uc.ledgerUC.invalidateBalances(ctx, req.Entries)
	log.WithFields(log.Fields{
		"guild_id": guildID,
		"user_id":  userID,
		"symbol":   asset.Symbol,
		"amount":   amount.String(),
	}).Info("bank deposit")
	return after, nil
}

// Withdraw returns custody funds to the wallet. The treasury pays out,
// refilling first if it cannot cover the amount.
func (uc *BankUsecase) Withdraw(ctx context.Context, guildID string, userID int64, symbol string, amount decimal.Decimal) (decimal.Decimal, error) {
	asset, err := uc.assetUC.GetBySymbol(ctx, guildID, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	amount = asset.Truncate(amount)
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive: %w", xerrors.ErrInvalidInput)
	}

	wallet, err := uc.accountUC.EnsureUser(ctx, guildID, userID)
	if err != nil {
		return decimal.Zero, err
	}
	treasury, err := uc.ledgerUC.EnsureTreasuryFunds(ctx, guildID, asset, amount)
	if err != nil {
		return decimal.Zero, err
	}

	tx, err := uc.ledgerRepo.BeginTx(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback(ctx)

	bank, err := uc.bankRepo.GetAccountWithLock(ctx, tx, userID, asset.ID)
	if err != nil {
		return decimal.Zero, err
	}
	if bank.Balance.LessThan(amount) {
		return decimal.Zero, fmt.Errorf("bank balance %s: %w", bank.Balance.String(), xerrors.ErrInsufficientBalance)
	}

	req := &domain.TransactionRequest{
		Kind:      domain.KindBankWithdraw,
		CreatedBy: &userID,
		Entries: []domain.EntrySpec{
			{AccountID: treasury.ID, AssetID: asset.ID, Amount: amount.Neg()},
			{AccountID: wallet.ID, AssetID: asset.ID, Amount: amount},
		},
	}
	if _, err := uc.ledgerRepo.ExecuteInTx(ctx, tx, req); err != nil {
		return decimal.Zero, err
	}

	after, err := uc.bankRepo.ApplyDelta(ctx, tx, userID, asset.ID, amount.Neg())
	if err != nil {
		return decimal.Zero, err
	}
	err = uc.bankRepo.RecordHistory(ctx, tx, &domain.BankTransaction{
		UserID:       userID,
		AssetID:      asset.ID,
		Type:         domain.BankWithdraw,
		Amount:       amount,
		BalanceAfter: after,
	})
	if err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to commit withdrawal: %w", err)
	}

	uc.ledgerUC.invalidateBalances(ctx, req.Entries)
	return after, nil
}

func (uc *BankUsecase) Balance(ctx context.Context, guildID string, userID int64, symbol string) (decimal.Decimal, error) {
	asset, err := uc.assetUC.GetBySymbol(ctx, guildID, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	bank, err := uc.bankRepo.GetAccount(ctx, userID, asset.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return bank.Balance, nil
}

func (uc *BankUsecase) History(ctx context.Context, guildID string, userID int64, symbol string, limit int) ([]*domain.BankTransaction, error) {
	asset, err := uc.assetUC.GetBySymbol(ctx, guildID, symbol)
	if err != nil {
		return nil, err
	}
	return uc.bankRepo.History(ctx, userID, asset.ID, limit)
}
