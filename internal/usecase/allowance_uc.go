package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"economy-service/internal/domain"
	"economy-service/internal/repository"
	"economy-service/internal/xerrors"

	log "github.com/sirupsen/logrus"
)

// AllowanceUsecase pays monthly stipends to role holders. Idempotency is
// double-guarded: a deterministic transaction key plus the unique
// history row, both checked inside the payment transaction.
type AllowanceUsecase struct {
	allowanceRepo repository.AllowanceRepository
	assetUC       *AssetUsecase
	accountUC     *AccountUsecase
	ledgerUC      *LedgerUsecase
	ledgerRepo    repository.LedgerRepository
}

func NewAllowanceUsecase(
	allowanceRepo repository.AllowanceRepository,
	assetUC *AssetUsecase,
	accountUC *AccountUsecase,
	ledgerUC *LedgerUsecase,
	ledgerRepo repository.LedgerRepository,
) *AllowanceUsecase {
	return &AllowanceUsecase{
		allowanceRepo: allowanceRepo,
		assetUC:       assetUC,
		accountUC:     accountUC,
		ledgerUC:      ledgerUC,
		ledgerRepo:    ledgerRepo,
	}
}

func (uc *AllowanceUsecase) Set(ctx context.Context, a *domain.MonthlyAllowance) (*domain.MonthlyAllowance, error) {
	if a.PaymentDay < 1 || a.PaymentDay > 31 {
		return nil, fmt.Errorf("payment day must be 1-31: %w", xerrors.ErrInvalidInput)
	}
	asset, err := uc.assetUC.GetBySymbol(ctx, a.GuildID, a.CurrencySymbol)
	if err != nil {
		return nil, err
	}
	a.Amount = asset.Truncate(a.Amount)
	if !a.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %w", xerrors.ErrInvalidInput)
	}
	a.CurrencySymbol = asset.Symbol
	return uc.allowanceRepo.Upsert(ctx, a)
}

func (uc *AllowanceUsecase) ListByGuild(ctx context.Context, guildID string) ([]*domain.MonthlyAllowance, error) {
	return uc.allowanceRepo.ListByGuild(ctx, guildID)
}

func (uc *AllowanceUsecase) ListEnabled(ctx context.Context) ([]*domain.MonthlyAllowance, error) {
	return uc.allowanceRepo.ListEnabled(ctx)
}

func (uc *AllowanceUsecase) Delete(ctx context.Context, guildID, roleID string) error {
	return uc.allowanceRepo.Delete(ctx, guildID, roleID)
}

// PayMember pays one member their allowance for the given time's period.
// Safe to call any number of times per period; repeats return
// ErrDuplicateClaim.
func (uc *AllowanceUsecase) PayMember(ctx context.Context, a *domain.MonthlyAllowance, userID int64, now time.Time) (*domain.LedgerAggregate, error) {
	yearMonth := domain.PeriodOf(now)

	asset, err := uc.assetUC.GetBySymbol(ctx, a.GuildID, a.CurrencySymbol)
	if err != nil {
		return nil, err
	}

	paid, err := uc.allowanceRepo.HasPaid(ctx, a.GuildID, a.RoleID, userID, asset.ID, yearMonth)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, xerrors.ErrDuplicateClaim
	}

	treasury, err := uc.ledgerUC.EnsureTreasuryFunds(ctx, a.GuildID, asset, a.Amount)
	if err != nil {
		return nil, err
	}
	wallet, err := uc.accountUC.EnsureUser(ctx, a.GuildID, userID)
	if err != nil {
		return nil, err
	}

	tx, err := uc.ledgerRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := uc.allowanceRepo.InsertHistory(ctx, tx, &domain.AllowanceHistory{
		GuildID:   a.GuildID,
		RoleID:    a.RoleID,
		UserID:    userID,
		AssetID:   asset.ID,
		Amount:    a.Amount,
		YearMonth: yearMonth,
	}); err != nil {
		return nil, err
	}

	idemKey := domain.AllowanceIdempotencyKey(a.GuildID, a.RoleID, userID, yearMonth)
	req := &domain.TransactionRequest{
		Kind:           domain.KindMonthlyAllowance,
		IdempotencyKey: &idemKey,
		Entries: []domain.EntrySpec{
			{AccountID: treasury.ID, AssetID: asset.ID, Amount: a.Amount.Neg()},
			{AccountID: wallet.ID, AssetID: asset.ID, Amount: a.Amount},
		},
	}
	agg, err := uc.ledgerRepo.ExecuteInTx(ctx, tx, req)
	if err != nil {
		if errors.Is(err, xerrors.ErrDuplicateIdempotencyKey) {
			return nil, xerrors.ErrDuplicateClaim
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit allowance: %w", err)
	}

	uc.ledgerUC.invalidateBalances(ctx, req.Entries)
	log.WithFields(log.Fields{
		"guild_id": a.GuildID,
		"role_id":  a.RoleID,
		"user_id":  userID,
		"period":   yearMonth,
		"amount":   a.Amount.String(),
	}).Info("allowance paid")
	return agg, nil
}
