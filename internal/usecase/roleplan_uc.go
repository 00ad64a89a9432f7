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

// RolePlanUsecase sells timed roles. A purchase debits the buyer into
// the treasury and records the grant with its expiry; the sweep service
// removes grants past their cutoff.
type RolePlanUsecase struct {
	planRepo   repository.RolePlanRepository
	assetUC    *AssetUsecase
	accountUC  *AccountUsecase
	ledgerUC   *LedgerUsecase
	ledgerRepo repository.LedgerRepository
}

func NewRolePlanUsecase(
	planRepo repository.RolePlanRepository,
	assetUC *AssetUsecase,
	accountUC *AccountUsecase,
	ledgerUC *LedgerUsecase,
	ledgerRepo repository.LedgerRepository,
) *RolePlanUsecase {
	return &RolePlanUsecase{
		planRepo:   planRepo,
		assetUC:    assetUC,
		accountUC:  accountUC,
		ledgerUC:   ledgerUC,
		ledgerRepo: ledgerRepo,
	}
}

func (uc *RolePlanUsecase) CreatePanel(ctx context.Context, guildID, panelName string) (*domain.RolePanel, error) {
	return uc.planRepo.CreatePanel(ctx, guildID, panelName)
}

func (uc *RolePlanUsecase) ListPanels(ctx context.Context, guildID string) ([]*domain.RolePanel, error) {
	return uc.planRepo.ListPanels(ctx, guildID)
}

func (uc *RolePlanUsecase) DeletePanel(ctx context.Context, guildID, panelName string) error {
	return uc.planRepo.DeletePanel(ctx, guildID, panelName)
}

func (uc *RolePlanUsecase) CreatePlan(ctx context.Context, plan *domain.RolePlan) (*domain.RolePlan, error) {
	if plan.DurationHours <= 0 {
		return nil, fmt.Errorf("duration must be positive: %w", xerrors.ErrInvalidInput)
	}
	asset, err := uc.assetUC.GetBySymbol(ctx, plan.GuildID, plan.CurrencySymbol)
	if err != nil {
		return nil, err
	}
	plan.Price = asset.Truncate(plan.Price)
	if !plan.Price.IsPositive() {
		return nil, fmt.Errorf("price must be positive: %w", xerrors.ErrInvalidInput)
	}
	plan.CurrencySymbol = asset.Symbol
	return uc.planRepo.CreatePlan(ctx, plan)
}

func (uc *RolePlanUsecase) ListPlans(ctx context.Context, panelID int64) ([]*domain.RolePlan, error) {
	return uc.planRepo.ListPlans(ctx, panelID)
}

func (uc *RolePlanUsecase) DeletePlan(ctx context.Context, id int64) error {
	return uc.planRepo.DeletePlan(ctx, id)
}

// Purchase charges the plan price and records the timed grant in the
// same database transaction.
func (uc *RolePlanUsecase) Purchase(ctx context.Context, guildID string, userID, planID int64) (*domain.RolePurchase, error) {
	plan, err := uc.planRepo.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.GuildID != guildID {
		return nil, xerrors.ErrPlanNotFound
	}

	if existing, err := uc.planRepo.ActivePurchase(ctx, guildID, userID, planID); err == nil && existing != nil {
		return nil, fmt.Errorf("plan already active until %s: %w", existing.ExpiresAt.Format(time.RFC3339), xerrors.ErrDuplicateClaim)
	} else if err != nil && !errors.Is(err, xerrors.ErrNotFound) {
		return nil, err
	}

	asset, err := uc.assetUC.GetBySymbol(ctx, guildID, plan.CurrencySymbol)
	if err != nil {
		return nil, err
	}
	wallet, err := uc.accountUC.EnsureUser(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	treasury, err := uc.accountUC.EnsureTreasury(ctx, guildID)
	if err != nil {
		return nil, err
	}

	tx, err := uc.ledgerRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	req := &domain.TransactionRequest{
		Kind:      domain.KindRolePurchase,
		CreatedBy: &userID,
		Entries: []domain.EntrySpec{
			{AccountID: wallet.ID, AssetID: asset.ID, Amount: plan.Price.Neg()},
			{AccountID: treasury.ID, AssetID: asset.ID, Amount: plan.Price},
		},
	}
	if _, err := uc.ledgerRepo.ExecuteInTx(ctx, tx, req); err != nil {
		return nil, err
	}

	purchase, err := uc.planRepo.InsertPurchase(ctx, tx, &domain.RolePurchase{
		UserID:    userID,
		PlanID:    plan.ID,
		GuildID:   guildID,
		RoleID:    plan.RoleID,
		ExpiresAt: time.Now().Add(time.Duration(plan.DurationHours) * time.Hour),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase: %w", err)
	}

	uc.ledgerUC.invalidateBalances(ctx, req.Entries)
	log.WithFields(log.Fields{
		"guild_id": guildID,
		"user_id":  userID,
		"plan":     plan.PlanName,
		"price":    plan.Price.String(),
	}).Info("role purchased")
	return purchase, nil
}

// ExpiredPurchases lists grants due for removal.
func (uc *RolePlanUsecase) ExpiredPurchases(ctx context.Context, now time.Time, limit int) ([]*domain.RolePurchase, error) {
	return uc.planRepo.ExpiredPurchases(ctx, now, limit)
}

// RemovePurchase deletes one expired grant. Each removal is its own
// short transaction so one failure cannot wedge the sweep.
func (uc *RolePlanUsecase) RemovePurchase(ctx context.Context, id int64) error {
	return uc.planRepo.DeletePurchase(ctx, id)
}
