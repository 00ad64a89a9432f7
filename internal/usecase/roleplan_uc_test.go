package usecase

import (
	"context"
	"testing"
	"time"

	"economy-service/internal/domain"
	"economy-service/internal/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPlan(t *testing.T, w *world, guildID string, price string, durationHours int) *domain.RolePlan {
	t.Helper()
	ctx := context.Background()

	panel, err := w.rolePlanUC.CreatePanel(ctx, guildID, "vip")
	require.NoError(t, err)

	plan, err := w.rolePlanUC.CreatePlan(ctx, &domain.RolePlan{
		PanelID:        panel.ID,
		GuildID:        guildID,
		PlanName:       "gold-vip",
		RoleID:         "role-1",
		Price:          dec(price),
		CurrencySymbol: "GOLD",
		DurationHours:  durationHours,
	})
	require.NoError(t, err)
	return plan
}

func TestCreatePlanValidation(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	w.seedAsset(ctx, "g1", "GOLD", 2)

	_, err := w.rolePlanUC.CreatePlan(ctx, &domain.RolePlan{
		GuildID: "g1", CurrencySymbol: "GOLD", Price: dec("10"), DurationHours: 0,
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = w.rolePlanUC.CreatePlan(ctx, &domain.RolePlan{
		GuildID: "g1", CurrencySymbol: "GOLD", Price: dec("0"), DurationHours: 24,
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestPurchaseChargesAndRecordsExpiry(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	asset, treasury, _ := w.seedAsset(ctx, "g1", "GOLD", 2)
	wallet := w.fundUser(ctx, "g1", 1, asset.ID, dec("100"))
	plan := seedPlan(t, w, "g1", "60", 24)

	before := time.Now()
	purchase, err := w.rolePlanUC.Purchase(ctx, "g1", 1, plan.ID)
	require.NoError(t, err)

	assert.True(t, dec("40").Equal(w.store.balance(wallet.ID, asset.ID)))
	assert.True(t, domain.InitialIssueAmount.Add(dec("60")).Equal(w.store.balance(treasury.ID, asset.ID)))
	assert.Equal(t, "role-1", purchase.RoleID)
	assert.WithinDuration(t, before.Add(24*time.Hour), purchase.ExpiresAt, time.Minute)
}

func TestPurchaseRejectsActiveDuplicate(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	asset, _, _ := w.seedAsset(ctx, "g1", "GOLD", 2)
	w.fundUser(ctx, "g1", 1, asset.ID, dec("200"))
	plan := seedPlan(t, w, "g1", "60", 24)

	_, err := w.rolePlanUC.Purchase(ctx, "g1", 1, plan.ID)
	require.NoError(t, err)

	_, err = w.rolePlanUC.Purchase(ctx, "g1", 1, plan.ID)
	assert.ErrorIs(t, err, xerrors.ErrDuplicateClaim)
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	asset, _, _ := w.seedAsset(ctx, "g1", "GOLD", 2)
	w.fundUser(ctx, "g1", 1, asset.ID, dec("10"))
	plan := seedPlan(t, w, "g1", "60", 24)

	_, err := w.rolePlanUC.Purchase(ctx, "g1", 1, plan.ID)
	assert.ErrorIs(t, err, xerrors.ErrInsufficientBalance)
	assert.Empty(t, w.store.purchases)
}

func TestPurchaseWrongGuild(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	w.seedAsset(ctx, "g1", "GOLD", 2)
	plan := seedPlan(t, w, "g1", "60", 24)

	_, err := w.rolePlanUC.Purchase(ctx, "g2", 1, plan.ID)
	assert.ErrorIs(t, err, xerrors.ErrPlanNotFound)
}

func TestExpiredPurchases(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	asset, _, _ := w.seedAsset(ctx, "g1", "GOLD", 2)
	w.fundUser(ctx, "g1", 1, asset.ID, dec("100"))
	plan := seedPlan(t, w, "g1", "60", 1)

	purchase, err := w.rolePlanUC.Purchase(ctx, "g1", 1, plan.ID)
	require.NoError(t, err)

	expired, err := w.rolePlanUC.ExpiredPurchases(ctx, time.Now(), 100)
	require.NoError(t, err)
	assert.Empty(t, expired)

	expired, err = w.rolePlanUC.ExpiredPurchases(ctx, time.Now().Add(2*time.Hour), 100)
	require.NoError(t, err)
	require.Len(t, expired, 1)

	require.NoError(t, w.rolePlanUC.RemovePurchase(ctx, purchase.ID))
	assert.Empty(t, w.store.purchases)

	// The user can buy the plan again once the grant is gone.
	_, err = w.rolePlanUC.Purchase(ctx, "g1", 1, plan.ID)
	assert.NoError(t, err)
}
