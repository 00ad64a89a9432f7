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

func TestAllowanceSet(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	w.seedAsset(ctx, "g1", "GOLD", 2)

	a, err := w.allowanceUC.Set(ctx, &domain.MonthlyAllowance{
		GuildID:        "g1",
		RoleID:         "r1",
		Amount:         dec("500.123"),
		CurrencySymbol: "gold",
		PaymentDay:     15,
		Enabled:        true,
	})
	require.NoError(t, err)
	assert.True(t, dec("500.12").Equal(a.Amount))
	assert.Equal(t, "GOLD", a.CurrencySymbol)

	_, err = w.allowanceUC.Set(ctx, &domain.MonthlyAllowance{
		GuildID: "g1", RoleID: "r1", Amount: dec("1"), CurrencySymbol: "GOLD", PaymentDay: 32,
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestPayMemberOncePerPeriod(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	asset, _, _ := w.seedAsset(ctx, "g1", "GOLD", 2)

	a := &domain.MonthlyAllowance{
		GuildID:        "g1",
		RoleID:         "r1",
		Amount:         dec("500"),
		CurrencySymbol: "GOLD",
		PaymentDay:     1,
		Enabled:        true,
	}
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

	agg, err := w.allowanceUC.PayMember(ctx, a, 1, now)
	require.NoError(t, err)
	assert.Equal(t, domain.KindMonthlyAllowance, agg.Transaction.Kind)

	wallet, _ := w.accountUC.EnsureUser(ctx, "g1", 1)
	assert.True(t, dec("500").Equal(w.store.balance(wallet.ID, asset.ID)))

	// Same period repeats are rejected and nothing moves.
	_, err = w.allowanceUC.PayMember(ctx, a, 1, now)
	assert.ErrorIs(t, err, xerrors.ErrDuplicateClaim)
	assert.True(t, dec("500").Equal(w.store.balance(wallet.ID, asset.ID)))

	// Next month pays again.
	_, err = w.allowanceUC.PayMember(ctx, a, 1, now.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.True(t, dec("1000").Equal(w.store.balance(wallet.ID, asset.ID)))
}

func TestPayMemberRefillsTreasury(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	asset, treasury, _ := w.seedAsset(ctx, "g1", "GOLD", 2)
	w.store.setBalance(treasury.ID, asset.ID, dec("-5"))

	a := &domain.MonthlyAllowance{
		GuildID:        "g1",
		RoleID:         "r1",
		Amount:         dec("500"),
		CurrencySymbol: "GOLD",
		PaymentDay:     1,
		Enabled:        true,
	}

	_, err := w.allowanceUC.PayMember(ctx, a, 1, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, w.store.refills)
}
