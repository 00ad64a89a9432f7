package usecase

import (
	"context"
	"testing"

	"economy-service/internal/domain"
	"economy-service/internal/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAssetFundsTreasury(t *testing.T) {
	ctx := context.Background()
	w := newWorld()

	asset, err := w.assetUC.CreateAsset(ctx, &domain.AssetCreate{
		GuildID:  "g1",
		Symbol:   "gold",
		Name:     "Gold",
		Decimals: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "GOLD", asset.Symbol)

	treasury, _ := w.accountUC.EnsureTreasury(ctx, "g1")
	burn, _ := w.accountUC.EnsureBurn(ctx, "g1")
	assert.True(t, domain.InitialIssueAmount.Equal(w.store.balance(treasury.ID, asset.ID)))
	assert.True(t, domain.InitialIssueAmount.Neg().Equal(w.store.balance(burn.ID, asset.ID)))

	// The opening supply is recorded as a regular transaction.
	txns, err := w.ledgerUC.txnRepo.ListByKind(ctx, domain.KindInitialIssue, 10)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestCreateAssetDuplicateSymbol(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	w.seedAsset(ctx, "g1", "GOLD", 2)

	_, err := w.assetUC.CreateAsset(ctx, &domain.AssetCreate{
		GuildID: "g1", Symbol: " gold ", Name: "Gold Again", Decimals: 2,
	})
	assert.ErrorIs(t, err, xerrors.ErrDuplicateAsset)

	// Same symbol in another guild is fine.
	_, err = w.assetUC.CreateAsset(ctx, &domain.AssetCreate{
		GuildID: "g2", Symbol: "GOLD", Name: "Gold", Decimals: 2,
	})
	assert.NoError(t, err)
}

func TestCreateAssetValidation(t *testing.T) {
	ctx := context.Background()
	w := newWorld()

	_, err := w.assetUC.CreateAsset(ctx, &domain.AssetCreate{GuildID: "g1", Symbol: "", Name: "x"})
	assert.Error(t, err)

	_, err = w.assetUC.CreateAsset(ctx, &domain.AssetCreate{
		GuildID: "g1", Symbol: "PT", Name: "Points", Decimals: 9,
	})
	assert.Error(t, err)
}

func TestGetBySymbolNormalizes(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	seeded, _, _ := w.seedAsset(ctx, "g1", "GOLD", 2)

	asset, err := w.assetUC.GetBySymbol(ctx, "g1", "  gold ")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, asset.ID)
}

func TestDeleteAsset(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	w.seedAsset(ctx, "g1", "GOLD", 2)

	require.NoError(t, w.assetUC.DeleteAsset(ctx, "g1", "GOLD"))

	_, err := w.assetUC.GetBySymbol(ctx, "g1", "GOLD")
	assert.ErrorIs(t, err, xerrors.ErrAssetNotFound)

	assert.ErrorIs(t, w.assetUC.DeleteAsset(ctx, "g1", "GOLD"), xerrors.ErrAssetNotFound)
}
