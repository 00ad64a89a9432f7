package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "GOLD", NormalizeSymbol("  gold "))
	assert.Equal(t, "PT", NormalizeSymbol("pt"))
	assert.Equal(t, "", NormalizeSymbol("   "))
}

func TestAssetCreateValidate(t *testing.T) {
	base := AssetCreate{GuildID: "g1", Symbol: "gold", Name: "Gold", Decimals: 2}
	assert.NoError(t, base.Validate())

	noGuild := base
	noGuild.GuildID = ""
	assert.ErrorIs(t, noGuild.Validate(), ErrIncompleteAsset)

	blankSymbol := base
	blankSymbol.Symbol = "   "
	assert.ErrorIs(t, blankSymbol.Validate(), ErrIncompleteAsset)

	tooPrecise := base
	tooPrecise.Decimals = MaxDecimals + 1
	assert.ErrorIs(t, tooPrecise.Validate(), ErrBadDecimals)

	negative := base
	negative.Decimals = -1
	assert.ErrorIs(t, negative.Validate(), ErrBadDecimals)
}

func TestAssetTruncate(t *testing.T) {
	tests := []struct {
		name     string
		decimals int
		in       string
		want     string
	}{
		{"two places", 2, "10.999", "10.99"},
		{"whole units", 0, "10.999", "10"},
		{"negative toward zero", 2, "-10.999", "-10.99"},
		{"already exact", 2, "10.99", "10.99"},
		{"eight places", 8, "0.123456789", "0.12345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Asset{Decimals: tt.decimals}
			assert.True(t, d(tt.want).Equal(a.Truncate(d(tt.in))),
				"got %s", a.Truncate(d(tt.in)))
		})
	}
}
