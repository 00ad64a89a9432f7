package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultDecimals is the precision assigned to a currency when the
	// creator does not specify one.
	DefaultDecimals = 2

	// MaxDecimals is the highest precision a currency may be created with.
	MaxDecimals = 8
)

// InitialIssueAmount is credited to a guild treasury when a currency is
// created, in whole units regardless of the asset's precision.
var InitialIssueAmount = decimal.NewFromInt(1_000_000_000)

// Asset represents a guild-scoped currency definition.
type Asset struct {
	ID        int64     `json:"id"`
	GuildID   string    `json:"guild_id"`
	Symbol    string    `json:"symbol"` // stored upper-cased, unique per guild
	Name      string    `json:"name"`
	Decimals  int       `json:"decimals"` // 0..8
	CreatedAt time.Time `json:"created_at"`
}

// AssetCreate carries the fields needed to register a new currency.
type AssetCreate struct {
	GuildID  string
	Symbol   string
	Name     string
	Decimals int
}

// NormalizeSymbol upper-cases and trims a currency symbol the way it is
// stored and looked up.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Validate checks the creation request.
func (c *AssetCreate) Validate() error {
	if c.GuildID == "" || NormalizeSymbol(c.Symbol) == "" || c.Name == "" {
		return ErrIncompleteAsset
	}
	if c.Decimals < 0 || c.Decimals > MaxDecimals {
		return ErrBadDecimals
	}
	return nil
}

// Truncate rounds v down to the asset's precision. Rounding always goes
// toward zero so a caller can never move more than what was displayed.
func (a *Asset) Truncate(v decimal.Decimal) decimal.Decimal {
	return v.Truncate(int32(a.Decimals))
}
