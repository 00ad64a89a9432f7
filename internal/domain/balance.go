package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the materialized balance of one (account, asset) pair. It is
// derived state: the postings are the source of truth and the row can
// always be rebuilt by replaying them.
type Balance struct {
	AccountID int64           `json:"account_id"`
	AssetID   int64           `json:"asset_id"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TreasuryRefillAmount is the fixed quantum credited to a treasury when it
// runs dry, in whole units regardless of the asset's precision.
var TreasuryRefillAmount = decimal.NewFromInt(1_000_000_000)

// TreasuryNeedsRefill decides whether the treasury must be topped up
// before a debit. Refill when the balance is exhausted, or when a known
// required amount exceeds what is left.
func TreasuryNeedsRefill(current decimal.Decimal, required *decimal.Decimal) bool {
	if required != nil && current.LessThan(*required) {
		return true
	}
	return current.LessThanOrEqual(decimal.Zero)
}
