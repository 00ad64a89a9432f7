package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Posting is a single signed ledger line: one amount against one account
// for one asset, under one transaction. Append-only; never updated or
// deleted except by whole-asset deletion.
type Posting struct {
	ID            int64           `json:"id"`
	TransactionID int64           `json:"transaction_id"`
	AccountID     int64           `json:"account_id"`
	AssetID       int64           `json:"asset_id"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}
