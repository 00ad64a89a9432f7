package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankAccount is the per-user claim on funds held in custody by the guild
// treasury. It is auxiliary bookkeeping, not part of the double-entry core.
type BankAccount struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	AssetID   int64           `json:"asset_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// BankTransactionType distinguishes deposits from withdrawals in the
// bank history.
type BankTransactionType string

const (
	BankDeposit  BankTransactionType = "deposit"
	BankWithdraw BankTransactionType = "withdraw"
)

// BankTransaction is one row of bank history for display purposes.
type BankTransaction struct {
	ID           int64               `json:"id"`
	UserID       int64               `json:"user_id"`
	AssetID      int64               `json:"asset_id"`
	Type         BankTransactionType `json:"transaction_type"`
	Amount       decimal.Decimal     `json:"amount"`
	BalanceAfter decimal.Decimal     `json:"balance_after"`
	CreatedAt    time.Time           `json:"created_at"`
}
