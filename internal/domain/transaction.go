package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies an economic event. Kinds are reporting
// metadata only and carry no ledger semantics.
type TransactionKind string

const (
	KindTransfer           TransactionKind = "transfer"
	KindIssue              TransactionKind = "issue"
	KindInitialIssue       TransactionKind = "initial_issue"
	KindBurn               TransactionKind = "burn"
	KindAutoReward         TransactionKind = "autoreward"
	KindBankDeposit        TransactionKind = "bank_deposit"
	KindBankWithdraw       TransactionKind = "bank_withdraw"
	KindRolePurchase       TransactionKind = "role_purchase"
	KindMonthlyAllowance   TransactionKind = "monthly_allowance"
	KindVCEarning          TransactionKind = "vc_earning"
	KindBetStake           TransactionKind = "bet_stake"
	KindBetPayout          TransactionKind = "bet_payout"
	KindBetRefund          TransactionKind = "bet_refund"
	KindAutoTreasuryRefill TransactionKind = "auto_treasury_refill"
)

// Transaction is the header grouping a balanced set of postings.
// Immutable once created.
type Transaction struct {
	ID             int64           `json:"id"`
	Kind           TransactionKind `json:"kind"`
	Reference      *string         `json:"reference,omitempty"`
	CreatedBy      *int64          `json:"created_by,omitempty"`
	IdempotencyKey *string         `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// EntrySpec is one signed posting to be written under a transaction.
// The amount must already be quantized to the asset's precision; the
// ledger core does not re-round.
type EntrySpec struct {
	AccountID int64
	AssetID   int64
	Amount    decimal.Decimal
}

// TransactionRequest describes a complete economic event: a header plus
// the full set of postings, committed as one atomic unit.
type TransactionRequest struct {
	Kind           TransactionKind
	Reference      *string
	CreatedBy      *int64
	IdempotencyKey *string
	Entries        []EntrySpec

	// GuildID and AssetSymbol annotate the emitted event; the ledger
	// core itself keys everything by the numeric ids in Entries.
	GuildID     string
	AssetSymbol string
}

// Validate checks the structural requirements of the request.
func (r *TransactionRequest) Validate() error {
	if r.Kind == "" {
		return ErrMissingKind
	}
	if len(r.Entries) == 0 {
		return ErrNoEntries
	}
	for _, e := range r.Entries {
		if e.AccountID == 0 || e.AssetID == 0 {
			return ErrIncompleteEntry
		}
	}
	return nil
}

// GrossAmount returns the total funds moved by a balanced entry set:
// the sum of the positive legs.
func GrossAmount(entries []EntrySpec) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Amount.IsPositive() {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// ValidateDoubleEntry verifies that the signed entries net to exactly zero
// for every asset they touch. A violation is a caller bug, never user input.
func ValidateDoubleEntry(entries []EntrySpec) bool {
	sums := make(map[int64]decimal.Decimal, 2)
	for _, e := range entries {
		sums[e.AssetID] = sums[e.AssetID].Add(e.Amount)
	}
	for _, sum := range sums {
		if !sum.IsZero() {
			return false
		}
	}
	return true
}

// LedgerAggregate is a committed transaction with its postings and the
// resulting balances of the touched (account, asset) pairs.
type LedgerAggregate struct {
	Transaction *Transaction
	Postings    []*Posting
	Balances    map[BalanceKey]decimal.Decimal
}

// BalanceKey identifies one (account, asset) balance.
type BalanceKey struct {
	AccountID int64
	AssetID   int64
}
