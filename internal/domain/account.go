package domain

import (
	"fmt"
	"time"
)

// AccountType tags a ledger participant.
type AccountType string

const (
	AccountTypeUser     AccountType = "user"
	AccountTypeTreasury AccountType = "treasury"
	AccountTypeBurn     AccountType = "burn"
)

// Account represents a ledger participant for a user or a guild system role.
// The name is globally unique and is the lookup key.
type Account struct {
	ID        int64       `json:"id"`
	UserID    *int64      `json:"user_id,omitempty"` // nil for system accounts
	GuildID   string      `json:"guild_id"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	CreatedAt time.Time   `json:"-"`
}

// TreasuryAccountName builds the durable name of a guild's treasury account.
func TreasuryAccountName(guildID string) string {
	return fmt.Sprintf("treasury:%s", guildID)
}

// BurnAccountName builds the durable name of a guild's burn account.
func BurnAccountName(guildID string) string {
	return fmt.Sprintf("burn:%s", guildID)
}

// UserAccountName builds the durable name of a user's account in a guild.
func UserAccountName(guildID string, userID int64) string {
	return fmt.Sprintf("user:%s:%d", guildID, userID)
}

// SystemAccountName resolves a logical system name ("treasury", "burn") to
// the durable account name for a guild.
func SystemAccountName(logical, guildID string) string {
	return fmt.Sprintf("%s:%s", logical, guildID)
}

// IsMint reports whether debits against this account skip the
// insufficient-balance check. The treasury is a faucet; the burn account
// is a sink. Neither is balance-constrained.
func (a *Account) IsMint() bool {
	return a.Type == AccountTypeTreasury || a.Type == AccountTypeBurn
}
