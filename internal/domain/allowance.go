package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyAllowance schedules a recurring payment to every holder of a
// role on a given day of the month.
type MonthlyAllowance struct {
	ID             int64           `json:"id"`
	GuildID        string          `json:"guild_id"`
	RoleID         string          `json:"role_id"`
	Amount         decimal.Decimal `json:"amount"`
	CurrencySymbol string          `json:"currency_symbol"`
	PaymentDay     int             `json:"payment_day"`
	Enabled        bool            `json:"enabled"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AllowanceHistory marks one (guild, role, user, asset, period) payment.
// The five-column uniqueness is what makes the sweep idempotent.
type AllowanceHistory struct {
	ID        int64           `json:"id"`
	GuildID   string          `json:"guild_id"`
	RoleID    string          `json:"role_id"`
	UserID    int64           `json:"user_id"`
	AssetID   int64           `json:"asset_id"`
	Amount    decimal.Decimal `json:"amount"`
	YearMonth string          `json:"year_month"`
	PaidAt    time.Time       `json:"paid_at"`
}

// PeriodOf formats a time as the allowance period key, e.g. "2026-08".
func PeriodOf(t time.Time) string {
	return t.Format("2006-01")
}

// DueOn reports whether the allowance should pay during the given time's
// month. Payment days past the end of a short month clamp to its last day.
func (m *MonthlyAllowance) DueOn(t time.Time) bool {
	if !m.Enabled {
		return false
	}
	day := m.PaymentDay
	lastDay := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	return t.Day() >= day
}

// AllowanceIdempotencyKey derives the deterministic key that guards one
// payment per period.
func AllowanceIdempotencyKey(guildID, roleID string, userID int64, yearMonth string) string {
	return fmt.Sprintf("allowance:%s:%s:%d:%s", guildID, roleID, userID, yearMonth)
}
