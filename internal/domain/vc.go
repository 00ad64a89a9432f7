package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VCEarningRate configures passive earning for members of a voice channel.
type VCEarningRate struct {
	ID               int64           `json:"id"`
	GuildID          string          `json:"guild_id"`
	ChannelID        string          `json:"channel_id"`
	AssetID          int64           `json:"asset_id"`
	AmountPerMinute  decimal.Decimal `json:"amount_per_minute"`
	DailyLimit       decimal.Decimal `json:"daily_limit"`
	Enabled          bool            `json:"enabled"`
	CreatedAt        time.Time       `json:"created_at"`
}

// VCSession is the durable presence record for one user in one guild's
// tracked channel. One session per (guild, user); re-joins replace it.
type VCSession struct {
	ID         int64     `json:"id"`
	GuildID    string    `json:"guild_id"`
	UserID     int64     `json:"user_id"`
	ChannelID  string    `json:"channel_id"`
	JoinedAt   time.Time `json:"joined_at"`
	LastPaidAt time.Time `json:"last_paid_at"`
}

// VCDailyEarning accumulates the amount paid to a user for one day so the
// daily limit can be enforced across restarts.
type VCDailyEarning struct {
	ID       int64           `json:"id"`
	GuildID  string          `json:"guild_id"`
	UserID   int64           `json:"user_id"`
	AssetID  int64           `json:"asset_id"`
	Day      string          `json:"day"`
	Earned   decimal.Decimal `json:"earned"`
}

// DayOf formats a time as the daily-earning bucket key.
func DayOf(t time.Time) string {
	return t.Format("2006-01-02")
}

// Accruable caps a candidate payout by the remaining daily headroom.
// Returns zero when the limit is already reached.
func Accruable(candidate, earnedToday, dailyLimit decimal.Decimal) decimal.Decimal {
	if dailyLimit.IsZero() {
		return candidate
	}
	remaining := dailyLimit.Sub(earnedToday)
	if remaining.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if candidate.GreaterThan(remaining) {
		return remaining
	}
	return candidate
}
