package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AutoRewardConfig defines a message-triggered reward for one channel.
// One config per (guild, channel).
type AutoRewardConfig struct {
	ID             int64           `json:"id"`
	GuildID        string          `json:"guild_id"`
	ChannelID      string          `json:"channel_id"`
	TriggerMessage string          `json:"trigger_message"`
	RewardAmount   decimal.Decimal `json:"reward_amount"`
	AssetID        int64           `json:"asset_id"`
	Enabled        bool            `json:"enabled"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Matches reports whether a message body triggers this config.
func (c *AutoRewardConfig) Matches(content string) bool {
	return strings.TrimSpace(content) == c.TriggerMessage
}

// AutoRewardClaim records that a user claimed a config. A user may claim
// a given config at most once; the (config, user) pair is unique.
type AutoRewardClaim struct {
	ID        int64     `json:"id"`
	ConfigID  int64     `json:"config_id"`
	UserID    int64     `json:"user_id"`
	GuildID   string    `json:"guild_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}
