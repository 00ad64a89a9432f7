package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RolePanel groups purchasable role plans for a guild.
type RolePanel struct {
	ID        int64     `json:"id"`
	GuildID   string    `json:"guild_id"`
	PanelName string    `json:"panel_name"`
	CreatedAt time.Time `json:"created_at"`
}

// RolePlan is one purchasable privilege: a role granted for a fixed
// duration at a fixed price.
type RolePlan struct {
	ID             int64           `json:"id"`
	PanelID        int64           `json:"panel_id"`
	GuildID        string          `json:"guild_id"`
	PlanName       string          `json:"plan_name"`
	RoleID         string          `json:"role_id"`
	Price          decimal.Decimal `json:"price"`
	CurrencySymbol string          `json:"currency_symbol"`
	DurationHours  int             `json:"duration_hours"`
	Description    *string         `json:"description,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// RolePurchase is the active-grant record. Deleting it is the terminal
// state; expiry is a hard cutoff evaluated at sweep granularity.
type RolePurchase struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	PlanID      int64     `json:"plan_id"`
	GuildID     string    `json:"guild_id"`
	RoleID      string    `json:"role_id"`
	PurchasedAt time.Time `json:"purchased_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}
