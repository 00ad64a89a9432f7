package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BettingEventStatus is the lifecycle of a betting event.
type BettingEventStatus string

const (
	BetEventOpen     BettingEventStatus = "open"
	BetEventClosed   BettingEventStatus = "closed"
	BetEventSettled  BettingEventStatus = "settled"
	BetEventCanceled BettingEventStatus = "canceled"
)

// BettingEvent is a pari-mutuel style event: players stake on named
// targets and the pool is redistributed to winners at settlement.
type BettingEvent struct {
	ID             int64              `json:"id"`
	GuildID        string             `json:"guild_id"`
	Title          string             `json:"title"`
	Targets        []string           `json:"targets"`
	CurrencySymbol string             `json:"currency_symbol"`
	Status         BettingEventStatus `json:"status"`
	WinningTarget  *string            `json:"winning_target,omitempty"`
	CreatedBy      int64              `json:"created_by"`
	CreatedAt      time.Time          `json:"created_at"`
	SettledAt      *time.Time         `json:"settled_at,omitempty"`
}

// Bet is one stake placed on one target of one event.
type Bet struct {
	ID        int64           `json:"id"`
	EventID   int64           `json:"event_id"`
	UserID    int64           `json:"user_id"`
	Target    string          `json:"target"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

var minOdds = decimal.NewFromFloat(1.1)

// CalculateOdds derives the payout multiplier for a target: total pool
// over the target's pool, floored at 1.1 and rounded to two places.
// Returns min odds when the target pool is empty.
func CalculateOdds(totalPool, targetPool decimal.Decimal) decimal.Decimal {
	if targetPool.IsZero() || totalPool.IsZero() {
		return minOdds
	}
	odds := totalPool.Div(targetPool).Round(2)
	if odds.LessThan(minOdds) {
		return minOdds
	}
	return odds
}

// PayoutFor computes the whole-unit payout for a stake at given odds.
// Fractions are dropped in the house's favor.
func PayoutFor(stake, odds decimal.Decimal) decimal.Decimal {
	return stake.Mul(odds).Floor()
}

// HasTarget reports whether name is one of the event's targets.
func (e *BettingEvent) HasTarget(name string) bool {
	for _, t := range e.Targets {
		if t == name {
			return true
		}
	}
	return false
}
