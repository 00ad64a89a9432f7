package config

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements create every table and index the service relies on.
// All amount columns are NUMERIC; values travel through the app as exact
// decimals and must never be coerced through floats.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS assets (
		id BIGSERIAL PRIMARY KEY,
		guild_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		name TEXT NOT NULL,
		decimals INT NOT NULL DEFAULT 2,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (guild_id, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT,
		guild_id TEXT NOT NULL,
		name TEXT NOT NULL UNIQUE,
		account_type TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		kind TEXT NOT NULL,
		reference TEXT,
		created_by BIGINT,
		idempotency_key TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS transactions_idempotency_key_idx
		ON transactions (idempotency_key) WHERE idempotency_key IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS postings (
		id BIGSERIAL PRIMARY KEY,
		transaction_id BIGINT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
		account_id BIGINT NOT NULL REFERENCES accounts(id),
		asset_id BIGINT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		amount NUMERIC NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS postings_account_asset_idx ON postings (account_id, asset_id)`,
	`CREATE INDEX IF NOT EXISTS postings_transaction_idx ON postings (transaction_id)`,
	`CREATE TABLE IF NOT EXISTS balances (
		account_id BIGINT NOT NULL REFERENCES accounts(id),
		asset_id BIGINT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		balance NUMERIC NOT NULL DEFAULT 0,
		version BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (account_id, asset_id)
	)`,
	`CREATE TABLE IF NOT EXISTS bank_accounts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		asset_id BIGINT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		balance NUMERIC NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, asset_id)
	)`,
	`CREATE TABLE IF NOT EXISTS bank_transactions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		asset_id BIGINT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		transaction_type TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		balance_after NUMERIC NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS auto_reward_configs (
		id BIGSERIAL PRIMARY KEY,
		guild_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		trigger_message TEXT NOT NULL,
		reward_amount NUMERIC NOT NULL,
		asset_id BIGINT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (guild_id, channel_id)
	)`,
	`CREATE TABLE IF NOT EXISTS auto_reward_claims (
		id BIGSERIAL PRIMARY KEY,
		config_id BIGINT NOT NULL REFERENCES auto_reward_configs(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL,
		guild_id TEXT NOT NULL,
		claimed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (config_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS role_panels (
		id BIGSERIAL PRIMARY KEY,
		guild_id TEXT NOT NULL,
		panel_name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (guild_id, panel_name)
	)`,
	`CREATE TABLE IF NOT EXISTS role_plans (
		id BIGSERIAL PRIMARY KEY,
		panel_id BIGINT NOT NULL REFERENCES role_panels(id) ON DELETE CASCADE,
		guild_id TEXT NOT NULL,
		plan_name TEXT NOT NULL,
		role_id TEXT NOT NULL,
		price NUMERIC NOT NULL,
		currency_symbol TEXT NOT NULL,
		duration_hours INT NOT NULL,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS role_purchases (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		plan_id BIGINT NOT NULL REFERENCES role_plans(id) ON DELETE CASCADE,
		guild_id TEXT NOT NULL,
		role_id TEXT NOT NULL,
		purchased_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS role_purchases_expires_idx ON role_purchases (expires_at)`,
	`CREATE TABLE IF NOT EXISTS monthly_allowances (
		id BIGSERIAL PRIMARY KEY,
		guild_id TEXT NOT NULL,
		role_id TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		currency_symbol TEXT NOT NULL,
		payment_day INT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (guild_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS allowance_history (
		id BIGSERIAL PRIMARY KEY,
		guild_id TEXT NOT NULL,
		role_id TEXT NOT NULL,
		user_id BIGINT NOT NULL,
		asset_id BIGINT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		amount NUMERIC NOT NULL,
		year_month TEXT NOT NULL,
		paid_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (guild_id, role_id, user_id, asset_id, year_month)
	)`,
	`CREATE TABLE IF NOT EXISTS betting_events (
		id BIGSERIAL PRIMARY KEY,
		guild_id TEXT NOT NULL,
		title TEXT NOT NULL,
		targets TEXT[] NOT NULL,
		currency_symbol TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		winning_target TEXT,
		created_by BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		settled_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS bets (
		id BIGSERIAL PRIMARY KEY,
		event_id BIGINT NOT NULL REFERENCES betting_events(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL,
		target TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS vc_earning_rates (
		id BIGSERIAL PRIMARY KEY,
		guild_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		asset_id BIGINT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		amount_per_minute NUMERIC NOT NULL,
		daily_limit NUMERIC NOT NULL DEFAULT 0,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (guild_id, channel_id)
	)`,
	`CREATE TABLE IF NOT EXISTS vc_sessions (
		id BIGSERIAL PRIMARY KEY,
		guild_id TEXT NOT NULL,
		user_id BIGINT NOT NULL,
		channel_id TEXT NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_paid_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (guild_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS vc_daily_earnings (
		id BIGSERIAL PRIMARY KEY,
		guild_id TEXT NOT NULL,
		user_id BIGINT NOT NULL,
		asset_id BIGINT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		day TEXT NOT NULL,
		earned NUMERIC NOT NULL DEFAULT 0,
		UNIQUE (guild_id, user_id, asset_id, day)
	)`,
}

// EnsureSchema creates missing tables at startup. Statements are
// idempotent so repeated boots are safe.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
