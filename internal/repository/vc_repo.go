package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"economy-service/internal/domain"
	"economy-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type VCRepository interface {
	UpsertRate(ctx context.Context, rate *domain.VCEarningRate) (*domain.VCEarningRate, error)
	GetRate(ctx context.Context, guildID, channelID string) (*domain.VCEarningRate, error)
	ListRates(ctx context.Context, guildID string) ([]*domain.VCEarningRate, error)
	DeleteRate(ctx context.Context, guildID, channelID string) error

	// UpsertSession replaces any existing session for the (guild, user)
	// pair, so a channel move restarts the clock.
	UpsertSession(ctx context.Context, s *domain.VCSession) (*domain.VCSession, error)
	GetSession(ctx context.Context, guildID string, userID int64) (*domain.VCSession, error)
	DeleteSession(ctx context.Context, guildID string, userID int64) error
	ListSessions(ctx context.Context) ([]*domain.VCSession, error)
	TouchSession(ctx context.Context, id int64, paidAt time.Time) error

	// AddDailyEarning accumulates into the day's bucket and returns the
	// new total for the day.
	AddDailyEarning(ctx context.Context, guildID string, userID, assetID int64, day string, amount decimal.Decimal) (decimal.Decimal, error)
	DailyEarned(ctx context.Context, guildID string, userID, assetID int64, day string) (decimal.Decimal, error)
	// PruneDailyEarnings drops buckets older than the cutoff day.
	PruneDailyEarnings(ctx context.Context, cutoffDay string) (int64, error)
}

type vcRepo struct {
	db *pgxpool.Pool
}

func NewVCRepo(db *pgxpool.Pool) VCRepository {
	return &vcRepo{db: db}
}

const vcRateColumns = `id, guild_id, channel_id, asset_id, amount_per_minute, daily_limit, enabled, created_at`

func scanVCRate(row pgx.Row) (*domain.VCEarningRate, error) {
	var v domain.VCEarningRate
	err := row.Scan(&v.ID, &v.GuildID, &v.ChannelID, &v.AssetID, &v.AmountPerMinute, &v.DailyLimit, &v.Enabled, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrRateNotFound
		}
		return nil, fmt.Errorf("failed to scan vc rate: %w", err)
	}
	return &v, nil
}

func (r *vcRepo) UpsertRate(ctx context.Context, rate *domain.VCEarningRate) (*domain.VCEarningRate, error) {
	query := `
		INSERT INTO vc_earning_rates (guild_id, channel_id, asset_id, amount_per_minute, daily_limit, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (guild_id, channel_id) DO UPDATE
		SET asset_id = EXCLUDED.asset_id,
		    amount_per_minute = EXCLUDED.amount_per_minute,
		    daily_limit = EXCLUDED.daily_limit,
		    enabled = EXCLUDED.enabled
		RETURNING ` + vcRateColumns

	return scanVCRate(r.db.QueryRow(ctx, query,
		rate.GuildID, rate.ChannelID, rate.AssetID, rate.AmountPerMinute, rate.DailyLimit, rate.Enabled))
}

func (r *vcRepo) GetRate(ctx context.Context, guildID, channelID string) (*domain.VCEarningRate, error) {
	query := `SELECT ` + vcRateColumns + ` FROM vc_earning_rates WHERE guild_id = $1 AND channel_id = $2`
	return scanVCRate(r.db.QueryRow(ctx, query, guildID, channelID))
}

func (r *vcRepo) ListRates(ctx context.Context, guildID string) ([]*domain.VCEarningRate, error) {
	query := `SELECT ` + vcRateColumns + ` FROM vc_earning_rates WHERE guild_id = $1 ORDER BY channel_id`
	rows, err := r.db.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vc rates: %w", err)
	}
	defer rows.Close()

	var rates []*domain.VCEarningRate
	for rows.Next() {
		var v domain.VCEarningRate
		if err := rows.Scan(&v.ID, &v.GuildID, &v.ChannelID, &v.AssetID, &v.AmountPerMinute, &v.DailyLimit, &v.Enabled, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vc rate: %w", err)
		}
		rates = append(rates, &v)
	}
	return rates, rows.Err()
}

func (r *vcRepo) DeleteRate(ctx context.Context, guildID, channelID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM vc_earning_rates WHERE guild_id = $1 AND channel_id = $2`, guildID, channelID)
	if err != nil {
		return fmt.Errorf("failed to delete vc rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrRateNotFound
	}
	return nil
}

const vcSessionColumns = `id, guild_id, user_id, channel_id, joined_at, last_paid_at`

func (r *vcRepo) UpsertSession(ctx context.Context, s *domain.VCSession) (*domain.VCSession, error) {
	query := `
		INSERT INTO vc_sessions (guild_id, user_id, channel_id, joined_at, last_paid_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (guild_id, user_id) DO UPDATE
		SET channel_id = EXCLUDED.channel_id,
		    joined_at = now(),
		    last_paid_at = now()
		RETURNING ` + vcSessionColumns

	var out domain.VCSession
	err := r.db.QueryRow(ctx, query, s.GuildID, s.UserID, s.ChannelID).Scan(
		&out.ID, &out.GuildID, &out.UserID, &out.ChannelID, &out.JoinedAt, &out.LastPaidAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert vc session: %w", err)
	}
	return &out, nil
}

func (r *vcRepo) GetSession(ctx context.Context, guildID string, userID int64) (*domain.VCSession, error) {
	query := `SELECT ` + vcSessionColumns + ` FROM vc_sessions WHERE guild_id = $1 AND user_id = $2`
	var s domain.VCSession
	err := r.db.QueryRow(ctx, query, guildID, userID).Scan(
		&s.ID, &s.GuildID, &s.UserID, &s.ChannelID, &s.JoinedAt, &s.LastPaidAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get vc session: %w", err)
	}
	return &s, nil
}

func (r *vcRepo) DeleteSession(ctx context.Context, guildID string, userID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM vc_sessions WHERE guild_id = $1 AND user_id = $2`, guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete vc session: %w", err)
	}
	return nil
}

func (r *vcRepo) ListSessions(ctx context.Context) ([]*domain.VCSession, error) {
	query := `SELECT ` + vcSessionColumns + ` FROM vc_sessions ORDER BY id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list vc sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.VCSession
	for rows.Next() {
		var s domain.VCSession
		if err := rows.Scan(&s.ID, &s.GuildID, &s.UserID, &s.ChannelID, &s.JoinedAt, &s.LastPaidAt); err != nil {
			return nil, fmt.Errorf("failed to scan vc session: %w", err)
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

func (r *vcRepo) TouchSession(ctx context.Context, id int64, paidAt time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE vc_sessions SET last_paid_at = $2 WHERE id = $1`, id, paidAt)
	if err != nil {
		return fmt.Errorf("failed to touch vc session: %w", err)
	}
	return nil
}

func (r *vcRepo) AddDailyEarning(ctx context.Context, guildID string, userID, assetID int64, day string, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		INSERT INTO vc_daily_earnings (guild_id, user_id, asset_id, day, earned)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guild_id, user_id, asset_id, day) DO UPDATE
		SET earned = vc_daily_earnings.earned + EXCLUDED.earned
		RETURNING earned
	`
	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, guildID, userID, assetID, day, amount).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to add daily earning: %w", err)
	}
	return total, nil
}

func (r *vcRepo) DailyEarned(ctx context.Context, guildID string, userID, assetID int64, day string) (decimal.Decimal, error) {
	var earned decimal.Decimal
	err := r.db.QueryRow(ctx,
		`SELECT earned FROM vc_daily_earnings WHERE guild_id = $1 AND user_id = $2 AND asset_id = $3 AND day = $4`,
		guildID, userID, assetID, day).Scan(&earned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to get daily earning: %w", err)
	}
	return earned, nil
}

func (r *vcRepo) PruneDailyEarnings(ctx context.Context, cutoffDay string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM vc_daily_earnings WHERE day < $1`, cutoffDay)
	if err != nil {
		return 0, fmt.Errorf("failed to prune daily earnings: %w", err)
	}
	return tag.RowsAffected(), nil
}
