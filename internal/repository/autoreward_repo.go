package repository

import (
	"context"
	"errors"
	"fmt"

	"economy-service/internal/domain"
	"economy-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AutoRewardRepository interface {
	UpsertConfig(ctx context.Context, cfg *domain.AutoRewardConfig) (*domain.AutoRewardConfig, error)
	GetConfigByChannel(ctx context.Context, guildID, channelID string) (*domain.AutoRewardConfig, error)
	ListConfigs(ctx context.Context, guildID string) ([]*domain.AutoRewardConfig, error)
	DeleteConfig(ctx context.Context, guildID, channelID string) error
	SetEnabled(ctx context.Context, guildID, channelID string, enabled bool) error

	// InsertClaim records a claim inside the payout transaction. The
	// unique (config_id, user_id) index turns a repeat claim into
	// ErrDuplicateClaim and rolls the payout back with it.
	InsertClaim(ctx context.Context, tx pgx.Tx, configID, userID int64, guildID string) (*domain.AutoRewardClaim, error)
	HasClaimed(ctx context.Context, configID, userID int64) (bool, error)
}

type autoRewardRepo struct {
	db *pgxpool.Pool
}

func NewAutoRewardRepo(db *pgxpool.Pool) AutoRewardRepository {
	return &autoRewardRepo{db: db}
}

const autoRewardColumns = `id, guild_id, channel_id, trigger_message, reward_amount, asset_id, enabled, created_at`

func scanAutoRewardConfig(row pgx.Row) (*domain.AutoRewardConfig, error) {
	var c domain.AutoRewardConfig
	err := row.Scan(&c.ID, &c.GuildID, &c.ChannelID, &c.TriggerMessage, &c.RewardAmount, &c.AssetID, &c.Enabled, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan auto reward config: %w", err)
	}
	return &c, nil
}

func (r *autoRewardRepo) UpsertConfig(ctx context.Context, cfg *domain.AutoRewardConfig) (*domain.AutoRewardConfig, error) {
	query := `
		INSERT INTO auto_reward_configs (guild_id, channel_id, trigger_message, reward_amount, asset_id, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (guild_id, channel_id) DO UPDATE
		SET trigger_message = EXCLUDED.trigger_message,
		    reward_amount = EXCLUDED.reward_amount,
		    asset_id = EXCLUDED.asset_id,
		    enabled = EXCLUDED.enabled
		RETURNING ` + autoRewardColumns

	return scanAutoRewardConfig(r.db.QueryRow(ctx, query,
		cfg.GuildID, cfg.ChannelID, cfg.TriggerMessage, cfg.RewardAmount, cfg.AssetID, cfg.Enabled))
}

func (r *autoRewardRepo) GetConfigByChannel(ctx context.Context, guildID, channelID string) (*domain.AutoRewardConfig, error) {
	query := `SELECT ` + autoRewardColumns + ` FROM auto_reward_configs WHERE guild_id = $1 AND channel_id = $2`
	return scanAutoRewardConfig(r.db.QueryRow(ctx, query, guildID, channelID))
}

func (r *autoRewardRepo) ListConfigs(ctx context.Context, guildID string) ([]*domain.AutoRewardConfig, error) {
	query := `SELECT ` + autoRewardColumns + ` FROM auto_reward_configs WHERE guild_id = $1 ORDER BY channel_id`
	rows, err := r.db.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto reward configs: %w", err)
	}
	defer rows.Close()

	var configs []*domain.AutoRewardConfig
	for rows.Next() {
		var c domain.AutoRewardConfig
		if err := rows.Scan(&c.ID, &c.GuildID, &c.ChannelID, &c.TriggerMessage, &c.RewardAmount, &c.AssetID, &c.Enabled, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan auto reward config: %w", err)
		}
		configs = append(configs, &c)
	}
	return configs, rows.Err()
}

func (r *autoRewardRepo) DeleteConfig(ctx context.Context, guildID, channelID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM auto_reward_configs WHERE guild_id = $1 AND channel_id = $2`, guildID, channelID)
	if err != nil {
		return fmt.Errorf("failed to delete auto reward config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *autoRewardRepo) SetEnabled(ctx context.Context, guildID, channelID string, enabled bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE auto_reward_configs SET enabled = $3 WHERE guild_id = $1 AND channel_id = $2`,
		guildID, channelID, enabled)
	if err != nil {
		return fmt.Errorf("failed to toggle auto reward config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *autoRewardRepo) InsertClaim(ctx context.Context, tx pgx.Tx, configID, userID int64, guildID string) (*domain.AutoRewardClaim, error) {
	query := `
		INSERT INTO auto_reward_claims (config_id, user_id, guild_id)
		VALUES ($1, $2, $3)
		RETURNING id, config_id, user_id, guild_id, claimed_at
	`
	var c domain.AutoRewardClaim
	err := tx.QueryRow(ctx, query, configID, userID, guildID).Scan(&c.ID, &c.ConfigID, &c.UserID, &c.GuildID, &c.ClaimedAt)
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return nil, xerrors.ErrDuplicateClaim
		}
		return nil, fmt.Errorf("failed to insert claim: %w", err)
	}
	return &c, nil
}

func (r *autoRewardRepo) HasClaimed(ctx context.Context, configID, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM auto_reward_claims WHERE config_id = $1 AND user_id = $2)`,
		configID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check claim: %w", err)
	}
	return exists, nil
}
