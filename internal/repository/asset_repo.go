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

type AssetRepository interface {
	Create(ctx context.Context, tx pgx.Tx, ac *domain.AssetCreate) (*domain.Asset, error)
	GetByID(ctx context.Context, id int64) (*domain.Asset, error)
	GetBySymbol(ctx context.Context, guildID, symbol string) (*domain.Asset, error)
	ListByGuild(ctx context.Context, guildID string) ([]*domain.Asset, error)
	// Delete removes the asset; postings, balances and subledger rows
	// referencing it go with it via ON DELETE CASCADE.
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
}

type assetRepo struct {
	db *pgxpool.Pool
}

func NewAssetRepo(db *pgxpool.Pool) AssetRepository {
	return &assetRepo{db: db}
}

const assetColumns = `id, guild_id, symbol, name, decimals, created_at`

func scanAsset(row pgx.Row) (*domain.Asset, error) {
	var a domain.Asset
	err := row.Scan(&a.ID, &a.GuildID, &a.Symbol, &a.Name, &a.Decimals, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to scan asset: %w", err)
	}
	return &a, nil
}

func (r *assetRepo) Create(ctx context.Context, tx pgx.Tx, ac *domain.AssetCreate) (*domain.Asset, error) {
	query := `
		INSERT INTO assets (guild_id, symbol, name, decimals)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + assetColumns

	asset, err := scanAsset(tx.QueryRow(ctx, query,
		ac.GuildID, domain.NormalizeSymbol(ac.Symbol), ac.Name, ac.Decimals))
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return nil, xerrors.ErrDuplicateAsset
		}
		return nil, fmt.Errorf("failed to create asset: %w", err)
	}
	return asset, nil
}

func (r *assetRepo) GetByID(ctx context.Context, id int64) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`
	return scanAsset(r.db.QueryRow(ctx, query, id))
}

func (r *assetRepo) GetBySymbol(ctx context.Context, guildID, symbol string) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE guild_id = $1 AND symbol = $2`
	return scanAsset(r.db.QueryRow(ctx, query, guildID, domain.NormalizeSymbol(symbol)))
}

func (r *assetRepo) ListByGuild(ctx context.Context, guildID string) ([]*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE guild_id = $1 ORDER BY symbol`

	rows, err := r.db.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.ID, &a.GuildID, &a.Symbol, &a.Name, &a.Decimals, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, &a)
	}
	return assets, rows.Err()
}

func (r *assetRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	tag, err := tx.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrAssetNotFound
	}
	return nil
}
