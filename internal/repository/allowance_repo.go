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

type AllowanceRepository interface {
	Upsert(ctx context.Context, a *domain.MonthlyAllowance) (*domain.MonthlyAllowance, error)
	Get(ctx context.Context, guildID, roleID string) (*domain.MonthlyAllowance, error)
	ListEnabled(ctx context.Context) ([]*domain.MonthlyAllowance, error)
	ListByGuild(ctx context.Context, guildID string) ([]*domain.MonthlyAllowance, error)
	Delete(ctx context.Context, guildID, roleID string) error

	// InsertHistory writes the once-per-period marker in the same
	// transaction as the ledger postings. A second attempt for the same
	// period hits the unique index and surfaces ErrDuplicateClaim.
	InsertHistory(ctx context.Context, tx pgx.Tx, h *domain.AllowanceHistory) error
	HasPaid(ctx context.Context, guildID, roleID string, userID, assetID int64, yearMonth string) (bool, error)
}

type allowanceRepo struct {
	db *pgxpool.Pool
}

func NewAllowanceRepo(db *pgxpool.Pool) AllowanceRepository {
	return &allowanceRepo{db: db}
}

const allowanceColumns = `id, guild_id, role_id, amount, currency_symbol, payment_day, enabled, created_at`

func scanAllowance(row pgx.Row) (*domain.MonthlyAllowance, error) {
	var a domain.MonthlyAllowance
	err := row.Scan(&a.ID, &a.GuildID, &a.RoleID, &a.Amount, &a.CurrencySymbol, &a.PaymentDay, &a.Enabled, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan allowance: %w", err)
	}
	return &a, nil
}

func (r *allowanceRepo) Upsert(ctx context.Context, a *domain.MonthlyAllowance) (*domain.MonthlyAllowance, error) {
	query := `
		INSERT INTO monthly_allowances (guild_id, role_id, amount, currency_symbol, payment_day, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (guild_id, role_id) DO UPDATE
		SET amount = EXCLUDED.amount,
		    currency_symbol = EXCLUDED.currency_symbol,
		    payment_day = EXCLUDED.payment_day,
		    enabled = EXCLUDED.enabled
		RETURNING ` + allowanceColumns

	return scanAllowance(r.db.QueryRow(ctx, query,
		a.GuildID, a.RoleID, a.Amount, a.CurrencySymbol, a.PaymentDay, a.Enabled))
}

func (r *allowanceRepo) Get(ctx context.Context, guildID, roleID string) (*domain.MonthlyAllowance, error) {
	query := `SELECT ` + allowanceColumns + ` FROM monthly_allowances WHERE guild_id = $1 AND role_id = $2`
	return scanAllowance(r.db.QueryRow(ctx, query, guildID, roleID))
}

func (r *allowanceRepo) ListEnabled(ctx context.Context) ([]*domain.MonthlyAllowance, error) {
	query := `SELECT ` + allowanceColumns + ` FROM monthly_allowances WHERE enabled = TRUE ORDER BY id`
	return r.list(ctx, query)
}

func (r *allowanceRepo) ListByGuild(ctx context.Context, guildID string) ([]*domain.MonthlyAllowance, error) {
	query := `SELECT ` + allowanceColumns + ` FROM monthly_allowances WHERE guild_id = $1 ORDER BY id`
	return r.list(ctx, query, guildID)
}

func (r *allowanceRepo) list(ctx context.Context, query string, args ...any) ([]*domain.MonthlyAllowance, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list allowances: %w", err)
	}
	defer rows.Close()

	var allowances []*domain.MonthlyAllowance
	for rows.Next() {
		var a domain.MonthlyAllowance
		if err := rows.Scan(&a.ID, &a.GuildID, &a.RoleID, &a.Amount, &a.CurrencySymbol, &a.PaymentDay, &a.Enabled, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan allowance: %w", err)
		}
		allowances = append(allowances, &a)
	}
	return allowances, rows.Err()
}

func (r *allowanceRepo) Delete(ctx context.Context, guildID, roleID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM monthly_allowances WHERE guild_id = $1 AND role_id = $2`, guildID, roleID)
	if err != nil {
		return fmt.Errorf("failed to delete allowance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *allowanceRepo) InsertHistory(ctx context.Context, tx pgx.Tx, h *domain.AllowanceHistory) error {
	query := `
		INSERT INTO allowance_history (guild_id, role_id, user_id, asset_id, amount, year_month)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Exec(ctx, query, h.GuildID, h.RoleID, h.UserID, h.AssetID, h.Amount, h.YearMonth)
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return xerrors.ErrDuplicateClaim
		}
		return fmt.Errorf("failed to insert allowance history: %w", err)
	}
	return nil
}

func (r *allowanceRepo) HasPaid(ctx context.Context, guildID, roleID string, userID, assetID int64, yearMonth string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM allowance_history
			WHERE guild_id = $1 AND role_id = $2 AND user_id = $3 AND asset_id = $4 AND year_month = $5
		)`, guildID, roleID, userID, assetID, yearMonth).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check allowance history: %w", err)
	}
	return exists, nil
}
