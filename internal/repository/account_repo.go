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

type AccountRepository interface {
	// EnsureUser creates the user's wallet account if missing and returns it.
	EnsureUser(ctx context.Context, guildID string, userID int64) (*domain.Account, error)
	// EnsureSystem creates a treasury/burn account if missing and returns it.
	EnsureSystem(ctx context.Context, guildID string, accType domain.AccountType) (*domain.Account, error)

	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByName(ctx context.Context, name string) (*domain.Account, error)
	ListByGuild(ctx context.Context, guildID string) ([]*domain.Account, error)
}

type accountRepo struct {
	db *pgxpool.Pool
}

func NewAccountRepo(db *pgxpool.Pool) AccountRepository {
	return &accountRepo{db: db}
}

const accountColumns = `id, user_id, guild_id, name, account_type, created_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.UserID, &a.GuildID, &a.Name, &a.Type, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &a, nil
}

// EnsureUser is safe under concurrency: the insert is a no-op when the
// account already exists and the read-back always returns the winner.
func (r *accountRepo) EnsureUser(ctx context.Context, guildID string, userID int64) (*domain.Account, error) {
	name := domain.UserAccountName(guildID, userID)

	query := `
		INSERT INTO accounts (user_id, guild_id, name, account_type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, userID, guildID, name, domain.AccountTypeUser); err != nil {
		return nil, fmt.Errorf("failed to ensure user account: %w", err)
	}

	return r.GetByName(ctx, name)
}

func (r *accountRepo) EnsureSystem(ctx context.Context, guildID string, accType domain.AccountType) (*domain.Account, error) {
	var name string
	switch accType {
	case domain.AccountTypeTreasury:
		name = domain.TreasuryAccountName(guildID)
	case domain.AccountTypeBurn:
		name = domain.BurnAccountName(guildID)
	default:
		return nil, fmt.Errorf("not a system account type: %s", accType)
	}

	query := `
		INSERT INTO accounts (guild_id, name, account_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, guildID, name, accType); err != nil {
		return nil, fmt.Errorf("failed to ensure system account: %w", err)
	}

	return r.GetByName(ctx, name)
}

func (r *accountRepo) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

func (r *accountRepo) GetByName(ctx context.Context, name string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE name = $1`
	return scanAccount(r.db.QueryRow(ctx, query, name))
}

func (r *accountRepo) ListByGuild(ctx context.Context, guildID string) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE guild_id = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.GuildID, &a.Name, &a.Type, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}
