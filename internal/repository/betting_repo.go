package repository

import (
	"context"
	"errors"
	"fmt"

	"economy-service/internal/domain"
	"economy-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type BettingRepository interface {
	CreateEvent(ctx context.Context, e *domain.BettingEvent) (*domain.BettingEvent, error)
	GetEvent(ctx context.Context, id int64) (*domain.BettingEvent, error)
	// GetEventWithLock pins the event row so settlement and bet
	// placement cannot interleave.
	GetEventWithLock(ctx context.Context, tx pgx.Tx, id int64) (*domain.BettingEvent, error)
	ListOpenEvents(ctx context.Context, guildID string) ([]*domain.BettingEvent, error)
	UpdateEventStatus(ctx context.Context, tx pgx.Tx, id int64, status domain.BettingEventStatus, winningTarget *string) error

	InsertBet(ctx context.Context, tx pgx.Tx, b *domain.Bet) (*domain.Bet, error)
	ListBets(ctx context.Context, eventID int64) ([]*domain.Bet, error)
	// ListBetsTx reads the bets inside the settling transaction, after
	// the event row is locked, so no stake placed concurrently can be
	// missed by a payout or refund.
	ListBetsTx(ctx context.Context, tx pgx.Tx, eventID int64) ([]*domain.Bet, error)
	// Pools returns the total staked per target for an event.
	Pools(ctx context.Context, eventID int64) (map[string]decimal.Decimal, error)
}

type bettingRepo struct {
	db *pgxpool.Pool
}

func NewBettingRepo(db *pgxpool.Pool) BettingRepository {
	return &bettingRepo{db: db}
}

const bettingEventColumns = `id, guild_id, title, targets, currency_symbol, status, winning_target, created_by, created_at, settled_at`

func scanBettingEvent(row pgx.Row) (*domain.BettingEvent, error) {
	var e domain.BettingEvent
	err := row.Scan(&e.ID, &e.GuildID, &e.Title, &e.Targets, &e.CurrencySymbol, &e.Status, &e.WinningTarget, &e.CreatedBy, &e.CreatedAt, &e.SettledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to scan betting event: %w", err)
	}
	return &e, nil
}

func (r *bettingRepo) CreateEvent(ctx context.Context, e *domain.BettingEvent) (*domain.BettingEvent, error) {
	query := `
		INSERT INTO betting_events (guild_id, title, targets, currency_symbol, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + bettingEventColumns

	return scanBettingEvent(r.db.QueryRow(ctx, query, e.GuildID, e.Title, e.Targets, e.CurrencySymbol, e.CreatedBy))
}

func (r *bettingRepo) GetEvent(ctx context.Context, id int64) (*domain.BettingEvent, error) {
	query := `SELECT ` + bettingEventColumns + ` FROM betting_events WHERE id = $1`
	return scanBettingEvent(r.db.QueryRow(ctx, query, id))
}

func (r *bettingRepo) GetEventWithLock(ctx context.Context, tx pgx.Tx, id int64) (*domain.BettingEvent, error) {
	query := `SELECT ` + bettingEventColumns + ` FROM betting_events WHERE id = $1 FOR UPDATE`
	return scanBettingEvent(tx.QueryRow(ctx, query, id))
}

func (r *bettingRepo) ListOpenEvents(ctx context.Context, guildID string) ([]*domain.BettingEvent, error) {
	query := `SELECT ` + bettingEventColumns + ` FROM betting_events WHERE guild_id = $1 AND status = 'open' ORDER BY id DESC`
	rows, err := r.db.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*domain.BettingEvent
	for rows.Next() {
		var e domain.BettingEvent
		if err := rows.Scan(&e.ID, &e.GuildID, &e.Title, &e.Targets, &e.CurrencySymbol, &e.Status, &e.WinningTarget, &e.CreatedBy, &e.CreatedAt, &e.SettledAt); err != nil {
			return nil, fmt.Errorf("failed to scan betting event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *bettingRepo) UpdateEventStatus(ctx context.Context, tx pgx.Tx, id int64, status domain.BettingEventStatus, winningTarget *string) error {
	query := `
		UPDATE betting_events
		SET status = $2,
		    winning_target = $3,
		    settled_at = CASE WHEN $2 IN ('settled', 'canceled') THEN now() ELSE settled_at END
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, query, id, status, winningTarget)
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrEventNotFound
	}
	return nil
}

func (r *bettingRepo) InsertBet(ctx context.Context, tx pgx.Tx, b *domain.Bet) (*domain.Bet, error) {
	query := `
		INSERT INTO bets (event_id, user_id, target, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, event_id, user_id, target, amount, created_at
	`
	var out domain.Bet
	err := tx.QueryRow(ctx, query, b.EventID, b.UserID, b.Target, b.Amount).Scan(
		&out.ID, &out.EventID, &out.UserID, &out.Target, &out.Amount, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert bet: %w", err)
	}
	return &out, nil
}

const listBetsQuery = `SELECT id, event_id, user_id, target, amount, created_at FROM bets WHERE event_id = $1 ORDER BY id`

func collectBets(rows pgx.Rows) ([]*domain.Bet, error) {
	defer rows.Close()
	var bets []*domain.Bet
	for rows.Next() {
		var b domain.Bet
		if err := rows.Scan(&b.ID, &b.EventID, &b.UserID, &b.Target, &b.Amount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, &b)
	}
	return bets, rows.Err()
}

func (r *bettingRepo) ListBets(ctx context.Context, eventID int64) ([]*domain.Bet, error) {
	rows, err := r.db.Query(ctx, listBetsQuery, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	return collectBets(rows)
}

func (r *bettingRepo) ListBetsTx(ctx context.Context, tx pgx.Tx, eventID int64) ([]*domain.Bet, error) {
	rows, err := tx.Query(ctx, listBetsQuery, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	return collectBets(rows)
}

func (r *bettingRepo) Pools(ctx context.Context, eventID int64) (map[string]decimal.Decimal, error) {
	query := `SELECT target, COALESCE(SUM(amount), 0) FROM bets WHERE event_id = $1 GROUP BY target`
	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum pools: %w", err)
	}
	defer rows.Close()

	pools := make(map[string]decimal.Decimal)
	for rows.Next() {
		var target string
		var total decimal.Decimal
		if err := rows.Scan(&target, &total); err != nil {
			return nil, fmt.Errorf("failed to scan pool: %w", err)
		}
		pools[target] = total
	}
	return pools, rows.Err()
}
