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
)

type RolePlanRepository interface {
	CreatePanel(ctx context.Context, guildID, panelName string) (*domain.RolePanel, error)
	GetPanel(ctx context.Context, guildID, panelName string) (*domain.RolePanel, error)
	ListPanels(ctx context.Context, guildID string) ([]*domain.RolePanel, error)
	DeletePanel(ctx context.Context, guildID, panelName string) error

	CreatePlan(ctx context.Context, plan *domain.RolePlan) (*domain.RolePlan, error)
	GetPlan(ctx context.Context, id int64) (*domain.RolePlan, error)
	ListPlans(ctx context.Context, panelID int64) ([]*domain.RolePlan, error)
	DeletePlan(ctx context.Context, id int64) error

	InsertPurchase(ctx context.Context, tx pgx.Tx, p *domain.RolePurchase) (*domain.RolePurchase, error)
	ActivePurchase(ctx context.Context, guildID string, userID, planID int64) (*domain.RolePurchase, error)
	// ExpiredPurchases returns grants whose expiry is at or before now.
	ExpiredPurchases(ctx context.Context, now time.Time, limit int) ([]*domain.RolePurchase, error)
	DeletePurchase(ctx context.Context, id int64) error
}

type rolePlanRepo struct {
	db *pgxpool.Pool
}

func NewRolePlanRepo(db *pgxpool.Pool) RolePlanRepository {
	return &rolePlanRepo{db: db}
}

func (r *rolePlanRepo) CreatePanel(ctx context.Context, guildID, panelName string) (*domain.RolePanel, error) {
	query := `
		INSERT INTO role_panels (guild_id, panel_name)
		VALUES ($1, $2)
		RETURNING id, guild_id, panel_name, created_at
	`
	var p domain.RolePanel
	err := r.db.QueryRow(ctx, query, guildID, panelName).Scan(&p.ID, &p.GuildID, &p.PanelName, &p.CreatedAt)
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return nil, fmt.Errorf("panel %s: %w", panelName, xerrors.ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to create panel: %w", err)
	}
	return &p, nil
}

func (r *rolePlanRepo) GetPanel(ctx context.Context, guildID, panelName string) (*domain.RolePanel, error) {
	query := `SELECT id, guild_id, panel_name, created_at FROM role_panels WHERE guild_id = $1 AND panel_name = $2`
	var p domain.RolePanel
	err := r.db.QueryRow(ctx, query, guildID, panelName).Scan(&p.ID, &p.GuildID, &p.PanelName, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get panel: %w", err)
	}
	return &p, nil
}

func (r *rolePlanRepo) ListPanels(ctx context.Context, guildID string) ([]*domain.RolePanel, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, guild_id, panel_name, created_at FROM role_panels WHERE guild_id = $1 ORDER BY panel_name`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list panels: %w", err)
	}
	defer rows.Close()

	var panels []*domain.RolePanel
	for rows.Next() {
		var p domain.RolePanel
		if err := rows.Scan(&p.ID, &p.GuildID, &p.PanelName, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan panel: %w", err)
		}
		panels = append(panels, &p)
	}
	return panels, rows.Err()
}

func (r *rolePlanRepo) DeletePanel(ctx context.Context, guildID, panelName string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM role_panels WHERE guild_id = $1 AND panel_name = $2`, guildID, panelName)
	if err != nil {
		return fmt.Errorf("failed to delete panel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

const rolePlanColumns = `id, panel_id, guild_id, plan_name, role_id, price, currency_symbol, duration_hours, description, created_at`

func (r *rolePlanRepo) CreatePlan(ctx context.Context, plan *domain.RolePlan) (*domain.RolePlan, error) {
	query := `
		INSERT INTO role_plans (panel_id, guild_id, plan_name, role_id, price, currency_symbol, duration_hours, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + rolePlanColumns

	var p domain.RolePlan
	err := r.db.QueryRow(ctx, query,
		plan.PanelID, plan.GuildID, plan.PlanName, plan.RoleID,
		plan.Price, plan.CurrencySymbol, plan.DurationHours, plan.Description,
	).Scan(&p.ID, &p.PanelID, &p.GuildID, &p.PlanName, &p.RoleID, &p.Price, &p.CurrencySymbol, &p.DurationHours, &p.Description, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}
	return &p, nil
}

func (r *rolePlanRepo) GetPlan(ctx context.Context, id int64) (*domain.RolePlan, error) {
	query := `SELECT ` + rolePlanColumns + ` FROM role_plans WHERE id = $1`
	var p domain.RolePlan
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.PanelID, &p.GuildID, &p.PlanName, &p.RoleID, &p.Price, &p.CurrencySymbol, &p.DurationHours, &p.Description, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &p, nil
}

func (r *rolePlanRepo) ListPlans(ctx context.Context, panelID int64) ([]*domain.RolePlan, error) {
	query := `SELECT ` + rolePlanColumns + ` FROM role_plans WHERE panel_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, panelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*domain.RolePlan
	for rows.Next() {
		var p domain.RolePlan
		if err := rows.Scan(&p.ID, &p.PanelID, &p.GuildID, &p.PlanName, &p.RoleID, &p.Price, &p.CurrencySymbol, &p.DurationHours, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, &p)
	}
	return plans, rows.Err()
}

func (r *rolePlanRepo) DeletePlan(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM role_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrPlanNotFound
	}
	return nil
}

const rolePurchaseColumns = `id, user_id, plan_id, guild_id, role_id, purchased_at, expires_at`

func (r *rolePlanRepo) InsertPurchase(ctx context.Context, tx pgx.Tx, p *domain.RolePurchase) (*domain.RolePurchase, error) {
	query := `
		INSERT INTO role_purchases (user_id, plan_id, guild_id, role_id, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + rolePurchaseColumns

	var out domain.RolePurchase
	err := tx.QueryRow(ctx, query, p.UserID, p.PlanID, p.GuildID, p.RoleID, p.ExpiresAt).Scan(
		&out.ID, &out.UserID, &out.PlanID, &out.GuildID, &out.RoleID, &out.PurchasedAt, &out.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert purchase: %w", err)
	}
	return &out, nil
}

func (r *rolePlanRepo) ActivePurchase(ctx context.Context, guildID string, userID, planID int64) (*domain.RolePurchase, error) {
	query := `SELECT ` + rolePurchaseColumns + ` FROM role_purchases WHERE guild_id = $1 AND user_id = $2 AND plan_id = $3`
	var p domain.RolePurchase
	err := r.db.QueryRow(ctx, query, guildID, userID, planID).Scan(
		&p.ID, &p.UserID, &p.PlanID, &p.GuildID, &p.RoleID, &p.PurchasedAt, &p.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	return &p, nil
}

func (r *rolePlanRepo) ExpiredPurchases(ctx context.Context, now time.Time, limit int) ([]*domain.RolePurchase, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + rolePurchaseColumns + ` FROM role_purchases WHERE expires_at <= $1 ORDER BY expires_at LIMIT $2`
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*domain.RolePurchase
	for rows.Next() {
		var p domain.RolePurchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.PlanID, &p.GuildID, &p.RoleID, &p.PurchasedAt, &p.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, &p)
	}
	return purchases, rows.Err()
}

func (r *rolePlanRepo) DeletePurchase(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM role_purchases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete purchase: %w", err)
	}
	return nil
}
