package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"economy-service/internal/domain"
	"economy-service/internal/repository"
	"economy-service/internal/xerrors"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// VCEarningUsecase pays members for time spent in tracked voice
// channels. Sessions are durable rows, so payouts survive restarts;
// daily totals cap how much one member can earn per day.
type VCEarningUsecase struct {
	vcRepo    repository.VCRepository
	assetUC   *AssetUsecase
	accountUC *AccountUsecase
	ledgerUC  *LedgerUsecase
}

func NewVCEarningUsecase(
	vcRepo repository.VCRepository,
	assetUC *AssetUsecase,
	accountUC *AccountUsecase,
	ledgerUC *LedgerUsecase,
) *VCEarningUsecase {
	return &VCEarningUsecase{
		vcRepo:    vcRepo,
		assetUC:   assetUC,
		accountUC: accountUC,
		ledgerUC:  ledgerUC,
	}
}

func (uc *VCEarningUsecase) SetRate(ctx context.Context, guildID, channelID, symbol string, perMinute, dailyLimit decimal.Decimal) (*domain.VCEarningRate, error) {
	asset, err := uc.assetUC.GetBySymbol(ctx, guildID, symbol)
	if err != nil {
		return nil, err
	}
	perMinute = asset.Truncate(perMinute)
	if !perMinute.IsPositive() {
		return nil, fmt.Errorf("rate must be positive: %w", xerrors.ErrInvalidInput)
	}
	if dailyLimit.IsNegative() {
		return nil, fmt.Errorf("daily limit cannot be negative: %w", xerrors.ErrInvalidInput)
	}
	return uc.vcRepo.UpsertRate(ctx, &domain.VCEarningRate{
		GuildID:         guildID,
		ChannelID:       channelID,
		AssetID:         asset.ID,
		AmountPerMinute: perMinute,
		DailyLimit:      asset.Truncate(dailyLimit),
		Enabled:         true,
	})
}

func (uc *VCEarningUsecase) DeleteRate(ctx context.Context, guildID, channelID string) error {
	return uc.vcRepo.DeleteRate(ctx, guildID, channelID)
}

// ListRates returns every per-channel earning rate configured for the
// guild, disabled ones included.
func (uc *VCEarningUsecase) ListRates(ctx context.Context, guildID string) ([]*domain.VCEarningRate, error) {
	return uc.vcRepo.ListRates(ctx, guildID)
}

// JoinVoice opens (or restarts) the member's session.
func (uc *VCEarningUsecase) JoinVoice(ctx context.Context, guildID string, userID int64, channelID string) (*domain.VCSession, error) {
	return uc.vcRepo.UpsertSession(ctx, &domain.VCSession{
		GuildID:   guildID,
		UserID:    userID,
		ChannelID: channelID,
	})
}

// LeaveVoice settles the final accrual and closes the session.
func (uc *VCEarningUsecase) LeaveVoice(ctx context.Context, guildID string, userID int64) error {
	session, err := uc.vcRepo.GetSession(ctx, guildID, userID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil
		}
		return err
	}
	if _, err := uc.paySession(ctx, session, time.Now()); err != nil && !errors.Is(err, xerrors.ErrRateNotFound) {
		log.WithError(err).Warn("final vc accrual failed")
	}
	return uc.vcRepo.DeleteSession(ctx, guildID, userID)
}

// PayoutTick accrues earnings for every open session. Called on a fixed
// interval by the sweep service; each session settles independently so
// one failure does not stall the rest.
func (uc *VCEarningUsecase) PayoutTick(ctx context.Context, now time.Time) error {
	sessions, err := uc.vcRepo.ListSessions(ctx)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if _, err := uc.paySession(ctx, s, now); err != nil && !errors.Is(err, xerrors.ErrRateNotFound) {
			log.WithFields(log.Fields{
				"guild_id": s.GuildID,
				"user_id":  s.UserID,
			}).WithError(err).Warn("vc payout failed")
		}
	}
	return nil
}

func (uc *VCEarningUsecase) paySession(ctx context.Context, s *domain.VCSession, now time.Time) (decimal.Decimal, error) {
	rate, err := uc.vcRepo.GetRate(ctx, s.GuildID, s.ChannelID)
	if err != nil {
		return decimal.Zero, err
	}
	if !rate.Enabled {
		return decimal.Zero, nil
	}

	minutes := int64(now.Sub(s.LastPaidAt) / time.Minute)
	if minutes <= 0 {
		return decimal.Zero, nil
	}

	asset, err := uc.assetUC.GetByID(ctx, rate.AssetID)
	if err != nil {
		return decimal.Zero, err
	}

	candidate := asset.Truncate(rate.AmountPerMinute.Mul(decimal.NewFromInt(minutes)))
	day := domain.DayOf(now)
	earned, err := uc.vcRepo.DailyEarned(ctx, s.GuildID, s.UserID, asset.ID, day)
	if err != nil {
		return decimal.Zero, err
	}
	amount := domain.Accruable(candidate, earned, rate.DailyLimit)

	// The clock advances even when capped, so headroom tomorrow does
	// not retroactively pay for today, but only once the payout is
	// actually committed; a failed commit must not consume the minutes.
	paidThrough := s.LastPaidAt.Add(time.Duration(minutes) * time.Minute)
	if !amount.IsPositive() {
		if err := uc.vcRepo.TouchSession(ctx, s.ID, paidThrough); err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, nil
	}

	treasury, err := uc.ledgerUC.EnsureTreasuryFunds(ctx, s.GuildID, asset, amount)
	if err != nil {
		return decimal.Zero, err
	}
	wallet, err := uc.accountUC.EnsureUser(ctx, s.GuildID, s.UserID)
	if err != nil {
		return decimal.Zero, err
	}

	req := &domain.TransactionRequest{
		Kind:        domain.KindVCEarning,
		GuildID:     s.GuildID,
		AssetSymbol: asset.Symbol,
		Entries: []domain.EntrySpec{
			{AccountID: treasury.ID, AssetID: asset.ID, Amount: amount.Neg()},
			{AccountID: wallet.ID, AssetID: asset.ID, Amount: amount},
		},
	}
	if _, err := uc.ledgerUC.Commit(ctx, req); err != nil {
		return decimal.Zero, err
	}

	if err := uc.vcRepo.TouchSession(ctx, s.ID, paidThrough); err != nil {
		return decimal.Zero, err
	}
	if _, err := uc.vcRepo.AddDailyEarning(ctx, s.GuildID, s.UserID, asset.ID, day, amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// PruneDailyEarnings drops per-day totals older than the retention
// window.
func (uc *VCEarningUsecase) PruneDailyEarnings(ctx context.Context, now time.Time, retentionDays int) (int64, error) {
	cutoff := domain.DayOf(now.AddDate(0, 0, -retentionDays))
	return uc.vcRepo.PruneDailyEarnings(ctx, cutoff)
}
