package usecase

import (
	"context"
	"fmt"

	"economy-service/internal/domain"
	"economy-service/internal/repository"
	"economy-service/internal/xerrors"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// BettingUsecase runs pari-mutuel events. Stakes flow into the treasury
// when placed; settlement pays winners back out of it at pool odds.
type BettingUsecase struct {
	betRepo    repository.BettingRepository
	assetUC    *AssetUsecase
	accountUC  *AccountUsecase
	ledgerUC   *LedgerUsecase
	ledgerRepo repository.LedgerRepository
	pub        EventPublisher
}

func NewBettingUsecase(
	betRepo repository.BettingRepository,
	assetUC *AssetUsecase,
	accountUC *AccountUsecase,
	ledgerUC *LedgerUsecase,
	ledgerRepo repository.LedgerRepository,
	pub EventPublisher,
) *BettingUsecase {
	return &BettingUsecase{
		betRepo:    betRepo,
		assetUC:    assetUC,
		accountUC:  accountUC,
		ledgerUC:   ledgerUC,
		ledgerRepo: ledgerRepo,
		pub:        pub,
	}
}

func (uc *BettingUsecase) CreateEvent(ctx context.Context, guildID, title, symbol string, targets []string, createdBy int64) (*domain.BettingEvent, error) {
	if len(targets) < 2 {
		return nil, fmt.Errorf("need at least two targets: %w", xerrors.ErrInvalidInput)
	}
	asset, err := uc.assetUC.GetBySymbol(ctx, guildID, symbol)
	if err != nil {
		return nil, err
	}
	return uc.betRepo.CreateEvent(ctx, &domain.BettingEvent{
		GuildID:        guildID,
		Title:          title,
		Targets:        targets,
		CurrencySymbol: asset.Symbol,
		CreatedBy:      createdBy,
	})
}

func (uc *BettingUsecase) GetEvent(ctx context.Context, id int64) (*domain.BettingEvent, error) {
	return uc.betRepo.GetEvent(ctx, id)
}

func (uc *BettingUsecase) ListOpenEvents(ctx context.Context, guildID string) ([]*domain.BettingEvent, error) {
	return uc.betRepo.ListOpenEvents(ctx, guildID)
}

// Odds returns the current multiplier per target.
func (uc *BettingUsecase) Odds(ctx context.Context, eventID int64) (map[string]decimal.Decimal, error) {
	event, err := uc.betRepo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	pools, err := uc.betRepo.Pools(ctx, eventID)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, p := range pools {
		total = total.Add(p)
	}

	odds := make(map[string]decimal.Decimal, len(event.Targets))
	for _, target := range event.Targets {
		odds[target] = domain.CalculateOdds(total, pools[target])
	}
	return odds, nil
}

// PlaceBet stakes on a target. The event row is locked so a concurrent
// settlement cannot slip between the status check and the stake.
func (uc *BettingUsecase) PlaceBet(ctx context.Context, guildID string, eventID, userID int64, target string, amount decimal.Decimal) (*domain.Bet, error) {
	event, err := uc.betRepo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.GuildID != guildID {
		return nil, xerrors.ErrEventNotFound
	}

	asset, err := uc.assetUC.GetBySymbol(ctx, guildID, event.CurrencySymbol)
	if err != nil {
		return nil, err
	}
	amount = asset.Truncate(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("stake must be positive: %w", xerrors.ErrInvalidInput)
	}

	wallet, err := uc.accountUC.EnsureUser(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	treasury, err := uc.accountUC.EnsureTreasury(ctx, guildID)
	if err != nil {
		return nil, err
	}

	tx, err := uc.ledgerRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	locked, err := uc.betRepo.GetEventWithLock(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if locked.Status != domain.BetEventOpen {
		return nil, xerrors.ErrEventClosed
	}
	if !locked.HasTarget(target) {
		return nil, fmt.Errorf("unknown target %q: %w", target, xerrors.ErrInvalidInput)
	}

	req := &domain.TransactionRequest{
		Kind:      domain.KindBetStake,
		CreatedBy: &userID,
		Entries: []domain.EntrySpec{
			{AccountID: wallet.ID, AssetID: asset.ID, Amount: amount.Neg()},
			{AccountID: treasury.ID, AssetID: asset.ID, Amount: amount},
		},
	}
	if _, err := uc.ledgerRepo.ExecuteInTx(ctx, tx, req); err != nil {
		return nil, err
	}

	bet, err := uc.betRepo.InsertBet(ctx, tx, &domain.Bet{
		EventID: eventID,
		UserID:  userID,
		Target:  target,
		Amount:  amount,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit bet: %w", err)
	}

	uc.ledgerUC.invalidateBalances(ctx, req.Entries)
	return bet, nil
}

// CloseEvent stops further stakes without settling.
func (uc *BettingUsecase) CloseEvent(ctx context.Context, guildID string, eventID int64) error {
	return uc.transition(ctx, guildID, eventID, domain.BetEventClosed, nil, domain.BetEventOpen)
}

// Settle pays every bet on the winning target at the final pool odds.
// Payouts round down to whole units.
func (uc *BettingUsecase) Settle(ctx context.Context, guildID string, eventID int64, winningTarget string) error {
	event, err := uc.betRepo.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if event.GuildID != guildID {
		return xerrors.ErrEventNotFound
	}
	if !event.HasTarget(winningTarget) {
		return fmt.Errorf("unknown target %q: %w", winningTarget, xerrors.ErrInvalidInput)
	}

	asset, err := uc.assetUC.GetBySymbol(ctx, guildID, event.CurrencySymbol)
	if err != nil {
		return err
	}

	tx, err := uc.ledgerRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	locked, err := uc.betRepo.GetEventWithLock(ctx, tx, eventID)
	if err != nil {
		return err
	}
	if locked.Status == domain.BetEventSettled || locked.Status == domain.BetEventCanceled {
		return xerrors.ErrEventClosed
	}

	// The bets are read under the event lock: every stake committed
	// before the lock is in the pools, and PlaceBet cannot add one
	// until settlement commits.
	bets, err := uc.betRepo.ListBetsTx(ctx, tx, eventID)
	if err != nil {
		return err
	}
	total := decimal.Zero
	winnerPool := decimal.Zero
	for _, b := range bets {
		total = total.Add(b.Amount)
		if b.Target == winningTarget {
			winnerPool = winnerPool.Add(b.Amount)
		}
	}
	odds := domain.CalculateOdds(total, winnerPool)

	// Build the payout legs and the treasury total in one pass.
	var entries []domain.EntrySpec
	totalPayout := decimal.Zero
	for _, b := range bets {
		if b.Target != winningTarget {
			continue
		}
		payout := domain.PayoutFor(b.Amount, odds)
		if !payout.IsPositive() {
			continue
		}
		wallet, err := uc.accountUC.EnsureUser(ctx, guildID, b.UserID)
		if err != nil {
			return err
		}
		entries = append(entries, domain.EntrySpec{AccountID: wallet.ID, AssetID: asset.ID, Amount: payout})
		totalPayout = totalPayout.Add(payout)
	}

	if totalPayout.IsPositive() {
		treasury, err := uc.ledgerUC.EnsureTreasuryFunds(ctx, guildID, asset, totalPayout)
		if err != nil {
			return err
		}
		req := &domain.TransactionRequest{
			Kind:        domain.KindBetPayout,
			GuildID:     guildID,
			AssetSymbol: asset.Symbol,
			Entries:     append(entries, domain.EntrySpec{AccountID: treasury.ID, AssetID: asset.ID, Amount: totalPayout.Neg()}),
		}
		if _, err := uc.ledgerRepo.ExecuteInTx(ctx, tx, req); err != nil {
			return err
		}
		defer uc.ledgerUC.invalidateBalances(ctx, req.Entries)
	}

	if err := uc.betRepo.UpdateEventStatus(ctx, tx, eventID, domain.BetEventSettled, &winningTarget); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}

	event.Status = domain.BetEventSettled
	event.WinningTarget = &winningTarget
	if uc.pub != nil {
		_ = uc.pub.PublishBetSettled(ctx, event)
	}
	log.WithFields(log.Fields{
		"guild_id": guildID,
		"event_id": eventID,
		"winner":   winningTarget,
		"odds":     odds.String(),
		"payout":   totalPayout.String(),
	}).Info("betting event settled")
	return nil
}

// Cancel refunds every stake in full and closes the event.
func (uc *BettingUsecase) Cancel(ctx context.Context, guildID string, eventID int64) error {
	event, err := uc.betRepo.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if event.GuildID != guildID {
		return xerrors.ErrEventNotFound
	}

	asset, err := uc.assetUC.GetBySymbol(ctx, guildID, event.CurrencySymbol)
	if err != nil {
		return err
	}

	tx, err := uc.ledgerRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	locked, err := uc.betRepo.GetEventWithLock(ctx, tx, eventID)
	if err != nil {
		return err
	}
	if locked.Status == domain.BetEventSettled || locked.Status == domain.BetEventCanceled {
		return xerrors.ErrEventClosed
	}

	// Read the stakes under the event lock so every committed bet gets
	// its refund.
	bets, err := uc.betRepo.ListBetsTx(ctx, tx, eventID)
	if err != nil {
		return err
	}

	var entries []domain.EntrySpec
	totalRefund := decimal.Zero
	for _, b := range bets {
		wallet, err := uc.accountUC.EnsureUser(ctx, guildID, b.UserID)
		if err != nil {
			return err
		}
		entries = append(entries, domain.EntrySpec{AccountID: wallet.ID, AssetID: asset.ID, Amount: b.Amount})
		totalRefund = totalRefund.Add(b.Amount)
	}

	if totalRefund.IsPositive() {
		treasury, err := uc.ledgerUC.EnsureTreasuryFunds(ctx, guildID, asset, totalRefund)
		if err != nil {
			return err
		}
		req := &domain.TransactionRequest{
			Kind:        domain.KindBetRefund,
			GuildID:     guildID,
			AssetSymbol: asset.Symbol,
			Entries:     append(entries, domain.EntrySpec{AccountID: treasury.ID, AssetID: asset.ID, Amount: totalRefund.Neg()}),
		}
		if _, err := uc.ledgerRepo.ExecuteInTx(ctx, tx, req); err != nil {
			return err
		}
		defer uc.ledgerUC.invalidateBalances(ctx, req.Entries)
	}

	if err := uc.betRepo.UpdateEventStatus(ctx, tx, eventID, domain.BetEventCanceled, nil); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return nil
}

func (uc *BettingUsecase) transition(ctx context.Context, guildID string, eventID int64, to domain.BettingEventStatus, winner *string, from ...domain.BettingEventStatus) error {
	tx, err := uc.ledgerRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	locked, err := uc.betRepo.GetEventWithLock(ctx, tx, eventID)
	if err != nil {
		return err
	}
	if locked.GuildID != guildID {
		return xerrors.ErrEventNotFound
	}
	allowed := false
	for _, f := range from {
		if locked.Status == f {
			allowed = true
		}
	}
	if !allowed {
		return xerrors.ErrEventClosed
	}

	if err := uc.betRepo.UpdateEventStatus(ctx, tx, eventID, to, winner); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
