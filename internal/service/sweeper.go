package service

import (
	"context"
	"time"

	publisher "economy-service/internal/pub"
	"economy-service/internal/usecase"

	log "github.com/sirupsen/logrus"
)

const (
	roleExpiryInterval = 5 * time.Minute
	allowanceInterval  = time.Hour
	vcPayoutInterval   = time.Minute
	vcPruneInterval    = 24 * time.Hour

	vcRetentionDays = 7
	expiryBatchSize = 100
)

// MemberSource resolves which users currently hold a role. The chat
// gateway in front of this service implements it; tests use a stub.
type MemberSource interface {
	RoleMembers(ctx context.Context, guildID, roleID string) ([]int64, error)
}

// Sweeper runs the periodic jobs: expiring purchased roles, paying
// monthly allowances, accruing voice earnings and pruning old daily
// totals. Each job ticks on its own goroutine until the context ends.
type Sweeper struct {
	planUC      *usecase.RolePlanUsecase
	allowanceUC *usecase.AllowanceUsecase
	vcUC        *usecase.VCEarningUsecase
	members     MemberSource
	pub         *publisher.TransactionEventPublisher
}

func NewSweeper(
	planUC *usecase.RolePlanUsecase,
	allowanceUC *usecase.AllowanceUsecase,
	vcUC *usecase.VCEarningUsecase,
	members MemberSource,
	pub *publisher.TransactionEventPublisher,
) *Sweeper {
	return &Sweeper{
		planUC:      planUC,
		allowanceUC: allowanceUC,
		vcUC:        vcUC,
		members:     members,
		pub:         pub,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	go s.loop(ctx, roleExpiryInterval, s.sweepExpiredRoles)
	go s.loop(ctx, allowanceInterval, s.sweepAllowances)
	go s.loop(ctx, vcPayoutInterval, s.sweepVoicePayouts)
	go s.loop(ctx, vcPruneInterval, s.pruneVoiceTotals)
	log.Info("sweeper started")
}

func (s *Sweeper) loop(ctx context.Context, interval time.Duration, job func(ctx context.Context, now time.Time)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			job(ctx, now)
		}
	}
}

// sweepExpiredRoles removes grants past their cutoff. Each removal is
// its own short transaction; a failed one is retried next tick.
func (s *Sweeper) sweepExpiredRoles(ctx context.Context, now time.Time) {
	expired, err := s.planUC.ExpiredPurchases(ctx, now, expiryBatchSize)
	if err != nil {
		log.WithError(err).Error("role expiry sweep failed")
		return
	}
	for _, p := range expired {
		if err := s.planUC.RemovePurchase(ctx, p.ID); err != nil {
			log.WithFields(log.Fields{"purchase_id": p.ID}).WithError(err).Warn("failed to remove expired role")
			continue
		}
		if s.pub != nil {
			_ = s.pub.PublishRoleExpired(ctx, p)
		}
	}
	if len(expired) > 0 {
		log.WithField("count", len(expired)).Info("expired roles removed")
	}
}

// sweepAllowances pays every due allowance to every current role holder.
// The per-period history row makes repeat visits within the same month
// no-ops.
func (s *Sweeper) sweepAllowances(ctx context.Context, now time.Time) {
	if s.members == nil {
		return
	}
	allowances, err := s.allowanceUC.ListEnabled(ctx)
	if err != nil {
		log.WithError(err).Error("allowance sweep failed")
		return
	}
	for _, a := range allowances {
		if !a.DueOn(now) {
			continue
		}
		userIDs, err := s.members.RoleMembers(ctx, a.GuildID, a.RoleID)
		if err != nil {
			log.WithFields(log.Fields{"guild_id": a.GuildID, "role_id": a.RoleID}).WithError(err).Warn("failed to resolve role members")
			continue
		}
		for _, userID := range userIDs {
			if _, err := s.allowanceUC.PayMember(ctx, a, userID, now); err != nil && !isDuplicate(err) {
				log.WithFields(log.Fields{
					"guild_id": a.GuildID,
					"user_id":  userID,
				}).WithError(err).Warn("allowance payment failed")
			}
		}
	}
}

func (s *Sweeper) sweepVoicePayouts(ctx context.Context, now time.Time) {
	if err := s.vcUC.PayoutTick(ctx, now); err != nil {
		log.WithError(err).Error("vc payout tick failed")
	}
}

func (s *Sweeper) pruneVoiceTotals(ctx context.Context, now time.Time) {
	pruned, err := s.vcUC.PruneDailyEarnings(ctx, now, vcRetentionDays)
	if err != nil {
		log.WithError(err).Error("vc prune failed")
		return
	}
	if pruned > 0 {
		log.WithField("rows", pruned).Info("pruned old vc daily totals")
	}
}
