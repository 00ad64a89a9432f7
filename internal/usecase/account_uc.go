package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"economy-service/internal/domain"
	"economy-service/internal/repository"
	"economy-service/internal/xerrors"

	"github.com/redis/go-redis/v9"
)

type AccountUsecase struct {
	accountRepo repository.AccountRepository
	redisClient *redis.Client
}

func NewAccountUsecase(accountRepo repository.AccountRepository, redisClient *redis.Client) *AccountUsecase {
	return &AccountUsecase{
		accountRepo: accountRepo,
		redisClient: redisClient,
	}
}

// EnsureUser returns the user's wallet account, creating it on first use.
// Concurrent calls for the same user all resolve to the same row.
func (uc *AccountUsecase) EnsureUser(ctx context.Context, guildID string, userID int64) (*domain.Account, error) {
	cacheKey := fmt.Sprintf("account:name:%s", domain.UserAccountName(guildID, userID))

	if uc.redisClient != nil {
		if val, err := uc.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var account domain.Account
			if jsonErr := json.Unmarshal([]byte(val), &account); jsonErr == nil {
				return &account, nil
			}
		}
	}

	account, err := uc.accountRepo.EnsureUser(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}

	uc.cache(ctx, cacheKey, account)
	return account, nil
}

// EnsureTreasury returns the guild treasury, creating it on first use.
func (uc *AccountUsecase) EnsureTreasury(ctx context.Context, guildID string) (*domain.Account, error) {
	return uc.ensureSystem(ctx, guildID, domain.AccountTypeTreasury)
}

// EnsureBurn returns the guild burn account, creating it on first use.
func (uc *AccountUsecase) EnsureBurn(ctx context.Context, guildID string) (*domain.Account, error) {
	return uc.ensureSystem(ctx, guildID, domain.AccountTypeBurn)
}

func (uc *AccountUsecase) ensureSystem(ctx context.Context, guildID string, accType domain.AccountType) (*domain.Account, error) {
	var name string
	if accType == domain.AccountTypeTreasury {
		name = domain.TreasuryAccountName(guildID)
	} else {
		name = domain.BurnAccountName(guildID)
	}
	cacheKey := fmt.Sprintf("account:name:%s", name)

	if uc.redisClient != nil {
		if val, err := uc.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var account domain.Account
			if jsonErr := json.Unmarshal([]byte(val), &account); jsonErr == nil {
				return &account, nil
			}
		}
	}

	account, err := uc.accountRepo.EnsureSystem(ctx, guildID, accType)
	if err != nil {
		return nil, err
	}

	uc.cache(ctx, cacheKey, account)
	return account, nil
}

// AccountIDByName resolves a logical name ("treasury", "burn", or a
// numeric user id) to the guild's account without creating anything.
// Returns ErrAccountNotFound when the guild was never initialized.
func (uc *AccountUsecase) AccountIDByName(ctx context.Context, guildID, logical string) (*domain.Account, error) {
	var name string
	switch logical {
	case "treasury":
		name = domain.TreasuryAccountName(guildID)
	case "burn":
		name = domain.BurnAccountName(guildID)
	default:
		userID, err := strconv.ParseInt(logical, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unknown account name %q: %w", logical, xerrors.ErrInvalidInput)
		}
		name = domain.UserAccountName(guildID, userID)
	}
	return uc.accountRepo.GetByName(ctx, name)
}

func (uc *AccountUsecase) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

func (uc *AccountUsecase) ListByGuild(ctx context.Context, guildID string) ([]*domain.Account, error) {
	return uc.accountRepo.ListByGuild(ctx, guildID)
}

func (uc *AccountUsecase) cache(ctx context.Context, key string, account *domain.Account) {
	if uc.redisClient == nil {
		return
	}
	if data, err := json.Marshal(account); err == nil {
		// Accounts are immutable once created
		_ = uc.redisClient.Set(ctx, key, data, 30*time.Minute).Err()
	}
}
