package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ParsePGErrorCode extracts the SQLSTATE code from a postgres error.
func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

// IsUniqueViolation reports whether err is a postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	return ParsePGErrorCode(err) == "23505"
}

// IsSerializationFailure reports whether err is a transient isolation
// failure (serialization failure or deadlock) that the caller may retry.
func IsSerializationFailure(err error) bool {
	code := ParsePGErrorCode(err)
	return code == "40001" || code == "40P01"
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input provided")
)

// Asset registry
var (
	ErrDuplicateAsset = errors.New("asset already exists")
	ErrAssetNotFound  = errors.New("asset not found")
)

// Account directory
var (
	ErrAccountNotFound = errors.New("account not found")
)

// Ledger core
var (
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrUnbalancedTransaction   = errors.New("transaction entries do not net to zero")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrStorageConflict         = errors.New("storage conflict, retry exhausted")
)

// Subledgers
var (
	ErrDuplicateClaim    = errors.New("reward already claimed")
	ErrRewardDisabled    = errors.New("reward config disabled")
	ErrClaimLimitReached = errors.New("reward claim limit reached")
	ErrEventClosed       = errors.New("betting event is closed")
	ErrEventNotFound     = errors.New("betting event not found")
	ErrPlanNotFound      = errors.New("role plan not found")
	ErrRateNotFound      = errors.New("earning rate not configured")
)
