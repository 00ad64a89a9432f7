package domain

import "errors"

// Structural validation errors for transaction requests.
var (
	ErrMissingKind     = errors.New("transaction kind is required")
	ErrNoEntries       = errors.New("at least one entry is required")
	ErrIncompleteEntry = errors.New("entry account and asset are required")
	ErrIncompleteAsset = errors.New("asset guild, symbol and name are required")
	ErrBadDecimals     = errors.New("asset decimals must be between 0 and 8")
)
