package service

import (
	"errors"

	"economy-service/internal/xerrors"
)

func isDuplicate(err error) bool {
	return errors.Is(err, xerrors.ErrDuplicateClaim) || errors.Is(err, xerrors.ErrDuplicateIdempotencyKey)
}
