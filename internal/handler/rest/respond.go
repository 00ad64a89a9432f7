package hrest

import (
	"encoding/json"
	"errors"
	"net/http"

	"economy-service/internal/xerrors"

	log "github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.WithError(err).Error("failed to encode response")
		}
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps the error taxonomy onto HTTP statuses. Unknown
// errors become 500s with a generic body so internals do not leak.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, xerrors.ErrDuplicateAsset),
		errors.Is(err, xerrors.ErrDuplicateClaim),
		errors.Is(err, xerrors.ErrDuplicateIdempotencyKey):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, xerrors.ErrAssetNotFound),
		errors.Is(err, xerrors.ErrAccountNotFound),
		errors.Is(err, xerrors.ErrPlanNotFound),
		errors.Is(err, xerrors.ErrEventNotFound),
		errors.Is(err, xerrors.ErrRateNotFound),
		errors.Is(err, xerrors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, xerrors.ErrInsufficientBalance):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, xerrors.ErrUnbalancedTransaction),
		errors.Is(err, xerrors.ErrInvalidInput),
		errors.Is(err, xerrors.ErrInvalidRequest),
		errors.Is(err, xerrors.ErrRewardDisabled),
		errors.Is(err, xerrors.ErrEventClosed):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, xerrors.ErrStorageConflict):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "storage conflict, retry"})
	default:
		log.WithError(err).Error("internal error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return xerrors.ErrInvalidRequest
	}
	return nil
}
