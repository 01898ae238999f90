package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avetrov/namevault/internal/errs"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps sentinel errors onto HTTP statuses. The not-found branch
// keeps the full error text so a failed reveal reports the recomputed
// commitment hash to the caller.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		writeJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, errs.ErrRateLimited):
		writeJSONError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrResolutionNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrAlreadyExists), errors.Is(err, errs.ErrCommitmentExists),
		errors.Is(err, errs.ErrLabelUnavailable):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrInsufficientPayment), errors.Is(err, errs.ErrInsufficientFunds):
		writeJSONError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, errs.ErrCommitmentTooNew), errors.Is(err, errs.ErrCommitmentTooOld),
		errors.Is(err, errs.ErrLabelLength), errors.Is(err, errs.ErrLabelExpired):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal")
	}
}
