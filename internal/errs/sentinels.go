// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrLabelUnavailable indicates the label is currently owned and not expired.
	ErrLabelUnavailable = errors.New("label unavailable")

	// ErrLabelLength indicates the label length is outside the registrable range.
	ErrLabelLength = errors.New("label length out of range")

	// ErrCommitmentExists indicates an identical commitment is already pending.
	ErrCommitmentExists = errors.New("commitment already exists")

	// ErrCommitmentTooNew indicates the reveal arrived before the minimum commitment age.
	ErrCommitmentTooNew = errors.New("commitment too new")

	// ErrCommitmentTooOld indicates the reveal arrived after the maximum commitment age.
	ErrCommitmentTooOld = errors.New("commitment too old")

	// ErrInsufficientPayment indicates the supplied payment does not cover the rent.
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrInsufficientFunds indicates the payer's balance cannot cover the payment.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrLabelExpired indicates the label's lease (plus grace) has lapsed.
	ErrLabelExpired = errors.New("label expired")

	// ErrPriceOverflow indicates the rent for the requested duration does not
	// fit the ledger's integer range.
	ErrPriceOverflow = errors.New("price overflow")

	// ErrResolutionNotFound indicates no resolver is set for the queried name.
	ErrResolutionNotFound = errors.New("resolution not found")
)

// CommitmentNotFoundError reports a reveal whose recomputed commitment hash
// was never committed. The hash is carried so clients can compare it against
// the one they submitted.
type CommitmentNotFoundError struct {
	Hash [32]byte
}

func (e *CommitmentNotFoundError) Error() string {
	return fmt.Sprintf("commitment not found: %s", hex.EncodeToString(e.Hash[:]))
}

// Is makes errors.Is(err, ErrNotFound) match.
func (e *CommitmentNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
