// Package registrar implements the commit-reveal registration state machine
// with length/duration pricing, renewal and payment settlement. It is the
// only writer of new ownership into the registry.
package registrar

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/crypto/sha3"

	"github.com/avetrov/namevault/internal/errs"
	"github.com/avetrov/namevault/internal/model"
	"github.com/avetrov/namevault/internal/namewire"
	"github.com/avetrov/namevault/internal/repository"
)

// Registry is the narrow capability the registrar holds on the label
// registry: privileged registration plus the availability and record reads
// the protocol needs. Nothing else of the registry is visible here.
type Registry interface {
	Register(ctx context.Context, caller uuid.UUID, hash model.LabelHash, owner, resolver uuid.UUID, expiry time.Time) error
	IsAvailable(ctx context.Context, hash model.LabelHash) (bool, error)
	Record(ctx context.Context, hash model.LabelHash) (*model.LabelRecord, error)
}

// Ledger settles registration payments. Collect must be atomic: either the
// payer is debited and both credits (price to beneficiary, refund back to the
// payer) land, or nothing moves.
type Ledger interface {
	Collect(ctx context.Context, payer, beneficiary uuid.UUID, price, refund int64) error
}

// TxRunner scopes a unit of work to one database transaction. Repository
// calls made with the context passed to fn join it, so an error from fn
// discards every write attempted inside.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RegisterRequest carries the reveal parameters. All of them plus the secret
// are bound by the commitment hash.
type RegisterRequest struct {
	Label    string
	Owner    uuid.UUID
	Resolver uuid.UUID
	Duration time.Duration
	Secret   []byte
	Payer    uuid.UUID
	Payment  int64
}

// Service is the commit-reveal registrar.
type Service struct {
	commits     repository.CommitmentRepository
	config      repository.PricingRepository
	registry    Registry
	ledger      Ledger
	tx          TxRunner
	principal   uuid.UUID // holds the registrar capability on the registry
	beneficiary uuid.UUID // rent recipient
	admin       uuid.UUID
	now         func() time.Time
}

// Option customizes Service construction.
type Option func(*Service)

// WithClock injects the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the registrar.
func New(
	commits repository.CommitmentRepository,
	config repository.PricingRepository,
	reg Registry,
	ledger Ledger,
	tx TxRunner,
	principal, beneficiary, admin uuid.UUID,
	opts ...Option,
) *Service {
	s := &Service{
		commits:     commits,
		config:      config,
		registry:    reg,
		ledger:      ledger,
		tx:          tx,
		principal:   principal,
		beneficiary: beneficiary,
		admin:       admin,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// MakeCommitment computes the commitment hash binding every reveal parameter
// plus the caller-chosen secret. An observer of a pending reveal cannot
// reconstruct a valid commitment for a different owner: substituting any
// field changes the hash.
func MakeCommitment(label string, owner, resolver uuid.UUID, duration time.Duration, secret []byte) [32]byte {
	var h [32]byte
	d := sha3.NewLegacyKeccak256()
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(label)))
	d.Write(n[:])
	d.Write([]byte(label))
	d.Write(owner.Bytes())
	d.Write(resolver.Bytes())
	binary.BigEndian.PutUint64(n[:], uint64(duration/time.Second))
	d.Write(n[:])
	d.Write(secret)
	d.Sum(h[:0])
	return h
}

// Commit records a commitment hash with the current time. An identical
// pending commitment is rejected.
func (s *Service) Commit(ctx context.Context, hash [32]byte) error {
	err := s.commits.Create(ctx, &model.Commitment{Hash: hash, CreatedAt: s.now()})
	if errors.Is(err, errs.ErrAlreadyExists) {
		return errs.ErrCommitmentExists
	}
	return err
}

// Register reveals the parameters of a prior commitment and, if every check
// passes, consumes the commitment and writes the new ownership into the
// registry with expiry = now + duration.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (time.Time, error) {
	hash := MakeCommitment(req.Label, req.Owner, req.Resolver, req.Duration, req.Secret)
	c, err := s.commits.Get(ctx, hash)
	if errors.Is(err, errs.ErrNotFound) {
		return time.Time{}, &errs.CommitmentNotFoundError{Hash: hash}
	}
	if err != nil {
		return time.Time{}, err
	}

	params, err := s.config.Params(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("load params: %w", err)
	}
	now := s.now()
	age := now.Sub(c.CreatedAt)
	if age < params.MinCommitmentAge {
		return time.Time{}, errs.ErrCommitmentTooNew
	}
	if age > params.MaxCommitmentAge {
		return time.Time{}, errs.ErrCommitmentTooOld
	}
	if l := len(req.Label); l < params.MinLabelLength || l > params.MaxLabelLength {
		return time.Time{}, fmt.Errorf("label %q: %w", req.Label, errs.ErrLabelLength)
	}
	if req.Duration <= 0 {
		return time.Time{}, fmt.Errorf("non-positive duration %s", req.Duration)
	}

	labelHash := namewire.HashLabel(req.Label)
	avail, err := s.registry.IsAvailable(ctx, labelHash)
	if err != nil {
		return time.Time{}, err
	}
	if !avail {
		return time.Time{}, fmt.Errorf("label %q: %w", req.Label, errs.ErrLabelUnavailable)
	}

	price, err := s.price(ctx, req.Label, req.Duration)
	if err != nil {
		return time.Time{}, err
	}
	if req.Payment < price {
		return time.Time{}, fmt.Errorf("need %d, got %d: %w", price, req.Payment, errs.ErrInsufficientPayment)
	}
	// One unit of work: a failure anywhere leaves the commitment intact and
	// the payer undebited.
	expiry := now.Add(req.Duration)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.commits.Delete(ctx, hash); err != nil {
			return fmt.Errorf("consume commitment: %w", err)
		}
		if err := s.ledger.Collect(ctx, req.Payer, s.beneficiary, price, req.Payment-price); err != nil {
			return fmt.Errorf("collect payment: %w", err)
		}
		return s.registry.Register(ctx, s.principal, labelHash, req.Owner, req.Resolver, expiry)
	})
	if err != nil {
		return time.Time{}, err
	}
	return expiry, nil
}

// Renew extends a live (or in-grace) lease by duration. It is payment-gated,
// not ownership-gated: anyone may pay another period.
func (s *Service) Renew(ctx context.Context, label string, duration time.Duration, payer uuid.UUID, payment int64) (time.Time, error) {
	if duration <= 0 {
		return time.Time{}, fmt.Errorf("non-positive duration %s", duration)
	}
	rec, err := s.registry.Record(ctx, namewire.HashLabel(label))
	if errors.Is(err, errs.ErrNotFound) {
		return time.Time{}, fmt.Errorf("label %q: %w", label, errs.ErrNotFound)
	}
	if err != nil {
		return time.Time{}, err
	}

	params, err := s.config.Params(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("load params: %w", err)
	}
	if s.now().After(rec.Expiry.Add(params.GracePeriod)) {
		return time.Time{}, fmt.Errorf("label %q: %w", label, errs.ErrLabelExpired)
	}

	price, err := s.price(ctx, label, duration)
	if err != nil {
		return time.Time{}, err
	}
	if payment < price {
		return time.Time{}, fmt.Errorf("need %d, got %d: %w", price, payment, errs.ErrInsufficientPayment)
	}
	expiry := rec.Expiry.Add(duration)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ledger.Collect(ctx, payer, s.beneficiary, price, payment-price); err != nil {
			return fmt.Errorf("collect payment: %w", err)
		}
		return s.registry.Register(ctx, s.principal, rec.Hash, rec.Owner, rec.Resolver, expiry)
	})
	if err != nil {
		return time.Time{}, err
	}
	return expiry, nil
}

// RentPrice is the pure pricing read clients use to pre-compute payment.
func (s *Service) RentPrice(ctx context.Context, label string, duration time.Duration) (int64, error) {
	if duration <= 0 {
		return 0, fmt.Errorf("non-positive duration %s", duration)
	}
	return s.price(ctx, label, duration)
}

func (s *Service) price(ctx context.Context, label string, duration time.Duration) (int64, error) {
	table, err := s.config.Prices(ctx)
	if err != nil {
		return 0, fmt.Errorf("load prices: %w", err)
	}
	perSec, err := table.PricePerSecond(len(label))
	if err != nil {
		return 0, err
	}
	secs := int64(duration / time.Second)
	if perSec > 0 && secs > math.MaxInt64/perSec {
		return 0, fmt.Errorf("duration %s: %w", duration, errs.ErrPriceOverflow)
	}
	return perSec * secs, nil
}

// SetParams replaces the registration parameters. Admin only.
func (s *Service) SetParams(ctx context.Context, caller uuid.UUID, p model.Params) error {
	if caller != s.admin {
		return fmt.Errorf("set params: %w", errs.ErrUnauthorized)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("set params: %w", err)
	}
	return s.config.SetParams(ctx, p)
}

// SetPrices replaces the per-length price table. Admin only.
func (s *Service) SetPrices(ctx context.Context, caller uuid.UUID, t model.PriceTable) error {
	if caller != s.admin {
		return fmt.Errorf("set prices: %w", errs.ErrUnauthorized)
	}
	if len(t) == 0 {
		return fmt.Errorf("set prices: empty table")
	}
	for i, p := range t {
		if p < 0 {
			return fmt.Errorf("set prices: negative price at length %d", i+1)
		}
	}
	return s.config.SetPrices(ctx, t)
}
