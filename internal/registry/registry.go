// Package registry holds the authoritative map of label hash to owner,
// resolver and expiry, gated by the registrar capability.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/avetrov/namevault/internal/errs"
	"github.com/avetrov/namevault/internal/model"
	"github.com/avetrov/namevault/internal/namewire"
	"github.com/avetrov/namevault/internal/repository"
)

// ExternalLedger is an external hierarchical authority that may delegate a
// subtree to this registry. When configured, successful registrations are
// mirrored into it; mirror failures fail the registration.
type ExternalLedger interface {
	// SetSubnodeOwner records the owner of parent's child derived from the
	// label hash and returns the child node.
	SetSubnodeOwner(ctx context.Context, parent model.Node, label model.LabelHash, owner uuid.UUID) (model.Node, error)
	// SetOwner reassigns a node's owner.
	SetOwner(ctx context.Context, node model.Node, owner uuid.UUID) error
	// SetResolver records a node's resolver.
	SetResolver(ctx context.Context, node model.Node, resolver uuid.UUID) error
	// Owner reads a node's owner.
	Owner(ctx context.Context, node model.Node) (uuid.UUID, error)
	// Resolver reads a node's resolver.
	Resolver(ctx context.Context, node model.Node) (uuid.UUID, error)
}

// Service is the label registry. Mutation requires the registrar capability;
// reads return raw stored values with no expiry filtering; callers needing
// lease-validity semantics must check Expiry themselves.
type Service struct {
	labels   repository.LabelRepository
	roles    repository.RoleRepository
	admin    uuid.UUID
	ledger   ExternalLedger // optional
	rootNode model.Node     // subtree delegated by the external ledger
	now      func() time.Time
}

// Option customizes Service construction.
type Option func(*Service)

// WithExternalLedger mirrors registrations into an external hierarchical
// authority under the given subtree node.
func WithExternalLedger(l ExternalLedger, root model.Node) Option {
	return func(s *Service) { s.ledger = l; s.rootNode = root }
}

// WithClock injects the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the registry with its administrative principal.
func New(labels repository.LabelRepository, roles repository.RoleRepository, admin uuid.UUID, opts ...Option) *Service {
	s := &Service{labels: labels, roles: roles, admin: admin, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register overwrites the label record unconditionally. The caller must hold
// the registrar capability and is trusted to have validated availability.
func (s *Service) Register(ctx context.Context, caller uuid.UUID, hash model.LabelHash, owner, resolver uuid.UUID, expiry time.Time) error {
	ok, err := s.roles.Has(ctx, caller)
	if err != nil {
		return fmt.Errorf("registrar role check: %w", err)
	}
	if !ok {
		return fmt.Errorf("register label: %w", errs.ErrUnauthorized)
	}

	// Local write first: callers run Register inside a transaction, so a
	// mirror failure below discards it instead of leaving the two stores
	// divergent.
	if err := s.labels.Put(ctx, &model.LabelRecord{Hash: hash, Owner: owner, Resolver: resolver, Expiry: expiry}); err != nil {
		return err
	}

	if s.ledger != nil {
		node, err := s.ledger.SetSubnodeOwner(ctx, s.rootNode, hash, owner)
		if err != nil {
			return fmt.Errorf("mirror subnode owner: %w", err)
		}
		if err := s.ledger.SetResolver(ctx, node, resolver); err != nil {
			return fmt.Errorf("mirror resolver: %w", err)
		}
	}
	return nil
}

// Record returns the raw stored record; errs.ErrNotFound if none was ever
// written. Expired records are returned as-is.
func (s *Service) Record(ctx context.Context, hash model.LabelHash) (*model.LabelRecord, error) {
	return s.labels.Get(ctx, hash)
}

// Owner returns the stored owner, or uuid.Nil for an unknown label.
func (s *Service) Owner(ctx context.Context, hash model.LabelHash) (uuid.UUID, error) {
	rec, err := s.labels.Get(ctx, hash)
	if errors.Is(err, errs.ErrNotFound) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	return rec.Owner, nil
}

// Resolver returns the stored resolver, or uuid.Nil for an unknown label.
// Expiry is deliberately not consulted: the read path tolerates stale data.
func (s *Service) Resolver(ctx context.Context, hash model.LabelHash) (uuid.UUID, error) {
	rec, err := s.labels.Get(ctx, hash)
	if errors.Is(err, errs.ErrNotFound) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	return rec.Resolver, nil
}

// Expiry returns the stored expiry, zero for an unknown label.
func (s *Service) Expiry(ctx context.Context, hash model.LabelHash) (time.Time, error) {
	rec, err := s.labels.Get(ctx, hash)
	if errors.Is(err, errs.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return rec.Expiry, nil
}

// IsAvailable reports whether a fresh registration may take the label: no
// record exists, or the stored expiry has passed.
func (s *Service) IsAvailable(ctx context.Context, hash model.LabelHash) (bool, error) {
	rec, err := s.labels.Get(ctx, hash)
	if errors.Is(err, errs.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return rec.Expired(s.now()), nil
}

// GrantRegistrar gives a principal the registrar capability. Admin only.
func (s *Service) GrantRegistrar(ctx context.Context, caller, principal uuid.UUID) error {
	if caller != s.admin {
		return fmt.Errorf("grant registrar: %w", errs.ErrUnauthorized)
	}
	return s.roles.Grant(ctx, principal)
}

// RevokeRegistrar removes a principal's registrar capability. Admin only.
func (s *Service) RevokeRegistrar(ctx context.Context, caller, principal uuid.UUID) error {
	if caller != s.admin {
		return fmt.Errorf("revoke registrar: %w", errs.ErrUnauthorized)
	}
	return s.roles.Revoke(ctx, principal)
}

// Subnode derives the external-ledger node a label would be mirrored to.
func (s *Service) Subnode(hash model.LabelHash) model.Node {
	return namewire.Subnode(s.rootNode, hash)
}
