// Package resolver implements the delegated resolution protocol and the
// credential resolver that answers it: a router forwarding queries to the
// resolver the registry names for a label, and a per-label record store
// behind an owner/operator authorization model.
package resolver

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avetrov/namevault/internal/errs"
	"github.com/avetrov/namevault/internal/repository"
)

// Resolver answers a resolution query for a wire-encoded name. The query
// payload is opaque to everything but the leaf resolver.
type Resolver interface {
	Resolve(ctx context.Context, name []byte, query []byte) ([]byte, error)
}

// Directory maps resolver addresses to in-process Resolver implementations.
type Directory interface {
	// Lookup returns the resolver behind an address; errs.ErrNotFound if the
	// address is unknown.
	Lookup(ctx context.Context, id uuid.UUID) (Resolver, error)
}

// StaticDirectory is a fixed address table (tests, single-binary wiring).
type StaticDirectory map[uuid.UUID]Resolver

// Lookup implements Directory.
func (d StaticDirectory) Lookup(_ context.Context, id uuid.UUID) (Resolver, error) {
	r, ok := d[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return r, nil
}

// StoreDirectory resolves addresses against the resolver-instance store: any
// created credential resolver instance is addressable.
type StoreDirectory struct {
	store repository.ResolverRecordRepository
}

// NewStoreDirectory constructs a store-backed directory.
func NewStoreDirectory(store repository.ResolverRecordRepository) *StoreDirectory {
	return &StoreDirectory{store: store}
}

// Lookup implements Directory.
func (d *StoreDirectory) Lookup(ctx context.Context, id uuid.UUID) (Resolver, error) {
	if _, err := d.store.InstanceOwner(ctx, id); err != nil {
		return nil, err
	}
	return NewCredentialResolver(id, d.store), nil
}

// Factory produces fresh resolver instances owned by a given principal,
// optionally at a caller-predictable address. Cheap-deployment mechanics
// live behind this boundary.
type Factory interface {
	Create(ctx context.Context, owner uuid.UUID) (uuid.UUID, error)
	CreateDeterministic(ctx context.Context, owner uuid.UUID, salt [32]byte) (uuid.UUID, error)
	PredictAddress(salt [32]byte) uuid.UUID
	IsClone(ctx context.Context, id uuid.UUID) bool
}

// factoryNamespace scopes deterministic addresses derived from salts.
var factoryNamespace = uuid.Must(uuid.FromString("8e51b73e-6a4c-5f2e-9d01-4c7aa1e0b6d4"))

// StoreFactory is a minimal Factory over the resolver-instance store.
type StoreFactory struct {
	store repository.ResolverRecordRepository
}

// NewStoreFactory constructs a store-backed factory.
func NewStoreFactory(store repository.ResolverRecordRepository) *StoreFactory {
	return &StoreFactory{store: store}
}

// Create registers a fresh resolver instance under a random address.
func (f *StoreFactory) Create(ctx context.Context, owner uuid.UUID) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	if err := f.store.CreateInstance(ctx, id, owner); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// CreateDeterministic registers an instance at the salt-derived address.
func (f *StoreFactory) CreateDeterministic(ctx context.Context, owner uuid.UUID, salt [32]byte) (uuid.UUID, error) {
	id := f.PredictAddress(salt)
	if err := f.store.CreateInstance(ctx, id, owner); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// PredictAddress derives the address a salt would deploy to.
func (f *StoreFactory) PredictAddress(salt [32]byte) uuid.UUID {
	return uuid.NewV5(factoryNamespace, string(salt[:]))
}

// IsClone reports whether an address belongs to an instance this store created.
func (f *StoreFactory) IsClone(ctx context.Context, id uuid.UUID) bool {
	_, err := f.store.InstanceOwner(ctx, id)
	return err == nil
}
