package resolver

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avetrov/namevault/internal/model"
)

// SingleNameResolver dedicates a credential resolver instance to exactly one
// registered name: every entry point drops the label-hash parameter and all
// operations, including Resolve, are scoped to the fixed label regardless of
// the name supplied in the query.
type SingleNameResolver struct {
	inner *CredentialResolver
	hash  model.LabelHash
}

// NewSingleNameResolver fixes an instance to one label hash.
func NewSingleNameResolver(id uuid.UUID, store RecordStore, hash model.LabelHash) *SingleNameResolver {
	return &SingleNameResolver{inner: NewCredentialResolver(id, store), hash: hash}
}

// IsAuthorized reports whether caller may mutate the records.
func (s *SingleNameResolver) IsAuthorized(ctx context.Context, caller uuid.UUID) (bool, error) {
	return s.inner.IsAuthorized(ctx, s.hash, caller)
}

// SetAddr stores the address record.
func (s *SingleNameResolver) SetAddr(ctx context.Context, caller, addr uuid.UUID) error {
	return s.inner.SetAddr(ctx, caller, s.hash, addr)
}

// Addr returns the address record.
func (s *SingleNameResolver) Addr(ctx context.Context) (uuid.UUID, error) {
	return s.inner.Addr(ctx, s.hash)
}

// SetText stores a text record.
func (s *SingleNameResolver) SetText(ctx context.Context, caller uuid.UUID, key, value string) error {
	return s.inner.SetText(ctx, caller, s.hash, key, value)
}

// Text returns a text record.
func (s *SingleNameResolver) Text(ctx context.Context, key string) (string, error) {
	return s.inner.Text(ctx, s.hash, key)
}

// SetContenthash stores the content-hash blob.
func (s *SingleNameResolver) SetContenthash(ctx context.Context, caller uuid.UUID, v []byte) error {
	return s.inner.SetContenthash(ctx, caller, s.hash, v)
}

// Contenthash returns the content-hash blob.
func (s *SingleNameResolver) Contenthash(ctx context.Context) ([]byte, error) {
	return s.inner.Contenthash(ctx, s.hash)
}

// SetData stores an arbitrary-key binary record.
func (s *SingleNameResolver) SetData(ctx context.Context, caller uuid.UUID, key string, v []byte) error {
	return s.inner.SetData(ctx, caller, s.hash, key, v)
}

// Data returns an arbitrary-key binary record.
func (s *SingleNameResolver) Data(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Data(ctx, s.hash, key)
}

// SetLabelOwner assigns the designated owner.
func (s *SingleNameResolver) SetLabelOwner(ctx context.Context, caller, owner uuid.UUID) error {
	return s.inner.SetLabelOwner(ctx, caller, s.hash, owner)
}

// SetOperator toggles delegate approval for the caller's labels.
func (s *SingleNameResolver) SetOperator(ctx context.Context, caller, delegate uuid.UUID, approved bool) error {
	return s.inner.SetOperator(ctx, caller, delegate, approved)
}

// Resolve implements Resolver against the fixed label.
func (s *SingleNameResolver) Resolve(ctx context.Context, _ []byte, query []byte) ([]byte, error) {
	q, err := DecodeQuery(query)
	if err != nil {
		return nil, err
	}
	return s.inner.answer(ctx, s.hash, q)
}
