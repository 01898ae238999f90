package resolver

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/avetrov/namevault/internal/errs"
	"github.com/avetrov/namevault/internal/model"
	"github.com/avetrov/namevault/internal/namewire"
)

// CredentialResolver is a generic, access-controlled key/value record store
// answering resolution queries for labels. Instances are identified by their
// address; two instances never share records even for the same label text.
//
// Write access to a label's records requires the caller to be the label's
// designated owner, an operator approved by that owner, or the instance's
// contract-wide owner. Reads are open and report absence as empty values.
type CredentialResolver struct {
	id    uuid.UUID
	store RecordStore
}

// RecordStore is the persistence the resolver runs on. It matches
// repository.ResolverRecordRepository.
type RecordStore interface {
	InstanceOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	SetInstanceOwner(ctx context.Context, id, owner uuid.UUID) error
	SetRecord(ctx context.Context, id uuid.UUID, hash model.LabelHash, typ model.RecordType, key string, value []byte) error
	Record(ctx context.Context, id uuid.UUID, hash model.LabelHash, typ model.RecordType, key string) ([]byte, error)
	SetLabelOwner(ctx context.Context, id uuid.UUID, hash model.LabelHash, owner uuid.UUID) error
	LabelOwner(ctx context.Context, id uuid.UUID, hash model.LabelHash) (uuid.UUID, error)
	SetOperator(ctx context.Context, id, owner, delegate uuid.UUID, approved bool) error
	IsOperator(ctx context.Context, id, owner, delegate uuid.UUID) (bool, error)
}

// NewCredentialResolver binds an instance address to its store.
func NewCredentialResolver(id uuid.UUID, store RecordStore) *CredentialResolver {
	return &CredentialResolver{id: id, store: store}
}

// ID returns the instance address.
func (c *CredentialResolver) ID() uuid.UUID { return c.id }

// IsAuthorized reports whether caller may mutate the label's records.
func (c *CredentialResolver) IsAuthorized(ctx context.Context, hash model.LabelHash, caller uuid.UUID) (bool, error) {
	owner, err := c.store.InstanceOwner(ctx, c.id)
	if err != nil {
		return false, err
	}
	if caller == owner {
		return true, nil
	}
	labelOwner, err := c.store.LabelOwner(ctx, c.id, hash)
	if err != nil {
		return false, err
	}
	if labelOwner == uuid.Nil {
		return false, nil
	}
	if caller == labelOwner {
		return true, nil
	}
	return c.store.IsOperator(ctx, c.id, labelOwner, caller)
}

func (c *CredentialResolver) requireAuth(ctx context.Context, hash model.LabelHash, caller uuid.UUID) error {
	ok, err := c.IsAuthorized(ctx, hash, caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("label %s: %w", hash.Hex(), errs.ErrUnauthorized)
	}
	return nil
}

// SetAddr stores the label's address record.
func (c *CredentialResolver) SetAddr(ctx context.Context, caller uuid.UUID, hash model.LabelHash, addr uuid.UUID) error {
	if err := c.requireAuth(ctx, hash, caller); err != nil {
		return err
	}
	return c.store.SetRecord(ctx, c.id, hash, model.RecordAddr, "", addr.Bytes())
}

// Addr returns the label's address record, uuid.Nil when unset.
func (c *CredentialResolver) Addr(ctx context.Context, hash model.LabelHash) (uuid.UUID, error) {
	v, err := c.store.Record(ctx, c.id, hash, model.RecordAddr, "")
	if err != nil {
		return uuid.Nil, err
	}
	if len(v) == 0 {
		return uuid.Nil, nil
	}
	return uuid.FromBytes(v)
}

// SetText stores a text record under key.
func (c *CredentialResolver) SetText(ctx context.Context, caller uuid.UUID, hash model.LabelHash, key, value string) error {
	if err := c.requireAuth(ctx, hash, caller); err != nil {
		return err
	}
	return c.store.SetRecord(ctx, c.id, hash, model.RecordText, key, []byte(value))
}

// Text returns a text record, "" when unset.
func (c *CredentialResolver) Text(ctx context.Context, hash model.LabelHash, key string) (string, error) {
	v, err := c.store.Record(ctx, c.id, hash, model.RecordText, key)
	return string(v), err
}

// SetContenthash stores the label's content-hash blob.
func (c *CredentialResolver) SetContenthash(ctx context.Context, caller uuid.UUID, hash model.LabelHash, v []byte) error {
	if err := c.requireAuth(ctx, hash, caller); err != nil {
		return err
	}
	return c.store.SetRecord(ctx, c.id, hash, model.RecordContenthash, "", v)
}

// Contenthash returns the label's content-hash blob, nil when unset.
func (c *CredentialResolver) Contenthash(ctx context.Context, hash model.LabelHash) ([]byte, error) {
	return c.store.Record(ctx, c.id, hash, model.RecordContenthash, "")
}

// SetData stores an arbitrary-key binary record.
func (c *CredentialResolver) SetData(ctx context.Context, caller uuid.UUID, hash model.LabelHash, key string, v []byte) error {
	if err := c.requireAuth(ctx, hash, caller); err != nil {
		return err
	}
	return c.store.SetRecord(ctx, c.id, hash, model.RecordData, key, v)
}

// Data returns an arbitrary-key binary record, nil when unset.
func (c *CredentialResolver) Data(ctx context.Context, hash model.LabelHash, key string) ([]byte, error) {
	return c.store.Record(ctx, c.id, hash, model.RecordData, key)
}

// SetLabelOwner assigns the label's designated owner. Authorized callers
// only; the instance's contract owner can bootstrap the first assignment.
func (c *CredentialResolver) SetLabelOwner(ctx context.Context, caller uuid.UUID, hash model.LabelHash, owner uuid.UUID) error {
	if err := c.requireAuth(ctx, hash, caller); err != nil {
		return err
	}
	return c.store.SetLabelOwner(ctx, c.id, hash, owner)
}

// LabelOwner returns the label's designated owner, uuid.Nil when unset.
func (c *CredentialResolver) LabelOwner(ctx context.Context, hash model.LabelHash) (uuid.UUID, error) {
	return c.store.LabelOwner(ctx, c.id, hash)
}

// SetOperator toggles delegate's approval for labels the caller owns.
func (c *CredentialResolver) SetOperator(ctx context.Context, caller, delegate uuid.UUID, approved bool) error {
	return c.store.SetOperator(ctx, c.id, caller, delegate, approved)
}

// IsOperator reports whether delegate is approved by owner.
func (c *CredentialResolver) IsOperator(ctx context.Context, owner, delegate uuid.UUID) (bool, error) {
	return c.store.IsOperator(ctx, c.id, owner, delegate)
}

// TransferOwnership hands the instance to a new contract-wide owner.
func (c *CredentialResolver) TransferOwnership(ctx context.Context, caller, newOwner uuid.UUID) error {
	owner, err := c.store.InstanceOwner(ctx, c.id)
	if err != nil {
		return err
	}
	if caller != owner {
		return fmt.Errorf("transfer ownership: %w", errs.ErrUnauthorized)
	}
	return c.store.SetInstanceOwner(ctx, c.id, newOwner)
}

// Resolve implements Resolver. The label is re-derived from the wire name
// (any node embedded in legacy query encodings is ignored); absent records
// answer as empty values, never as hard failures.
func (c *CredentialResolver) Resolve(ctx context.Context, name []byte, query []byte) ([]byte, error) {
	label, _, err := namewire.SplitFirst(name)
	if err != nil {
		return nil, fmt.Errorf("parse name: %w", err)
	}
	if label == "" {
		return nil, fmt.Errorf("root name: %w", errs.ErrResolutionNotFound)
	}
	q, err := DecodeQuery(query)
	if err != nil {
		return nil, err
	}
	return c.answer(ctx, namewire.HashLabel(label), q)
}

func (c *CredentialResolver) answer(ctx context.Context, hash model.LabelHash, q Query) ([]byte, error) {
	v, err := c.store.Record(ctx, c.id, hash, q.Type, q.Key)
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = []byte{}
	}
	return v, nil
}
