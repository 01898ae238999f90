package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avetrov/namevault/internal/model"
)

// ResolverRecordRepository backs credential resolver instances. Every method
// is scoped by resolver instance ID, so independently deployed instances for
// the same label text never share state.
type ResolverRecordRepository interface {
	// CreateInstance registers a resolver instance with its contract-wide
	// owner; errs.ErrAlreadyExists if the ID is taken.
	CreateInstance(ctx context.Context, id, owner uuid.UUID) error

	// InstanceOwner returns the contract-wide owner; errs.ErrNotFound for an
	// unknown instance.
	InstanceOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error)

	// SetInstanceOwner transfers the contract-wide owner.
	SetInstanceOwner(ctx context.Context, id, owner uuid.UUID) error

	// SetRecord upserts a credential record value.
	SetRecord(ctx context.Context, id uuid.UUID, hash model.LabelHash, typ model.RecordType, key string, value []byte) error

	// Record returns a stored value, or nil (no error) when absent.
	Record(ctx context.Context, id uuid.UUID, hash model.LabelHash, typ model.RecordType, key string) ([]byte, error)

	// SetLabelOwner upserts the designated owner for a label.
	SetLabelOwner(ctx context.Context, id uuid.UUID, hash model.LabelHash, owner uuid.UUID) error

	// LabelOwner returns the designated owner, or uuid.Nil (no error) when unset.
	LabelOwner(ctx context.Context, id uuid.UUID, hash model.LabelHash) (uuid.UUID, error)

	// SetOperator toggles a delegate's approval for labels owned by owner.
	SetOperator(ctx context.Context, id, owner, delegate uuid.UUID, approved bool) error

	// IsOperator reports whether delegate is approved by owner.
	IsOperator(ctx context.Context, id, owner, delegate uuid.UUID) (bool, error)
}
