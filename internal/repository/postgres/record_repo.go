package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/avetrov/namevault/internal/errs"
	"github.com/avetrov/namevault/internal/model"
)

// RecordRepo implements ResolverRecordRepository using PostgreSQL. All rows
// are scoped by resolver instance ID.
type RecordRepo struct{ db *DB }

// NewRecordRepo constructs a resolver-record repository.
func NewRecordRepo(db *DB) *RecordRepo { return &RecordRepo{db: db} }

// CreateInstance registers a resolver instance with its contract-wide owner.
func (r *RecordRepo) CreateInstance(ctx context.Context, id, owner uuid.UUID) error {
	const q = `INSERT INTO resolver_instances (id, owner) VALUES ($1,$2)`
	_, err := r.db.q(ctx).Exec(ctx, q, id, owner)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// InstanceOwner returns the contract-wide owner of an instance.
func (r *RecordRepo) InstanceOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	const q = `SELECT owner FROM resolver_instances WHERE id=$1`
	var owner uuid.UUID
	err := r.db.q(ctx).QueryRow(ctx, q, id).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, errs.ErrNotFound
	}
	return owner, err
}

// SetInstanceOwner transfers the contract-wide owner.
func (r *RecordRepo) SetInstanceOwner(ctx context.Context, id, owner uuid.UUID) error {
	const q = `UPDATE resolver_instances SET owner=$2 WHERE id=$1`
	tag, err := r.db.q(ctx).Exec(ctx, q, id, owner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetRecord upserts a credential record value.
func (r *RecordRepo) SetRecord(ctx context.Context, id uuid.UUID, hash model.LabelHash, typ model.RecordType, key string, value []byte) error {
	const q = `
INSERT INTO resolver_records (instance, label_hash, rtype, key, value) VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (instance, label_hash, rtype, key) DO UPDATE SET value=$5`
	_, err := r.db.q(ctx).Exec(ctx, q, id, hash[:], int16(typ), key, value)
	return err
}

// Record returns a stored value, or nil when absent.
func (r *RecordRepo) Record(ctx context.Context, id uuid.UUID, hash model.LabelHash, typ model.RecordType, key string) ([]byte, error) {
	const q = `SELECT value FROM resolver_records WHERE instance=$1 AND label_hash=$2 AND rtype=$3 AND key=$4`
	var v []byte
	err := r.db.q(ctx).QueryRow(ctx, q, id, hash[:], int16(typ), key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// SetLabelOwner upserts the designated owner for a label.
func (r *RecordRepo) SetLabelOwner(ctx context.Context, id uuid.UUID, hash model.LabelHash, owner uuid.UUID) error {
	const q = `
INSERT INTO label_owners (instance, label_hash, owner) VALUES ($1,$2,$3)
ON CONFLICT (instance, label_hash) DO UPDATE SET owner=$3`
	_, err := r.db.q(ctx).Exec(ctx, q, id, hash[:], owner)
	return err
}

// LabelOwner returns the designated owner, or uuid.Nil when unset.
func (r *RecordRepo) LabelOwner(ctx context.Context, id uuid.UUID, hash model.LabelHash) (uuid.UUID, error) {
	const q = `SELECT owner FROM label_owners WHERE instance=$1 AND label_hash=$2`
	var owner uuid.UUID
	err := r.db.q(ctx).QueryRow(ctx, q, id, hash[:]).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, nil
	}
	return owner, err
}

// SetOperator toggles a delegate's approval for labels owned by owner.
func (r *RecordRepo) SetOperator(ctx context.Context, id, owner, delegate uuid.UUID, approved bool) error {
	const q = `
INSERT INTO operator_approvals (instance, owner, delegate, approved) VALUES ($1,$2,$3,$4)
ON CONFLICT (instance, owner, delegate) DO UPDATE SET approved=$4`
	_, err := r.db.q(ctx).Exec(ctx, q, id, owner, delegate, approved)
	return err
}

// IsOperator reports whether delegate is approved by owner.
func (r *RecordRepo) IsOperator(ctx context.Context, id, owner, delegate uuid.UUID) (bool, error) {
	const q = `SELECT approved FROM operator_approvals WHERE instance=$1 AND owner=$2 AND delegate=$3`
	var ok bool
	err := r.db.q(ctx).QueryRow(ctx, q, id, owner, delegate).Scan(&ok)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return ok, err
}
