package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/avetrov/namevault/internal/errs"
	"github.com/avetrov/namevault/internal/model"
)

// LabelRepo implements LabelRepository using PostgreSQL.
type LabelRepo struct{ db *DB }

// NewLabelRepo constructs a label repository.
func NewLabelRepo(db *DB) *LabelRepo { return &LabelRepo{db: db} }

// Get loads a label record by its hash.
func (r *LabelRepo) Get(ctx context.Context, hash model.LabelHash) (*model.LabelRecord, error) {
	const q = `SELECT owner, resolver, expiry FROM labels WHERE hash=$1`
	rec := model.LabelRecord{Hash: hash}
	err := r.db.q(ctx).QueryRow(ctx, q, hash[:]).Scan(&rec.Owner, &rec.Resolver, &rec.Expiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put writes a label record, overwriting any previous one in place.
func (r *LabelRepo) Put(ctx context.Context, rec *model.LabelRecord) error {
	const q = `
INSERT INTO labels (hash, owner, resolver, expiry) VALUES ($1,$2,$3,$4)
ON CONFLICT (hash) DO UPDATE SET owner=$2, resolver=$3, expiry=$4`
	_, err := r.db.q(ctx).Exec(ctx, q, rec.Hash[:], rec.Owner, rec.Resolver, rec.Expiry)
	return err
}
