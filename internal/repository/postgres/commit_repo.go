package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/avetrov/namevault/internal/errs"
	"github.com/avetrov/namevault/internal/model"
)

// CommitmentRepo implements CommitmentRepository using PostgreSQL.
type CommitmentRepo struct{ db *DB }

// NewCommitmentRepo constructs a commitment repository.
func NewCommitmentRepo(db *DB) *CommitmentRepo { return &CommitmentRepo{db: db} }

// Create stores a new pending commitment.
func (r *CommitmentRepo) Create(ctx context.Context, c *model.Commitment) error {
	const q = `INSERT INTO commitments (hash, created_at) VALUES ($1,$2)`
	_, err := r.db.q(ctx).Exec(ctx, q, c.Hash[:], c.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get loads a pending commitment by hash.
func (r *CommitmentRepo) Get(ctx context.Context, hash [32]byte) (*model.Commitment, error) {
	const q = `SELECT created_at FROM commitments WHERE hash=$1`
	c := model.Commitment{Hash: hash}
	err := r.db.q(ctx).QueryRow(ctx, q, hash[:]).Scan(&c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete consumes a commitment.
func (r *CommitmentRepo) Delete(ctx context.Context, hash [32]byte) error {
	const q = `DELETE FROM commitments WHERE hash=$1`
	tag, err := r.db.q(ctx).Exec(ctx, q, hash[:])
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
