package repository

import (
	"context"

	"github.com/avetrov/namevault/internal/model"
)

// CommitmentRepository stores pending registration commitments.
type CommitmentRepository interface {
	// Create stores a new commitment; errs.ErrAlreadyExists if the hash is
	// already pending.
	Create(ctx context.Context, c *model.Commitment) error

	// Get loads a pending commitment; errs.ErrNotFound if absent.
	Get(ctx context.Context, hash [32]byte) (*model.Commitment, error)

	// Delete consumes a commitment; errs.ErrNotFound if absent.
	Delete(ctx context.Context, hash [32]byte) error
}
