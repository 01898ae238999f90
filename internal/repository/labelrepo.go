// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/avetrov/namevault/internal/model"
)

// LabelRepository stores the registry's authoritative label records.
type LabelRepository interface {
	// Get loads a label record; errs.ErrNotFound if none was ever written.
	Get(ctx context.Context, hash model.LabelHash) (*model.LabelRecord, error)

	// Put writes a label record, overwriting any previous one.
	Put(ctx context.Context, rec *model.LabelRecord) error
}
