package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// RoleRepository tracks which principals hold the registrar capability.
type RoleRepository interface {
	// Grant adds the registrar capability to a principal (idempotent).
	Grant(ctx context.Context, principal uuid.UUID) error

	// Revoke removes the registrar capability from a principal (idempotent).
	Revoke(ctx context.Context, principal uuid.UUID) error

	// Has reports whether a principal holds the registrar capability.
	Has(ctx context.Context, principal uuid.UUID) (bool, error)
}
