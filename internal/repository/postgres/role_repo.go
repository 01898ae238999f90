package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// RoleRepo implements RoleRepository using PostgreSQL.
type RoleRepo struct{ db *DB }

// NewRoleRepo constructs a registrar-role repository.
func NewRoleRepo(db *DB) *RoleRepo { return &RoleRepo{db: db} }

// Grant adds the registrar capability (idempotent).
func (r *RoleRepo) Grant(ctx context.Context, principal uuid.UUID) error {
	const q = `INSERT INTO registrar_roles (principal) VALUES ($1) ON CONFLICT DO NOTHING`
	_, err := r.db.q(ctx).Exec(ctx, q, principal)
	return err
}

// Revoke removes the registrar capability (idempotent).
func (r *RoleRepo) Revoke(ctx context.Context, principal uuid.UUID) error {
	const q = `DELETE FROM registrar_roles WHERE principal=$1`
	_, err := r.db.q(ctx).Exec(ctx, q, principal)
	return err
}

// Has reports whether a principal holds the registrar capability.
func (r *RoleRepo) Has(ctx context.Context, principal uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM registrar_roles WHERE principal=$1)`
	var ok bool
	if err := r.db.q(ctx).QueryRow(ctx, q, principal).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
