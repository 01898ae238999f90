package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avetrov/namevault/internal/errs"
	"github.com/avetrov/namevault/internal/model"
)

// ConfigRepo implements PricingRepository using PostgreSQL: price tiers as
// one row per label length, params as a singleton row.
type ConfigRepo struct{ db *DB }

// NewConfigRepo constructs a registrar-configuration repository.
func NewConfigRepo(db *DB) *ConfigRepo { return &ConfigRepo{db: db} }

// Prices loads the per-length price table.
func (r *ConfigRepo) Prices(ctx context.Context) (model.PriceTable, error) {
	const q = `SELECT price_per_sec FROM price_tiers ORDER BY length ASC`
	rows, err := r.db.q(ctx).Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var t model.PriceTable
	for rows.Next() {
		var p int64
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		t = append(t, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(t) == 0 {
		return nil, errs.ErrNotFound
	}
	return t, nil
}

// SetPrices replaces the price table atomically.
func (r *ConfigRepo) SetPrices(ctx context.Context, t model.PriceTable) error {
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := r.db.q(ctx).Exec(ctx, `DELETE FROM price_tiers`); err != nil {
			return err
		}
		const ins = `INSERT INTO price_tiers (length, price_per_sec) VALUES ($1,$2)`
		for i, p := range t {
			if _, err := r.db.q(ctx).Exec(ctx, ins, i+1, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// Params loads the registration parameters.
func (r *ConfigRepo) Params(ctx context.Context) (model.Params, error) {
	const q = `
SELECT min_label_len, max_label_len, min_commit_age_s, max_commit_age_s, grace_s
FROM registrar_params WHERE id = true`
	var p model.Params
	var minAge, maxAge, grace int64
	err := r.db.q(ctx).QueryRow(ctx, q).Scan(&p.MinLabelLength, &p.MaxLabelLength, &minAge, &maxAge, &grace)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Params{}, errs.ErrNotFound
	}
	if err != nil {
		return model.Params{}, err
	}
	p.MinCommitmentAge = time.Duration(minAge) * time.Second
	p.MaxCommitmentAge = time.Duration(maxAge) * time.Second
	p.GracePeriod = time.Duration(grace) * time.Second
	return p, nil
}

// SetParams replaces the registration parameters.
func (r *ConfigRepo) SetParams(ctx context.Context, p model.Params) error {
	const q = `
INSERT INTO registrar_params (id, min_label_len, max_label_len, min_commit_age_s, max_commit_age_s, grace_s)
VALUES (true,$1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE
SET min_label_len=$1, max_label_len=$2, min_commit_age_s=$3, max_commit_age_s=$4, grace_s=$5`
	_, err := r.db.q(ctx).Exec(ctx, q,
		p.MinLabelLength, p.MaxLabelLength,
		int64(p.MinCommitmentAge/time.Second), int64(p.MaxCommitmentAge/time.Second), int64(p.GracePeriod/time.Second))
	return err
}
