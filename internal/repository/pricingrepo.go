package repository

import (
	"context"

	"github.com/avetrov/namevault/internal/model"
)

// PricingRepository stores the registrar's administrator-set configuration:
// the per-length price table and the registration parameters.
type PricingRepository interface {
	// Prices loads the price table; errs.ErrNotFound before first configuration.
	Prices(ctx context.Context) (model.PriceTable, error)

	// SetPrices replaces the price table.
	SetPrices(ctx context.Context, t model.PriceTable) error

	// Params loads the registration parameters; errs.ErrNotFound before first
	// configuration.
	Params(ctx context.Context) (model.Params, error)

	// SetParams replaces the registration parameters.
	SetParams(ctx context.Context, p model.Params) error
}
