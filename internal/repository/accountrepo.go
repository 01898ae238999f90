package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avetrov/namevault/internal/model"
)

// AccountRepository provides CRUD access for accounts and their balances.
type AccountRepository interface {
	// Create inserts a new account; errs.ErrAlreadyExists on username clash.
	Create(ctx context.Context, a *model.Account) error

	// GetByID loads an account by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)

	// GetByUsername loads an account by username.
	GetByUsername(ctx context.Context, username string) (*model.Account, error)

	// Deposit credits an account balance.
	Deposit(ctx context.Context, id uuid.UUID, amount int64) error

	// Collect settles a registration payment atomically: debits
	// price+refund from the payer, credits price to the beneficiary and the
	// refund back to the payer. errs.ErrInsufficientFunds if the payer's
	// balance cannot cover it; no partial transfer survives a failure.
	Collect(ctx context.Context, payer, beneficiary uuid.UUID, price, refund int64) error

	// Balance returns the current balance of an account.
	Balance(ctx context.Context, id uuid.UUID) (int64, error)
}
