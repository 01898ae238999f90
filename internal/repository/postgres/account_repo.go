package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/avetrov/namevault/internal/errs"
	"github.com/avetrov/namevault/internal/model"
)

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `INSERT INTO accounts (id, username, pwd_hash, salt_auth, balance) VALUES ($1,$2,$3,$4,0)`
	_, err := r.db.q(ctx).Exec(ctx, q, a.ID, a.Username, a.PwdHash, a.SaltAuth)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID loads an account by ID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	const q = `SELECT id, username, pwd_hash, salt_auth, balance, created_at FROM accounts WHERE id=$1`
	return r.scanOne(r.db.q(ctx).QueryRow(ctx, q, id))
}

// GetByUsername loads an account by username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	const q = `SELECT id, username, pwd_hash, salt_auth, balance, created_at FROM accounts WHERE username=$1`
	return r.scanOne(r.db.q(ctx).QueryRow(ctx, q, username))
}

func (r *AccountRepo) scanOne(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Username, &a.PwdHash, &a.SaltAuth, &a.Balance, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Deposit credits an account balance.
func (r *AccountRepo) Deposit(ctx context.Context, id uuid.UUID, amount int64) error {
	const q = `UPDATE accounts SET balance = balance + $2 WHERE id=$1`
	tag, err := r.db.q(ctx).Exec(ctx, q, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Balance returns the current balance of an account.
func (r *AccountRepo) Balance(ctx context.Context, id uuid.UUID) (int64, error) {
	const q = `SELECT balance FROM accounts WHERE id=$1`
	var b int64
	err := r.db.q(ctx).QueryRow(ctx, q, id).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errs.ErrNotFound
	}
	return b, err
}

// Collect settles a registration payment: debits price+refund from the
// payer, credits the price to the beneficiary and the refund back to the
// payer. It runs in a single transaction, joining the caller's when one is
// active. Nothing moves on any failure.
func (r *AccountRepo) Collect(ctx context.Context, payer, beneficiary uuid.UUID, price, refund int64) error {
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		const debit = `UPDATE accounts SET balance = balance - $2 WHERE id=$1 AND balance >= $2`
		tag, err := r.db.q(ctx).Exec(ctx, debit, payer, price+refund)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrInsufficientFunds
		}

		const credit = `UPDATE accounts SET balance = balance + $2 WHERE id=$1`
		tag, err = r.db.q(ctx).Exec(ctx, credit, beneficiary, price)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		if refund > 0 {
			tag, err = r.db.q(ctx).Exec(ctx, credit, payer, refund)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return errs.ErrNotFound
			}
		}
		return nil
	})
}
