package postgres

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/avetrov/namevault/internal/errs"
	"github.com/avetrov/namevault/internal/model"
)

func TestAccountRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	a := &model.Account{
		ID:       uuid.Must(uuid.NewV4()),
		Username: "alice",
		PwdHash:  []byte("h"),
		SaltAuth: []byte("s"),
	}

	mock.ExpectExec(`INSERT INTO accounts \(id, username, pwd_hash, salt_auth, balance\) VALUES \(\$1,\$2,\$3,\$4,0\)`).
		WithArgs(a.ID, a.Username, a.PwdHash, a.SaltAuth).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, a))

	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs(a.ID, a.Username, a.PwdHash, a.SaltAuth).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, a), errs.ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Balance(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT balance FROM accounts WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(700)))
	b, err := r.Balance(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(700), b)

	mock.ExpectQuery(`SELECT balance FROM accounts WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Balance(ctx, id)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Deposit_UnknownAccount(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`UPDATE accounts SET balance = balance \+ \$2 WHERE id=\$1`).
		WithArgs(id, int64(100)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.Deposit(ctx, id, 100), errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Collect_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	payer := uuid.Must(uuid.NewV4())
	beneficiary := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE accounts SET balance = balance - \$2 WHERE id=\$1 AND balance >= \$2`).
		WithArgs(payer, int64(150)). // price + refund
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE accounts SET balance = balance \+ \$2 WHERE id=\$1`).
		WithArgs(beneficiary, int64(100)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE accounts SET balance = balance \+ \$2 WHERE id=\$1`).
		WithArgs(payer, int64(50)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, r.Collect(ctx, payer, beneficiary, 100, 50))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Collect_NoRefundSkipsCredit(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	payer := uuid.Must(uuid.NewV4())
	beneficiary := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE accounts SET balance = balance - \$2 WHERE id=\$1 AND balance >= \$2`).
		WithArgs(payer, int64(100)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE accounts SET balance = balance \+ \$2 WHERE id=\$1`).
		WithArgs(beneficiary, int64(100)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, r.Collect(ctx, payer, beneficiary, 100, 0))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Collect_InsufficientFundsRollsBack(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	payer := uuid.Must(uuid.NewV4())
	beneficiary := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE accounts SET balance = balance - \$2 WHERE id=\$1 AND balance >= \$2`).
		WithArgs(payer, int64(100)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	require.ErrorIs(t, r.Collect(ctx, payer, beneficiary, 100, 0), errs.ErrInsufficientFunds)
	require.NoError(t, mock.ExpectationsWereMet())
}
