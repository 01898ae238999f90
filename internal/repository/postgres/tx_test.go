package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/avetrov/namevault/internal/model"
	"github.com/avetrov/namevault/internal/namewire"
)

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	labels := NewLabelRepo(db)
	commits := NewCommitmentRepo(db)
	ctx := context.Background()

	rec := &model.LabelRecord{
		Hash:     namewire.HashLabel("alice"),
		Owner:    uuid.Must(uuid.NewV4()),
		Resolver: uuid.Must(uuid.NewV4()),
		Expiry:   time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	var hash [32]byte
	hash[0] = 7

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM commitments WHERE hash=\$1`).
		WithArgs(hash[:]).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`INSERT INTO labels`).
		WithArgs(rec.Hash[:], rec.Owner, rec.Resolver, rec.Expiry).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := db.WithinTx(ctx, func(ctx context.Context) error {
		if err := commits.Delete(ctx, hash); err != nil {
			return err
		}
		return labels.Put(ctx, rec)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	commits := NewCommitmentRepo(db)
	ctx := context.Background()

	var hash [32]byte
	hash[0] = 7
	boom := errors.New("mirror down")

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM commitments WHERE hash=\$1`).
		WithArgs(hash[:]).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectRollback()

	err := db.WithinTx(ctx, func(ctx context.Context) error {
		if err := commits.Delete(ctx, hash); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_NestedJoinsEnclosing(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	accounts := NewAccountRepo(db)
	ctx := context.Background()

	payer := uuid.Must(uuid.NewV4())
	beneficiary := uuid.Must(uuid.NewV4())

	// one begin/commit pair even though Collect opens its own unit of work
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE accounts SET balance = balance - \$2 WHERE id=\$1 AND balance >= \$2`).
		WithArgs(payer, int64(100)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE accounts SET balance = balance \+ \$2 WHERE id=\$1`).
		WithArgs(beneficiary, int64(100)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := db.WithinTx(ctx, func(ctx context.Context) error {
		return accounts.Collect(ctx, payer, beneficiary, 100, 0)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
