package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/avetrov/namevault/internal/errs"
	"github.com/avetrov/namevault/internal/model"
	"github.com/avetrov/namevault/internal/namewire"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestLabelRepo_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewLabelRepo(db)
	ctx := context.Background()

	hash := namewire.HashLabel("alice")
	owner := uuid.Must(uuid.NewV4())
	resolver := uuid.Must(uuid.NewV4())
	expiry := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT owner, resolver, expiry FROM labels WHERE hash=\$1`).
		WithArgs(hash[:]).
		WillReturnRows(pgxmock.NewRows([]string{"owner", "resolver", "expiry"}).
			AddRow(owner, resolver, expiry))
	rec, err := r.Get(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, hash, rec.Hash)
	require.Equal(t, owner, rec.Owner)
	require.Equal(t, resolver, rec.Resolver)
	require.True(t, expiry.Equal(rec.Expiry))

	mock.ExpectQuery(`SELECT owner, resolver, expiry FROM labels WHERE hash=\$1`).
		WithArgs(hash[:]).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(ctx, hash)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLabelRepo_Put_Upserts(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewLabelRepo(db)
	ctx := context.Background()

	rec := &model.LabelRecord{
		Hash:     namewire.HashLabel("alice"),
		Owner:    uuid.Must(uuid.NewV4()),
		Resolver: uuid.Must(uuid.NewV4()),
		Expiry:   time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	mock.ExpectExec(`INSERT INTO labels \(hash, owner, resolver, expiry\) VALUES \(\$1,\$2,\$3,\$4\) ON CONFLICT \(hash\) DO UPDATE SET owner=\$2, resolver=\$3, expiry=\$4`).
		WithArgs(rec.Hash[:], rec.Owner, rec.Resolver, rec.Expiry).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Put(ctx, rec))
	require.NoError(t, mock.ExpectationsWereMet())
}
