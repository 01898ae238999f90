package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/avetrov/namevault/internal/errs"
	"github.com/avetrov/namevault/internal/model"
)

func TestConfigRepo_Prices(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewConfigRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT price_per_sec FROM price_tiers ORDER BY length ASC`).
		WillReturnRows(pgxmock.NewRows([]string{"price_per_sec"}).
			AddRow(int64(1000)).AddRow(int64(500)).AddRow(int64(1)))
	got, err := r.Prices(ctx)
	require.NoError(t, err)
	require.Equal(t, model.PriceTable{1000, 500, 1}, got)

	// an unseeded table is distinguishable from a zero-price one
	mock.ExpectQuery(`SELECT price_per_sec FROM price_tiers ORDER BY length ASC`).
		WillReturnRows(pgxmock.NewRows([]string{"price_per_sec"}))
	_, err = r.Prices(ctx)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigRepo_SetPrices(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewConfigRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM price_tiers`).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`INSERT INTO price_tiers \(length, price_per_sec\) VALUES \(\$1,\$2\)`).
		WithArgs(1, int64(1000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO price_tiers \(length, price_per_sec\) VALUES \(\$1,\$2\)`).
		WithArgs(2, int64(10)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, r.SetPrices(ctx, model.PriceTable{1000, 10}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigRepo_Params(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewConfigRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT min_label_len, max_label_len, min_commit_age_s, max_commit_age_s, grace_s FROM registrar_params WHERE id = true`).
		WillReturnRows(pgxmock.NewRows([]string{"min_label_len", "max_label_len", "min_commit_age_s", "max_commit_age_s", "grace_s"}).
			AddRow(3, 63, int64(60), int64(86400), int64(7776000)))
	p, err := r.Params(ctx)
	require.NoError(t, err)
	require.Equal(t, model.Params{
		MinLabelLength:   3,
		MaxLabelLength:   63,
		MinCommitmentAge: time.Minute,
		MaxCommitmentAge: 24 * time.Hour,
		GracePeriod:      90 * 24 * time.Hour,
	}, p)

	mock.ExpectQuery(`SELECT min_label_len, max_label_len, min_commit_age_s, max_commit_age_s, grace_s FROM registrar_params WHERE id = true`).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Params(ctx)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigRepo_SetParams(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewConfigRepo(db)
	ctx := context.Background()

	p := model.Params{
		MinLabelLength:   3,
		MaxLabelLength:   63,
		MinCommitmentAge: time.Minute,
		MaxCommitmentAge: 24 * time.Hour,
		GracePeriod:      90 * 24 * time.Hour,
	}
	mock.ExpectExec(`INSERT INTO registrar_params`).
		WithArgs(3, 63, int64(60), int64(86400), int64(7776000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.SetParams(ctx, p))
	require.NoError(t, mock.ExpectationsWereMet())
}
