package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"id", "name"}
	mock.ExpectCopyFrom(pgx.Identifier{"businesses"}, cols).WillReturnResult(2)

	n, err := CopyFrom(context.Background(), mock, "businesses", cols, [][]any{{"1", "Acme"}, {"2", "Globex"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := CopyFrom(context.Background(), mock, "businesses", []string{"id"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"businesses"}, []string{"id"}).WillReturnError(errors.New("relation does not exist"))

	_, err = CopyFrom(context.Background(), mock, "businesses", []string{"id"}, [][]any{{"1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db: copy into businesses")
}
