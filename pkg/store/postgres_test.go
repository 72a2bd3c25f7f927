package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inzo-ai/core-contracts/pkg/fault"
	"github.com/inzo-ai/core-contracts/pkg/policy"
)

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS policies").
		WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewPostgres(db)
	require.NoError(t, err)
	return s, mock
}

func TestPostgresPut(t *testing.T) {
	s, mock := newMockPostgres(t)
	p := samplePolicy("pol-1")
	record, _ := json.Marshal(p)

	mock.ExpectExec("INSERT INTO policies").
		WithArgs("pol-1", string(policy.StatusActive), string(record)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Put(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGet(t *testing.T) {
	s, mock := newMockPostgres(t)
	p := samplePolicy("pol-1")
	record, _ := json.Marshal(p)

	mock.ExpectQuery("SELECT record FROM policies").
		WithArgs("pol-1").
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow(string(record)))

	got, err := s.Get(context.Background(), "pol-1")
	require.NoError(t, err)
	assert.Equal(t, p, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGet_NotFound(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT record FROM policies").
		WithArgs("no-such").
		WillReturnRows(sqlmock.NewRows([]string{"record"}))

	_, err := s.Get(context.Background(), "no-such")
	assert.True(t, errors.Is(err, fault.ErrNotFound))
}

func TestPostgresOpenByPolicy(t *testing.T) {
	s, mock := newMockPostgres(t)
	cs := s.Claims()

	mock.ExpectQuery("SELECT id FROM claims").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("clm-1"))

	open, err := cs.OpenByPolicy(context.Background(), "pol-1")
	require.NoError(t, err)
	assert.Equal(t, "clm-1", open)
}

func TestPostgresBalance(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO vault").
		WithArgs(int64(9_000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SaveBalance(context.Background(), 9_000))

	mock.ExpectQuery("SELECT balance FROM vault").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(9_000)))
	balance, err := s.LoadBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9_000), balance)
	require.NoError(t, mock.ExpectationsWereMet())
}
