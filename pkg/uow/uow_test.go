package uow_test

import (
	"errors"
	"testing"

	"github.com/fsdevblog/groph-ledger/pkg/uow"
	"github.com/fsdevblog/groph-ledger/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterRepo struct {
	conn uow.DBTX
}

type otherRepo struct{}

func TestUnitOfWork_Register(t *testing.T) {
	u := uow.NewUnitOfWork(nil)
	factory := func(dbtx uow.DBTX) uow.Repository { return &counterRepo{conn: dbtx} }

	require.NoError(t, u.Register("counter", factory))
	require.ErrorIs(t, u.Register("counter", factory), uow.ErrRepositoryAlreadyRegistered)
}

func TestGetRepositoryAs(t *testing.T) {
	u := uow.NewUnitOfWork(nil)
	require.NoError(t, u.Register("counter", func(dbtx uow.DBTX) uow.Repository {
		return &counterRepo{conn: dbtx}
	}))

	repo, err := uow.GetRepositoryAs[*counterRepo](u, "counter")
	require.NoError(t, err)
	assert.NotNil(t, repo)

	_, err = uow.GetRepositoryAs[*otherRepo](u, "counter")
	require.ErrorIs(t, err, uow.ErrInvalidRepositoryType)

	_, err = uow.GetRepositoryAs[*counterRepo](u, "missing")
	require.ErrorIs(t, err, uow.ErrRepositoryNotRegistered)
}

func TestGetAs(t *testing.T) {
	ctrl := gomock.NewController(t)
	tx := mocks.NewMockTX(ctrl)

	tx.EXPECT().Get(uow.RepositoryName("counter")).Return(&counterRepo{}, nil).Times(2)
	tx.EXPECT().Get(uow.RepositoryName("missing")).Return(nil, uow.ErrRepositoryNotRegistered)

	repo, err := uow.GetAs[*counterRepo](tx, "counter")
	require.NoError(t, err)
	assert.NotNil(t, repo)

	_, err = uow.GetAs[*otherRepo](tx, "counter")
	require.ErrorIs(t, err, uow.ErrInvalidRepositoryType)

	_, err = uow.GetAs[*counterRepo](tx, "missing")
	require.ErrorIs(t, err, uow.ErrRepositoryNotRegistered)
}

func TestTransaction_Get(t *testing.T) {
	factories := map[uow.RepositoryName]uow.RepositoryFactory{
		"counter": func(dbtx uow.DBTX) uow.Repository { return &counterRepo{conn: dbtx} },
	}
	tx := uow.NewTransaction(nil, factories)

	repo, err := tx.Get("counter")
	require.NoError(t, err)
	assert.IsType(t, &counterRepo{}, repo)

	_, err = tx.Get("missing")
	assert.True(t, errors.Is(err, uow.ErrRepositoryNotRegistered))
}

func TestWithIsolation(t *testing.T) {
	var opts pgx.TxOptions
	uow.WithIsolation(pgx.ReadCommitted)(&opts)

	assert.Equal(t, pgx.ReadCommitted, opts.IsoLevel)
	assert.Empty(t, opts.AccessMode)
}
