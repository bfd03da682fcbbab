package service

import (
	"context"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/repository/repoargs"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type AccountRepository interface {
	Create(ctx context.Context, args repoargs.CreateAccount) (*domain.Account, error)
	FindByUserID(ctx context.Context, userID string) (*domain.Account, error)
	FindByUserIDForUpdate(ctx context.Context, userID string) (*domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Delete(ctx context.Context, userID string) error
	IncrementBalance(ctx context.Context, userID string, delta decimal.Decimal) (*domain.Account, error)
	Summary(ctx context.Context, userID string) (*domain.AccountSummary, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, args repoargs.CreateTransaction) (*domain.Transaction, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	ListByUserID(ctx context.Context, args repoargs.ListTransactions) ([]domain.Transaction, error)
}
