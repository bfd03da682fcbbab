package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/service"
)

// AccountServicer интерфейс исключительно для моков.
type AccountServicer interface {
	Create(ctx context.Context, args service.CreateAccountArgs) (*domain.Account, error)
	Get(ctx context.Context, userID string) (*domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Delete(ctx context.Context, userID string) error
}

type TransactionServicer interface {
	Propose(ctx context.Context, args service.ProposeTransactionArgs) (*service.ProposeResult, error)
	List(ctx context.Context, args service.ListTransactionsArgs) ([]domain.Transaction, error)
	Summary(ctx context.Context, userID string) (*domain.AccountSummary, error)
}

// Pinger проверка доступности хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}
