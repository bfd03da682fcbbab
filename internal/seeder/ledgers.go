package seeder

import (
	"context"
	"errors"
	"net/http"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/service"
	"github.com/fsdevblog/groph-ledger/pkg/ledgerclient"
)

type AccountCreator interface {
	Create(ctx context.Context, args service.CreateAccountArgs) (*domain.Account, error)
}

type TransactionProposer interface {
	Propose(ctx context.Context, args service.ProposeTransactionArgs) (*service.ProposeResult, error)
}

// ServiceLedger пишет напрямую через сервисный слой.
type ServiceLedger struct {
	accounts     AccountCreator
	transactions TransactionProposer
}

func NewServiceLedger(accounts AccountCreator, transactions TransactionProposer) *ServiceLedger {
	return &ServiceLedger{accounts: accounts, transactions: transactions}
}

func (s *ServiceLedger) CreateAccount(ctx context.Context, account Account) error {
	_, err := s.accounts.Create(ctx, service.CreateAccountArgs{
		UserID: account.UserID,
		Name:   account.Name,
		Email:  account.Email,
	})
	if errors.Is(err, domain.ErrDuplicateKey) {
		return ErrAccountExists
	}
	return err //nolint:wrapcheck
}

func (s *ServiceLedger) Propose(ctx context.Context, transaction Transaction) (bool, error) {
	result, err := s.transactions.Propose(ctx, service.ProposeTransactionArgs{
		TransactionID: transaction.TransactionID,
		UserID:        transaction.UserID,
		Amount:        transaction.Amount,
		Timestamp:     transaction.Timestamp,
	})
	if err != nil {
		return false, err //nolint:wrapcheck
	}
	return result.Replayed, nil
}

// HTTPLedger пишет через HTTP API запущенного сервера.
type HTTPLedger struct {
	client *ledgerclient.HTTPClient
}

func NewHTTPLedger(client *ledgerclient.HTTPClient) *HTTPLedger {
	return &HTTPLedger{client: client}
}

// CreateAccount сервер отвечает 400 на повторное создание счета.
func (h *HTTPLedger) CreateAccount(ctx context.Context, account Account) error {
	err := h.client.CreateUser(ctx, ledgerclient.CreateUserRequest{
		UserID: account.UserID,
		Name:   account.Name,
		Email:  account.Email,
	})
	var statusErr *ledgerclient.StatusCodeError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusBadRequest {
		return ErrAccountExists
	}
	return err //nolint:wrapcheck
}

func (h *HTTPLedger) Propose(ctx context.Context, transaction Transaction) (bool, error) {
	return h.client.CreateTransaction(ctx, ledgerclient.CreateTransactionRequest{ //nolint:wrapcheck
		TransactionID: transaction.TransactionID,
		UserID:        transaction.UserID,
		Amount:        transaction.Amount,
		Timestamp:     transaction.Timestamp,
	})
}
