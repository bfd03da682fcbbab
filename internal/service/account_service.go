package service

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/groph-ledger/pkg/uow"
)

// AccountService управляет жизненным циклом счетов. Баланс здесь не меняется, это делает только
// TransactionService.
type AccountService struct {
	accountRepo AccountRepository
}

func NewAccountService(u uow.UOW) (*AccountService, error) {
	accountRepo, err := uow.GetRepositoryAs[AccountRepository](u, uow.RepositoryName(repoargs.AccountRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &AccountService{accountRepo: accountRepo}, nil
}

type CreateAccountArgs struct {
	UserID string
	Name   string
	Email  string
}

// Create создает счет с нулевым балансом. Если счет с таким UserID уже существует - domain.ErrDuplicateKey.
func (a *AccountService) Create(ctx context.Context, args CreateAccountArgs) (*domain.Account, error) {
	account, err := a.accountRepo.Create(ctx, repoargs.CreateAccount{
		UserID: args.UserID,
		Name:   args.Name,
		Email:  args.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return account, nil
}

func (a *AccountService) Get(ctx context.Context, userID string) (*domain.Account, error) {
	account, err := a.accountRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting account: %w", err)
	}
	return account, nil
}

func (a *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	accounts, err := a.accountRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return accounts, nil
}

// Delete удаляет счет и его журнал. Если счета нет - domain.ErrRecordNotFound.
func (a *AccountService) Delete(ctx context.Context, userID string) error {
	if err := a.accountRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}
