package service

import (
	"fmt"
	"time"

	"github.com/fsdevblog/groph-ledger/pkg/uow"
)

type AppServices struct {
	AccountService     *AccountService
	TransactionService *TransactionService
}

type FactoryArgs struct {
	// ProposeMaxRetries кол-во повторов проведения транзакции при конфликте конкурентных записей.
	ProposeMaxRetries uint64
	ProposeRetryBase  time.Duration
}

func Factory(unitOfWork uow.UOW, args FactoryArgs) (*AppServices, error) {
	accountService, accountServiceErr := NewAccountService(unitOfWork)
	if accountServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", accountServiceErr.Error())
	}

	transactionService, transactionServiceErr := NewTransactionService(unitOfWork)
	if transactionServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", transactionServiceErr.Error())
	}
	transactionService.SetMaxRetries(args.ProposeMaxRetries)
	if args.ProposeRetryBase > 0 {
		transactionService.SetRetryBase(args.ProposeRetryBase)
	}

	return &AppServices{
		AccountService:     accountService,
		TransactionService: transactionService,
	}, nil
}
