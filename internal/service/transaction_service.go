package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/groph-ledger/pkg/uow"
	"github.com/jackc/pgx/v5"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

const (
	defaultMaxRetries  uint64 = 5
	defaultRetryBase          = 10 * time.Millisecond
	retryJitterPercent uint64 = 20
)

// TransactionService движок журнала: проводит транзакции, меняя баланс счета атомарно с записью
// в журнал, и отвечает на запросы чтения журнала.
type TransactionService struct {
	uow         uow.UOW
	accountRepo AccountRepository
	txRepo      TransactionRepository
	maxRetries  uint64
	retryBase   time.Duration
}

func NewTransactionService(u uow.UOW) (*TransactionService, error) {
	accountRepo, err := uow.GetRepositoryAs[AccountRepository](u, uow.RepositoryName(repoargs.AccountRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	txRepo, err := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &TransactionService{
		uow:         u,
		accountRepo: accountRepo,
		txRepo:      txRepo,
		maxRetries:  defaultMaxRetries,
		retryBase:   defaultRetryBase,
	}, nil
}

// SetMaxRetries устанавливает кол-во повторов проведения транзакции при конфликте конкурентных записей.
func (t *TransactionService) SetMaxRetries(retries uint64) *TransactionService {
	t.maxRetries = retries
	return t
}

// SetRetryBase устанавливает начальную паузу экспоненциальной задержки между повторами.
func (t *TransactionService) SetRetryBase(base time.Duration) *TransactionService {
	t.retryBase = base
	return t
}

type ProposeTransactionArgs struct {
	TransactionID string
	UserID        string
	Amount        decimal.Decimal
	Timestamp     time.Time
}

type ProposeResult struct {
	Transaction *domain.Transaction
	Balance     decimal.Decimal
	// Replayed транзакция с тем же TransactionID и теми же данными уже была проведена ранее,
	// повторно ничего не применялось.
	Replayed bool
}

// Propose проводит транзакцию по счету.
//
// Алгоритм работы:
//  1. В транзакции БД читает счет с блокировкой строки (конкурентные вызовы по тому же счету ждут).
//  2. Если счета нет - domain.ErrRecordNotFound.
//  3. Если TransactionID уже в журнале: совпадающие данные - успешный повтор без изменений,
//     иначе *domain.DuplicateTransactionError.
//  4. Если баланс + сумма < 0 - domain.ErrNotEnoughBalance, ничего не меняется.
//  5. Добавляет запись в журнал и увеличивает баланс на сумму, фиксирует обе записи одним коммитом.
//
// Сумма, которую нельзя сохранить без потерь, отклоняется до обращения к БД (domain.ErrAmountOutOfRange,
// domain.ErrAmountPrecision). Баланс, вышедший за пределы колонки, тоже дает domain.ErrAmountOutOfRange.
//
// Конфликты конкурентной записи повторяются с экспоненциальной задержкой, каждый раз с новой проверкой
// баланса. Бизнес-отказы не повторяются. Если провести транзакцию не удалось по другим причинам
// (включая исчерпание повторов), возвращается domain.ErrTransient, при этом ни журнал, ни баланс не изменены.
func (t *TransactionService) Propose(ctx context.Context, args ProposeTransactionArgs) (*ProposeResult, error) {
	if err := domain.ValidateAmount(args.Amount); err != nil {
		return nil, fmt.Errorf("proposing transaction: %w", err)
	}
	args.Timestamp = args.Timestamp.Truncate(time.Microsecond)

	backoff := retry.WithMaxRetries(
		t.maxRetries,
		retry.WithJitterPercent(retryJitterPercent, retry.NewExponential(t.retryBase)),
	)

	var result *ProposeResult
	err := retry.Do(ctx, backoff, func(c context.Context) error {
		res, applyErr := t.apply(c, args)
		if applyErr != nil {
			if isRetryable(applyErr) {
				return retry.RetryableError(applyErr)
			}
			return applyErr
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, classifyProposeErr(err)
	}
	return result, nil
}

func (t *TransactionService) apply(ctx context.Context, args ProposeTransactionArgs) (*ProposeResult, error) {
	var result *ProposeResult
	txErr := t.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		accountRepo, repoErr := uow.GetAs[AccountRepository](tx, uow.RepositoryName(repoargs.AccountRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		txRepo, repoErr := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}

		account, accountErr := accountRepo.FindByUserIDForUpdate(c, args.UserID)
		if accountErr != nil {
			return accountErr //nolint:wrapcheck
		}

		existing, findErr := txRepo.FindByTransactionID(c, args.TransactionID)
		switch {
		case findErr == nil:
			if !sameTransaction(existing, args) {
				return domain.NewDuplicateTransactionError(existing)
			}
			result = &ProposeResult{Transaction: existing, Balance: account.Balance, Replayed: true}
			return nil
		case !errors.Is(findErr, domain.ErrRecordNotFound):
			return findErr //nolint:wrapcheck
		}

		if account.Balance.Add(args.Amount).IsNegative() {
			return domain.ErrNotEnoughBalance
		}

		transaction, createErr := txRepo.Create(c, repoargs.CreateTransaction{
			TransactionID: args.TransactionID,
			UserID:        args.UserID,
			Amount:        args.Amount,
			Timestamp:     args.Timestamp,
		})
		if createErr != nil {
			return createErr //nolint:wrapcheck
		}

		updated, incErr := accountRepo.IncrementBalance(c, args.UserID, args.Amount)
		if incErr != nil {
			return incErr //nolint:wrapcheck
		}

		result = &ProposeResult{Transaction: transaction, Balance: updated.Balance}
		return nil
	}, uow.WithIsolation(pgx.ReadCommitted))

	if txErr != nil {
		return nil, txErr
	}
	return result, nil
}

// isRetryable конфликт конкурентной записи. Дубликат ключа тоже повторяем: конкурентная транзакция с тем же
// TransactionID успела зафиксироваться, и повторная попытка увидит ее на шаге проверки журнала.
func isRetryable(err error) bool {
	return errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrDuplicateKey)
}

func classifyProposeErr(err error) error {
	var duplicateErr *domain.DuplicateTransactionError
	switch {
	case errors.Is(err, domain.ErrRecordNotFound),
		errors.Is(err, domain.ErrNotEnoughBalance),
		errors.Is(err, domain.ErrAmountOutOfRange),
		errors.As(err, &duplicateErr):
		return fmt.Errorf("proposing transaction: %w", err)
	default:
		return fmt.Errorf("proposing transaction: %w: %s", domain.ErrTransient, err.Error())
	}
}

func sameTransaction(existing *domain.Transaction, args ProposeTransactionArgs) bool {
	return existing.UserID == args.UserID &&
		existing.Amount.Equal(args.Amount) &&
		existing.Timestamp.Equal(args.Timestamp)
}

type ListTransactionsArgs struct {
	UserID string
	// From, To границы полуоткрытого интервала [From, To) по timestamp. Нулевое значение - без границы.
	From time.Time
	To   time.Time
}

// List возвращает журнал счета в интервале, отсортированный по timestamp по возрастанию.
// Для несуществующего счета вернется пустой список.
func (t *TransactionService) List(ctx context.Context, args ListTransactionsArgs) ([]domain.Transaction, error) {
	transactions, err := t.txRepo.ListByUserID(ctx, repoargs.ListTransactions{
		UserID: args.UserID,
		From:   args.From,
		To:     args.To,
	})
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return transactions, nil
}

// Summary возвращает текущий баланс счета и кол-во транзакций в его журнале. Если счета нет -
// domain.ErrRecordNotFound.
func (t *TransactionService) Summary(ctx context.Context, userID string) (*domain.AccountSummary, error) {
	summary, err := t.accountRepo.Summary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting account summary: %w", err)
	}
	return summary, nil
}
