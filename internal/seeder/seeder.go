// Package seeder наполняет журнал демонстрационными счетами и транзакциями.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultRequestTimeout        = 10 * time.Second
	defaultWorkers          uint = 4
	defaultMinTransactions       = 1
	defaultMaxTransactions       = 5
	minAmount                    = 5.0
	maxAmount                    = 500.0
	transactionIDLength          = 12
)

var openingTimestamp = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Seeder создает счета, пополняет их на стартовый баланс, после чего параллельно проводит случайные пополнения.
type Seeder struct {
	ledger          Ledger
	faker           *gofakeit.Faker
	l               *logrus.Entry
	workers         uint
	minTransactions int
	maxTransactions int
}

func New(ledger Ledger, l *logrus.Logger) *Seeder {
	return &Seeder{
		ledger:          ledger,
		faker:           gofakeit.New(0),
		l:               l.WithField("component", "seeder"),
		workers:         defaultWorkers,
		minTransactions: defaultMinTransactions,
		maxTransactions: defaultMaxTransactions,
	}
}

// SetWorkers устанавливает кол-во воркеров, параллельно проводящих транзакции.
func (s *Seeder) SetWorkers(workers uint) *Seeder {
	if workers > 0 {
		s.workers = workers
	}
	return s
}

// SetTransactionsPerAccount устанавливает границы случайного кол-ва транзакций на каждый счет.
func (s *Seeder) SetTransactionsPerAccount(minCount, maxCount int) *Seeder {
	s.minTransactions = minCount
	s.maxTransactions = maxCount
	return s
}

// SetSeed делает генерацию транзакций детерминированной.
func (s *Seeder) SetSeed(seed uint64) *Seeder {
	s.faker = gofakeit.New(seed)
	return s
}

// Report итог работы Run.
type Report struct {
	AccountsCreated      int
	AccountsSkipped      int
	OpeningApplied       int
	OpeningReplayed      int
	TransactionsApplied  int
	TransactionsReplayed int
	TransactionsFailed   int
}

// Run создает счета по одному, затем раздает сгенерированные транзакции воркерам.
// Стартовое пополнение проводится и для уже существующих счетов: оно идемпотентно, поэтому
// прерванный ранее запуск будет дополнен, а завершенный не изменится. Ошибки отдельных транзакций
// не прерывают работу, они собираются в возвращаемую ошибку.
func (s *Seeder) Run(ctx context.Context, accounts []Account) (*Report, error) {
	var report Report

	s.l.Info("inserting users...")
	var seeded = make([]Account, 0, len(accounts))
	for _, account := range accounts {
		if err := s.createAccount(ctx, account, &report); err != nil {
			return &report, fmt.Errorf("seed account %s: %w", account.UserID, err)
		}
		seeded = append(seeded, account)
	}

	s.l.WithField("workers", s.workers).Info("inserting transactions...")
	results := s.runWorkers(ctx, s.produce(seeded))

	var errs []error
	for _, result := range results {
		l := s.l.WithFields(logrus.Fields{
			"worker":        result.WorkerID,
			"userId":        result.Transaction.UserID,
			"transactionId": result.Transaction.TransactionID,
		})
		switch {
		case result.Error != nil:
			l.WithError(result.Error).Error("propose transaction")
			report.TransactionsFailed++
			errs = append(errs, result.Error)
		case result.Replayed:
			l.Info("transaction already processed")
			report.TransactionsReplayed++
		default:
			l.WithField("amount", result.Transaction.Amount.String()).Info("inserted transaction")
			report.TransactionsApplied++
		}
	}

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return &report, errors.Join(errs...)
}

// createAccount создает счет (если его еще нет) и пополняет его на стартовый баланс. Id и время стартовой
// транзакции фиксированы, поэтому повторный запуск не пополнит счет дважды.
func (s *Seeder) createAccount(ctx context.Context, account Account, report *Report) error {
	reqCtx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	if err := s.ledger.CreateAccount(reqCtx, account); err != nil {
		if !errors.Is(err, ErrAccountExists) {
			return err
		}
		s.l.Infof("user %s already exists", account.UserID)
		report.AccountsSkipped++
	} else {
		s.l.Infof("inserted user: %s", account.UserID)
		report.AccountsCreated++
	}

	if !account.OpeningBalance.IsPositive() {
		return nil
	}

	replayed, err := s.ledger.Propose(reqCtx, OpeningTransaction(account))
	if err != nil {
		return fmt.Errorf("opening balance: %w", err)
	}
	if replayed {
		report.OpeningReplayed++
	} else {
		report.OpeningApplied++
	}
	return nil
}

// OpeningTransaction стартовое пополнение счета.
func OpeningTransaction(account Account) Transaction {
	return Transaction{
		TransactionID: OpeningTransactionID(account.UserID),
		UserID:        account.UserID,
		Amount:        account.OpeningBalance,
		Timestamp:     openingTimestamp,
	}
}

// OpeningTransactionID id транзакции стартового пополнения счета.
func OpeningTransactionID(userID string) string {
	return "opening-" + userID
}

// produce генерирует случайные пополнения для каждого счета.
func (s *Seeder) produce(accounts []Account) []Transaction {
	var transactions []Transaction
	for _, account := range accounts {
		for range s.faker.IntRange(s.minTransactions, s.maxTransactions) {
			transactions = append(transactions, Transaction{
				TransactionID: s.faker.LetterN(transactionIDLength),
				UserID:        account.UserID,
				Amount:        decimal.NewFromFloat(s.faker.Float64Range(minAmount, maxAmount)).Round(2), //nolint:mnd
				Timestamp:     time.Now().UTC(),
			})
		}
	}
	return transactions
}

type workerResult struct {
	WorkerID    uint
	Transaction Transaction
	Replayed    bool
	Error       error
}

// runWorkers раздает транзакции воркерам и собирает результаты (fan-out/fan-in).
func (s *Seeder) runWorkers(ctx context.Context, transactions []Transaction) []workerResult {
	var taskCh = make(chan Transaction, len(transactions))
	for _, transaction := range transactions {
		taskCh <- transaction
	}
	close(taskCh)

	var resultCh = make(chan workerResult, len(transactions))

	wg := new(sync.WaitGroup)
	wg.Add(int(s.workers)) //nolint:gosec
	for i := range s.workers {
		go s.worker(ctx, wg, i+1, taskCh, resultCh)
	}
	wg.Wait()
	close(resultCh)

	var results = make([]workerResult, 0, len(transactions))
	for result := range resultCh {
		results = append(results, result)
	}
	return results
}

func (s *Seeder) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	workerID uint,
	taskCh <-chan Transaction,
	resultCh chan<- workerResult,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-taskCh:
			if !ok {
				return
			}
			reqCtx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
			replayed, err := s.ledger.Propose(reqCtx, task)
			cancel()

			resultCh <- workerResult{
				WorkerID:    workerID,
				Transaction: task,
				Replayed:    replayed,
				Error:       err,
			}
		}
	}
}
