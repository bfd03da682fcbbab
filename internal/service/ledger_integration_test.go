//go:build integration

package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/repository/pgrepo"
	"github.com/fsdevblog/groph-ledger/internal/repository/pgrepo/pgtest"
	"github.com/fsdevblog/groph-ledger/internal/service"
	"github.com/fsdevblog/groph-ledger/pkg/uow"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
)

type LedgerIntegrationSuite struct {
	suite.Suite
	conn     *pgxpool.Pool
	services *service.AppServices
}

func TestLedgerIntegration(t *testing.T) {
	suite.Run(t, new(LedgerIntegrationSuite))
}

func (s *LedgerIntegrationSuite) SetupSuite() {
	s.conn = pgtest.Start(s.T())
	unitOfWork := uow.NewUnitOfWork(s.conn)
	s.Require().NoError(pgrepo.RegisterRepositories(unitOfWork))

	services, err := service.Factory(unitOfWork, service.FactoryArgs{
		ProposeMaxRetries: 10,
		ProposeRetryBase:  time.Millisecond,
	})
	s.Require().NoError(err)
	s.services = services
}

func (s *LedgerIntegrationSuite) SetupTest() {
	pgtest.Truncate(s.T(), s.conn)
}

func (s *LedgerIntegrationSuite) createAccount(userID string) {
	_, err := s.services.AccountService.Create(context.Background(), service.CreateAccountArgs{
		UserID: userID,
		Name:   "Alice Smith",
		Email:  "alice@example.com",
	})
	s.Require().NoError(err)
}

func (s *LedgerIntegrationSuite) propose(transactionID, userID string, amount int64, ts time.Time) error {
	_, err := s.services.TransactionService.Propose(context.Background(), service.ProposeTransactionArgs{
		TransactionID: transactionID,
		UserID:        userID,
		Amount:        decimal.NewFromInt(amount),
		Timestamp:     ts,
	})
	return err
}

// assertConsistent баланс счета равен сумме его журнала.
func (s *LedgerIntegrationSuite) assertConsistent(userID string, wantBalance int64, wantCount int64) {
	ctx := context.Background()
	summary, err := s.services.TransactionService.Summary(ctx, userID)
	s.Require().NoError(err)
	s.True(summary.Balance.Equal(decimal.NewFromInt(wantBalance)), "balance %s", summary.Balance)
	s.Equal(wantCount, summary.TransactionCount)

	transactions, err := s.services.TransactionService.List(ctx, service.ListTransactionsArgs{UserID: userID})
	s.Require().NoError(err)
	sum := decimal.Zero
	for _, t := range transactions {
		sum = sum.Add(t.Amount)
	}
	s.True(sum.Equal(summary.Balance), "ledger sum %s != balance %s", sum, summary.Balance)
}

func (s *LedgerIntegrationSuite) TestInsufficientBalanceScenario() {
	s.createAccount("u1")
	now := time.Now().UTC()

	s.Require().NoError(s.propose("t1", "u1", 100, now))
	s.Require().ErrorIs(s.propose("t2", "u1", -300, now), domain.ErrNotEnoughBalance)

	s.assertConsistent("u1", 100, 1)
}

func (s *LedgerIntegrationSuite) TestAccountNotFound() {
	err := s.propose("t1", "u2", 100, time.Now())
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)

	_, err = s.services.TransactionService.Summary(context.Background(), "u2")
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *LedgerIntegrationSuite) TestDateRangeAndSummary() {
	s.createAccount("u1")
	day := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	s.Require().NoError(s.propose("t1", "u1", 100, day))
	s.Require().NoError(s.propose("t2", "u1", 50, day.Add(12*time.Hour)))
	s.Require().NoError(s.propose("t3", "u1", 100, day.Add(24*time.Hour)))

	transactions, err := s.services.TransactionService.List(context.Background(), service.ListTransactionsArgs{
		UserID: "u1",
		From:   day,
		To:     day.Add(24 * time.Hour),
	})
	s.Require().NoError(err)
	s.Len(transactions, 2)

	s.assertConsistent("u1", 250, 3)
}

func (s *LedgerIntegrationSuite) TestIdempotentReplayAndDuplicate() {
	s.createAccount("u1")
	ts := time.Date(2024, 12, 13, 14, 17, 25, 647561000, time.UTC)

	s.Require().NoError(s.propose("t1", "u1", 100, ts))

	result, err := s.services.TransactionService.Propose(context.Background(), service.ProposeTransactionArgs{
		TransactionID: "t1",
		UserID:        "u1",
		Amount:        decimal.RequireFromString("100.000000"),
		Timestamp:     ts,
	})
	s.Require().NoError(err)
	s.True(result.Replayed)

	var duplicateErr *domain.DuplicateTransactionError
	s.Require().ErrorAs(s.propose("t1", "u1", 99, ts), &duplicateErr)

	s.assertConsistent("u1", 100, 1)
}

func (s *LedgerIntegrationSuite) TestConcurrentCredits() {
	const k = 50
	s.createAccount("u1")
	now := time.Now().UTC()

	var g errgroup.Group
	for i := range k {
		g.Go(func() error {
			return s.propose(fmt.Sprintf("t%d", i), "u1", 1, now)
		})
	}
	s.Require().NoError(g.Wait())

	s.assertConsistent("u1", k, k)
}

func (s *LedgerIntegrationSuite) TestConcurrentDebitsNeverOverdraw() {
	const (
		opening = 10
		k       = 30
	)
	s.createAccount("u1")
	now := time.Now().UTC()
	s.Require().NoError(s.propose("opening", "u1", opening, now))

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
		other        []error
	)
	for i := range k {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.propose(fmt.Sprintf("debit-%d", i), "u1", -1, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrNotEnoughBalance):
				insufficient++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	s.Empty(other)
	s.Equal(opening, succeeded)
	s.Equal(k-opening, insufficient)
	s.assertConsistent("u1", 0, opening+1)
}

func (s *LedgerIntegrationSuite) TestConcurrentReplaysApplyOnce() {
	const k = 20
	s.createAccount("u1")
	ts := time.Date(2024, 12, 13, 14, 17, 25, 0, time.UTC)

	var g errgroup.Group
	for range k {
		g.Go(func() error {
			return s.propose("same", "u1", 5, ts)
		})
	}
	s.Require().NoError(g.Wait())

	s.assertConsistent("u1", 5, 1)
}

func (s *LedgerIntegrationSuite) TestDeleteCascades() {
	ctx := context.Background()
	s.createAccount("u1")
	s.Require().NoError(s.propose("t1", "u1", 100, time.Now()))

	s.Require().NoError(s.services.AccountService.Delete(ctx, "u1"))
	s.Require().ErrorIs(s.services.AccountService.Delete(ctx, "u1"), domain.ErrRecordNotFound)

	s.createAccount("u1")
	s.assertConsistent("u1", 0, 0)
}

// TestBalanceOverflowRejected баланс, не помещающийся в колонку, отклоняется целиком и без повторов.
func (s *LedgerIntegrationSuite) TestBalanceOverflowRejected() {
	s.createAccount("u1")
	now := time.Now().UTC()

	s.Require().NoError(s.propose("t1", "u1", 99999999999999, now))

	err := s.propose("t2", "u1", 1, now)
	s.Require().ErrorIs(err, domain.ErrAmountOutOfRange)
	s.Require().NotErrorIs(err, domain.ErrTransient)

	s.assertConsistent("u1", 99999999999999, 1)
}
