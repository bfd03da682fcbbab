package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/groph-ledger/internal/service/mocks"
	"github.com/fsdevblog/groph-ledger/pkg/uow"
	uowmocks "github.com/fsdevblog/groph-ledger/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type TransactionServiceTestSuite struct {
	suite.Suite
	mockCtrl        *gomock.Controller
	mockUOW         *uowmocks.MockUOW
	mockTX          *uowmocks.MockTX
	mockAccountRepo *mocks.MockAccountRepository
	mockTxRepo      *mocks.MockTransactionRepository
	service         *TransactionService
	maxRetries      uint64
}

func TestTransactionServiceSuite(t *testing.T) {
	suite.Run(t, new(TransactionServiceTestSuite))
}

func (s *TransactionServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTX = uowmocks.NewMockTX(s.mockCtrl)
	s.mockAccountRepo = mocks.NewMockAccountRepository(s.mockCtrl)
	s.mockTxRepo = mocks.NewMockTransactionRepository(s.mockCtrl)

	// Репозитории вне транзакции запрашиваются при инициализации сервиса.
	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.AccountRepoName)).
		Return(s.mockAccountRepo, nil).AnyTimes()
	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTxRepo, nil).AnyTimes()

	// Внутри транзакции отдаем те же моки.
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.AccountRepoName)).
		Return(s.mockAccountRepo, nil).AnyTimes()
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTxRepo, nil).AnyTimes()

	s.maxRetries = 3
	transactionService, err := NewTransactionService(s.mockUOW)
	s.Require().NoError(err)
	s.service = transactionService.SetMaxRetries(s.maxRetries).SetRetryBase(time.Millisecond)
}

func (s *TransactionServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

// expectDo настраивает мок UOW, выполняющий функцию с мок транзакцией.
func (s *TransactionServiceTestSuite) expectDo() *gomock.Call {
	return s.mockUOW.EXPECT().
		Do(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, uow.TX) error, _ ...uow.DoOption) error {
			return fn(ctx, s.mockTX)
		})
}

func (s *TransactionServiceTestSuite) proposeArgs(amount int64) ProposeTransactionArgs {
	return ProposeTransactionArgs{
		TransactionID: "txn-1",
		UserID:        "u1",
		Amount:        decimal.NewFromInt(amount),
		Timestamp:     time.Date(2024, 12, 13, 14, 17, 25, 0, time.UTC),
	}
}

func (s *TransactionServiceTestSuite) TestPropose_Credit() {
	args := s.proposeArgs(100)
	created := &domain.Transaction{
		ID:            uuid.New(),
		TransactionID: args.TransactionID,
		UserID:        args.UserID,
		Amount:        args.Amount,
		Timestamp:     args.Timestamp,
	}

	s.expectDo().Times(1)
	s.mockAccountRepo.EXPECT().FindByUserIDForUpdate(gomock.Any(), args.UserID).
		Return(&domain.Account{UserID: args.UserID, Balance: decimal.Zero}, nil)
	s.mockTxRepo.EXPECT().FindByTransactionID(gomock.Any(), args.TransactionID).
		Return(nil, fmt.Errorf("[repository/finding] %w", domain.ErrRecordNotFound))
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, create repoargs.CreateTransaction) (*domain.Transaction, error) {
			// убеждаемся что в журнал уходят данные из запроса.
			s.Equal(args.TransactionID, create.TransactionID)
			s.Equal(args.UserID, create.UserID)
			s.True(args.Amount.Equal(create.Amount))
			s.True(args.Timestamp.Equal(create.Timestamp))
			return created, nil
		})
	s.mockAccountRepo.EXPECT().IncrementBalance(gomock.Any(), args.UserID, gomock.Any()).
		DoAndReturn(func(_ context.Context, userID string, delta decimal.Decimal) (*domain.Account, error) {
			s.True(delta.Equal(args.Amount))
			return &domain.Account{UserID: userID, Balance: delta}, nil
		})

	result, err := s.service.Propose(s.T().Context(), args)
	s.Require().NoError(err)
	s.False(result.Replayed)
	s.Equal(created, result.Transaction)
	s.True(result.Balance.Equal(decimal.NewFromInt(100)))
}

func (s *TransactionServiceTestSuite) TestPropose_InsufficientBalance() {
	args := s.proposeArgs(-300)

	// отказ по балансу не повторяется.
	s.expectDo().Times(1)
	s.mockAccountRepo.EXPECT().FindByUserIDForUpdate(gomock.Any(), args.UserID).
		Return(&domain.Account{UserID: args.UserID, Balance: decimal.NewFromInt(100)}, nil)
	s.mockTxRepo.EXPECT().FindByTransactionID(gomock.Any(), args.TransactionID).
		Return(nil, domain.ErrRecordNotFound)
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
	s.mockAccountRepo.EXPECT().IncrementBalance(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	result, err := s.service.Propose(s.T().Context(), args)
	s.Require().ErrorIs(err, domain.ErrNotEnoughBalance)
	s.NotErrorIs(err, domain.ErrTransient)
	s.Nil(result)
}

func (s *TransactionServiceTestSuite) TestPropose_ExactBalanceDebit() {
	args := s.proposeArgs(-100)

	s.expectDo().Times(1)
	s.mockAccountRepo.EXPECT().FindByUserIDForUpdate(gomock.Any(), args.UserID).
		Return(&domain.Account{UserID: args.UserID, Balance: decimal.NewFromInt(100)}, nil)
	s.mockTxRepo.EXPECT().FindByTransactionID(gomock.Any(), args.TransactionID).
		Return(nil, domain.ErrRecordNotFound)
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&domain.Transaction{}, nil)
	s.mockAccountRepo.EXPECT().IncrementBalance(gomock.Any(), args.UserID, gomock.Any()).
		Return(&domain.Account{UserID: args.UserID, Balance: decimal.Zero}, nil)

	result, err := s.service.Propose(s.T().Context(), args)
	s.Require().NoError(err)
	s.True(result.Balance.IsZero())
}

// TestPropose_InvalidAmount сумма, которую нельзя сохранить без потерь, отклоняется без обращения к БД.
func (s *TransactionServiceTestSuite) TestPropose_InvalidAmount() {
	cases := []struct {
		amount  string
		wantErr error
	}{
		{amount: "1e30", wantErr: domain.ErrAmountOutOfRange},
		{amount: "-100000000000000", wantErr: domain.ErrAmountOutOfRange},
		{amount: "-0.0000004", wantErr: domain.ErrAmountPrecision},
		{amount: "10.1234567", wantErr: domain.ErrAmountPrecision},
	}
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	for _, c := range cases {
		s.Run(c.amount, func() {
			args := s.proposeArgs(0)
			args.Amount = decimal.RequireFromString(c.amount)

			_, err := s.service.Propose(s.T().Context(), args)
			s.Require().ErrorIs(err, c.wantErr)
			s.NotErrorIs(err, domain.ErrTransient)
		})
	}
}

// TestPropose_BalanceOverflow переполнение баланса в БД не считается временной ошибкой и не повторяется.
func (s *TransactionServiceTestSuite) TestPropose_BalanceOverflow() {
	args := s.proposeArgs(100)

	s.expectDo().Times(1)
	s.mockAccountRepo.EXPECT().FindByUserIDForUpdate(gomock.Any(), args.UserID).
		Return(&domain.Account{UserID: args.UserID, Balance: decimal.RequireFromString("99999999999950")}, nil)
	s.mockTxRepo.EXPECT().FindByTransactionID(gomock.Any(), args.TransactionID).
		Return(nil, domain.ErrRecordNotFound)
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&domain.Transaction{}, nil)
	s.mockAccountRepo.EXPECT().IncrementBalance(gomock.Any(), args.UserID, gomock.Any()).
		Return(nil, fmt.Errorf("[repository/increment] %w: numeric field overflow", domain.ErrAmountOutOfRange))

	_, err := s.service.Propose(s.T().Context(), args)
	s.Require().ErrorIs(err, domain.ErrAmountOutOfRange)
	s.NotErrorIs(err, domain.ErrTransient)
}

func (s *TransactionServiceTestSuite) TestPropose_AccountNotFound() {
	args := s.proposeArgs(100)
	args.UserID = "u2"

	s.expectDo().Times(1)
	s.mockAccountRepo.EXPECT().FindByUserIDForUpdate(gomock.Any(), "u2").
		Return(nil, fmt.Errorf("[repository/locking] %w", domain.ErrRecordNotFound))
	s.mockTxRepo.EXPECT().FindByTransactionID(gomock.Any(), gomock.Any()).Times(0)
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.service.Propose(s.T().Context(), args)
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
	s.NotErrorIs(err, domain.ErrTransient)
}

func (s *TransactionServiceTestSuite) TestPropose_IdempotentReplay() {
	args := s.proposeArgs(-50)
	existing := &domain.Transaction{
		ID:            uuid.New(),
		TransactionID: args.TransactionID,
		UserID:        args.UserID,
		Amount:        decimal.RequireFromString("-50.000000"),
		Timestamp:     args.Timestamp.In(time.FixedZone("UTC+3", 3*60*60)),
	}

	s.expectDo().Times(1)
	// баланс уже не позволяет списание, но повтор проведенной транзакции должен быть успешным.
	s.mockAccountRepo.EXPECT().FindByUserIDForUpdate(gomock.Any(), args.UserID).
		Return(&domain.Account{UserID: args.UserID, Balance: decimal.NewFromInt(10)}, nil)
	s.mockTxRepo.EXPECT().FindByTransactionID(gomock.Any(), args.TransactionID).Return(existing, nil)
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
	s.mockAccountRepo.EXPECT().IncrementBalance(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	result, err := s.service.Propose(s.T().Context(), args)
	s.Require().NoError(err)
	s.True(result.Replayed)
	s.Equal(existing, result.Transaction)
	s.True(result.Balance.Equal(decimal.NewFromInt(10)))
}

func (s *TransactionServiceTestSuite) TestPropose_DuplicateTransactionID() {
	args := s.proposeArgs(100)

	cases := []struct {
		name     string
		existing domain.Transaction
	}{
		{
			name: "another amount",
			existing: domain.Transaction{
				TransactionID: args.TransactionID, UserID: args.UserID,
				Amount: decimal.NewFromInt(99), Timestamp: args.Timestamp,
			},
		},
		{
			name: "another user",
			existing: domain.Transaction{
				TransactionID: args.TransactionID, UserID: "u3",
				Amount: args.Amount, Timestamp: args.Timestamp,
			},
		},
		{
			name: "another timestamp",
			existing: domain.Transaction{
				TransactionID: args.TransactionID, UserID: args.UserID,
				Amount: args.Amount, Timestamp: args.Timestamp.Add(time.Second),
			},
		},
	}

	s.expectDo().Times(len(cases))
	s.mockAccountRepo.EXPECT().FindByUserIDForUpdate(gomock.Any(), args.UserID).
		Return(&domain.Account{UserID: args.UserID, Balance: decimal.NewFromInt(1000)}, nil).
		Times(len(cases))
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	for _, t := range cases {
		s.Run(t.name, func() {
			s.mockTxRepo.EXPECT().FindByTransactionID(gomock.Any(), args.TransactionID).Return(&t.existing, nil)

			_, err := s.service.Propose(s.T().Context(), args)
			var duplicateErr *domain.DuplicateTransactionError
			s.Require().ErrorAs(err, &duplicateErr)
			s.Equal(t.existing.UserID, duplicateErr.Transaction.UserID)
			s.NotErrorIs(err, domain.ErrTransient)
		})
	}
}

func (s *TransactionServiceTestSuite) TestPropose_RetryOnConflict() {
	args := s.proposeArgs(100)

	// Первая попытка упирается в конфликт сериализации, вторая проходит с заново прочитанным балансом.
	gomock.InOrder(
		s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(fmt.Errorf("[repository/incrementing] %w: deadlock detected", domain.ErrConflict)),
		s.expectDo(),
	)
	s.mockAccountRepo.EXPECT().FindByUserIDForUpdate(gomock.Any(), args.UserID).
		Return(&domain.Account{UserID: args.UserID, Balance: decimal.NewFromInt(50)}, nil)
	s.mockTxRepo.EXPECT().FindByTransactionID(gomock.Any(), args.TransactionID).
		Return(nil, domain.ErrRecordNotFound)
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&domain.Transaction{}, nil)
	s.mockAccountRepo.EXPECT().IncrementBalance(gomock.Any(), args.UserID, gomock.Any()).
		Return(&domain.Account{UserID: args.UserID, Balance: decimal.NewFromInt(150)}, nil)

	result, err := s.service.Propose(s.T().Context(), args)
	s.Require().NoError(err)
	s.True(result.Balance.Equal(decimal.NewFromInt(150)))
}

func (s *TransactionServiceTestSuite) TestPropose_RetriesExhausted() {
	args := s.proposeArgs(100)

	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("[repository/locking] %w: could not serialize access", domain.ErrConflict)).
		Times(int(s.maxRetries) + 1)

	_, err := s.service.Propose(s.T().Context(), args)
	s.Require().ErrorIs(err, domain.ErrTransient)
	s.NotErrorIs(err, domain.ErrNotEnoughBalance)
}

func (s *TransactionServiceTestSuite) TestPropose_CommitFailure() {
	args := s.proposeArgs(100)

	// ошибка фиксации не является конфликтом - не повторяется и отдается как временная ошибка хранилища.
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("%w: connection reset", uow.ErrCommitFailed)).
		Times(1)

	_, err := s.service.Propose(s.T().Context(), args)
	s.Require().ErrorIs(err, domain.ErrTransient)
}

func (s *TransactionServiceTestSuite) TestPropose_CanceledContext() {
	args := s.proposeArgs(100)
	ctx, cancel := context.WithCancel(s.T().Context())
	cancel()

	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := s.service.Propose(ctx, args)
	s.Require().ErrorIs(err, domain.ErrTransient)
}

func (s *TransactionServiceTestSuite) TestList() {
	from := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC)
	transactions := []domain.Transaction{
		{ID: uuid.New(), TransactionID: "t1", UserID: "u1", Amount: decimal.NewFromInt(100), Timestamp: from},
	}

	s.mockTxRepo.EXPECT().
		ListByUserID(gomock.Any(), repoargs.ListTransactions{UserID: "u1", From: from, To: to}).
		Return(transactions, nil)

	result, err := s.service.List(s.T().Context(), ListTransactionsArgs{UserID: "u1", From: from, To: to})
	s.Require().NoError(err)
	s.Equal(transactions, result)
}

func (s *TransactionServiceTestSuite) TestList_Error() {
	s.mockTxRepo.EXPECT().ListByUserID(gomock.Any(), gomock.Any()).Return(nil, domain.ErrUnknown)

	_, err := s.service.List(s.T().Context(), ListTransactionsArgs{UserID: "u1"})
	s.Require().ErrorIs(err, domain.ErrUnknown)
}

func (s *TransactionServiceTestSuite) TestSummary() {
	summary := &domain.AccountSummary{UserID: "u1", Balance: decimal.NewFromInt(200), TransactionCount: 3}
	s.mockAccountRepo.EXPECT().Summary(gomock.Any(), "u1").Return(summary, nil)
	s.mockAccountRepo.EXPECT().Summary(gomock.Any(), "nobody").Return(nil, domain.ErrRecordNotFound)

	result, err := s.service.Summary(s.T().Context(), "u1")
	s.Require().NoError(err)
	s.Equal(int64(3), result.TransactionCount)

	_, err = s.service.Summary(s.T().Context(), "nobody")
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}

func TestClassifyProposeErr(t *testing.T) {
	cases := []struct {
		name          string
		err           error
		wantTransient bool
	}{
		{name: "not found", err: domain.ErrRecordNotFound},
		{name: "not enough balance", err: domain.ErrNotEnoughBalance},
		{name: "duplicate", err: domain.NewDuplicateTransactionError(&domain.Transaction{})},
		{name: "amount out of range", err: domain.ErrAmountOutOfRange},
		{name: "conflict", err: domain.ErrConflict, wantTransient: true},
		{name: "unknown", err: errors.New("boom"), wantTransient: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := classifyProposeErr(c.err)
			if got := errors.Is(err, domain.ErrTransient); got != c.wantTransient {
				t.Fatalf("transient = %v, want %v (err: %v)", got, c.wantTransient, err)
			}
		})
	}
}
