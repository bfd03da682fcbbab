package api

import (
	"fmt"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServiceTimeout = 3 * time.Second
	// ProposeServiceTimeout проведение транзакции может ждать блокировку счета и уходить в повторы.
	ProposeServiceTimeout = 10 * time.Second
)

const (
	UsersRoute          = "/users"
	UserRoute           = "/users/:userId"
	TransactionsRoute   = "/transactions"
	AccountSummaryRoute = "/account-summary/:userId"
	PingRoute           = "/ping"
)

type RouterArgs struct {
	Logger             *logrus.Logger
	AccountService     AccountServicer
	TransactionService TransactionServicer
	Pinger             Pinger
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	accountsHandler := NewAccountsHandler(args.AccountService)
	transactionsHandler := NewTransactionsHandler(args.TransactionService)
	summaryHandler := NewSummaryHandler(args.TransactionService)
	healthHandler := NewHealthHandler(args.Pinger)

	r.POST(UsersRoute, accountsHandler.Create)
	r.GET(UsersRoute, accountsHandler.Index)
	r.GET(UserRoute, accountsHandler.Show)
	r.DELETE(UserRoute, accountsHandler.Delete)

	r.POST(TransactionsRoute, transactionsHandler.Create)
	r.GET(TransactionsRoute, transactionsHandler.Index)

	r.GET(AccountSummaryRoute, summaryHandler.Show)

	r.GET(PingRoute, healthHandler.Ping)
	return r, nil
}
