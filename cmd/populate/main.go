// Command populate наполняет журнал демонстрационными счетами и транзакциями. Все транзакции проводятся через
// TransactionService (напрямую или через HTTP API, если задан LEDGER_API_URL), поэтому баланс каждого счета
// совпадает с суммой его журнала. Повторный запуск не создает дубликаты счетов.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/fsdevblog/groph-ledger/internal/app"
	"github.com/fsdevblog/groph-ledger/internal/config"
	"github.com/fsdevblog/groph-ledger/internal/logger"
	"github.com/fsdevblog/groph-ledger/internal/repository/pgrepo"
	"github.com/fsdevblog/groph-ledger/internal/seeder"
	"github.com/fsdevblog/groph-ledger/pkg/ledgerclient"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type populateConfig struct {
	// LedgerAPIURL адрес запущенного сервера. Если пуст, запись идет напрямую в БД.
	LedgerAPIURL string `env:"LEDGER_API_URL"`
	Workers      uint   `env:"SEED_WORKERS"   envDefault:"4"`
	LogLevel     string `env:"LOG_LEVEL"`
}

var seedAccounts = []seeder.Account{
	{UserID: "user1", Name: "Alice Smith", Email: "alice@example.com", OpeningBalance: decimal.NewFromInt(100)},
	{UserID: "user2", Name: "Bob Johnson", Email: "bob@example.com", OpeningBalance: decimal.NewFromInt(150)},
	{UserID: "user3", Name: "Charlie Brown", Email: "charlie@example.com", OpeningBalance: decimal.NewFromInt(200)},
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic(err)
	}

	var conf populateConfig
	if err := env.Parse(&conf); err != nil {
		panic(err)
	}
	l := logger.New(os.Stdout, conf.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, l); err != nil {
		l.WithError(err).Fatal("populate failed")
	}
}

func run(ctx context.Context, conf populateConfig, l *logrus.Logger) error {
	var ledger seeder.Ledger
	if conf.LedgerAPIURL != "" {
		l.WithField("url", conf.LedgerAPIURL).Info("seeding through HTTP API")
		ledger = seeder.NewHTTPLedger(ledgerclient.New(conf.LedgerAPIURL))
	} else {
		appConf := config.MustLoadConfig()
		conn, connErr := pgrepo.Connect(ctx, appConf.MigrationsDir, appConf.DatabaseDSN, l)
		if connErr != nil {
			return connErr //nolint:wrapcheck
		}
		defer conn.Close()

		services, sErr := app.NewServices(conn, appConf)
		if sErr != nil {
			return sErr //nolint:wrapcheck
		}
		ledger = seeder.NewServiceLedger(services.AccountService, services.TransactionService)
	}

	report, err := seeder.New(ledger, l).SetWorkers(conf.Workers).Run(ctx, seedAccounts)
	if report != nil {
		l.WithFields(logrus.Fields{
			"accountsCreated":      report.AccountsCreated,
			"accountsSkipped":      report.AccountsSkipped,
			"openingApplied":       report.OpeningApplied,
			"openingReplayed":      report.OpeningReplayed,
			"transactionsApplied":  report.TransactionsApplied,
			"transactionsReplayed": report.TransactionsReplayed,
			"transactionsFailed":   report.TransactionsFailed,
		}).Info("done")
	}
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}
