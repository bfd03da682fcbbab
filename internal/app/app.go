package app

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/config"
	"github.com/fsdevblog/groph-ledger/internal/logger"
	"github.com/fsdevblog/groph-ledger/internal/repository/pgrepo"
	"github.com/fsdevblog/groph-ledger/internal/service"
	"github.com/fsdevblog/groph-ledger/internal/transport/api"
	"github.com/fsdevblog/groph-ledger/pkg/uow"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const readHeaderTimeout = 5 * time.Second

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

// Run поднимает HTTP сервер и блокируется до сигнала завершения или ошибки сервера. По сигналу сервер
// дожидается завершения активных запросов не дольше Config.ShutdownTimeout.
func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l := logger.Component(a.Logger, "app")
	l.WithFields(logrus.Fields{
		"runAddress":        a.Config.RunAddress,
		"migrationsDir":     a.Config.MigrationsDir,
		"proposeMaxRetries": a.Config.ProposeMaxRetries,
		"proposeRetryBase":  a.Config.ProposeRetryBase.String(),
	}).Info("starting app")

	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return errors.Wrap(connErr, "app run")
	}
	defer conn.Close()

	services, sErr := NewServices(conn, a.Config)
	if sErr != nil {
		return errors.Wrap(sErr, "app run")
	}

	router, routerErr := api.New(api.RouterArgs{
		Logger:             a.Logger,
		AccountService:     services.AccountService,
		TransactionService: services.TransactionService,
		Pinger:             conn,
	})
	if routerErr != nil {
		return errors.Wrap(routerErr, "app run")
	}

	srv := &http.Server{
		Addr:              a.Config.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gCtx := errgroup.WithContext(notifyCtx)
	g.Go(func() error {
		l.Infof("listening on %s", a.Config.RunAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		l.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "http server shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err //nolint:wrapcheck
	}
	// сервер остановлен штатно, значит завершение было по сигналу.
	return notifyCtx.Err() //nolint:wrapcheck
}

// NewServices собирает unit of work поверх пула и сервисы приложения.
func NewServices(conn *pgxpool.Pool, conf *config.Config) (*service.AppServices, error) {
	unitOfWork := uow.NewUnitOfWork(conn)
	if regErr := pgrepo.RegisterRepositories(unitOfWork); regErr != nil {
		return nil, errors.Wrap(regErr, "init UOW")
	}

	services, sErr := service.Factory(unitOfWork, service.FactoryArgs{
		ProposeMaxRetries: conf.ProposeMaxRetries,
		ProposeRetryBase:  conf.ProposeRetryBase,
	})
	if sErr != nil {
		return nil, errors.Wrap(sErr, "init services")
	}
	return services, nil
}
