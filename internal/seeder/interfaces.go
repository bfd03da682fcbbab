package seeder

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrAccountExists счет с таким userId уже создан.
var ErrAccountExists = errors.New("account already exists")

type Account struct {
	UserID         string
	Name           string
	Email          string
	OpeningBalance decimal.Decimal
}

type Transaction struct {
	TransactionID string
	UserID        string
	Amount        decimal.Decimal
	Timestamp     time.Time
}

// Ledger куда сеятель пишет данные: напрямую в сервисный слой или через HTTP API.
type Ledger interface {
	// CreateAccount возвращает ErrAccountExists, если счет уже есть.
	CreateAccount(ctx context.Context, account Account) error
	// Propose возвращает true, если транзакция уже была проведена ранее.
	Propose(ctx context.Context, transaction Transaction) (bool, error)
}
