package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Account struct {
	UserID    string
	CreatedAt time.Time
	Name      string
	Email     string
	Balance   decimal.Decimal
}

type Transaction struct {
	ID            uuid.UUID
	TransactionID string
	UserID        string
	Amount        decimal.Decimal
	Timestamp     time.Time
}

// AccountSummary агрегат по счету: текущий баланс и кол-во транзакций в журнале.
type AccountSummary struct {
	UserID           string
	Balance          decimal.Decimal
	TransactionCount int64
}

const (
	// AmountScale кол-во знаков после запятой, с которым хранятся суммы (NUMERIC(20, 6)).
	AmountScale int32 = 6
	// amountIntegerDigits кол-во знаков до запятой, модуль суммы строго меньше 10^14.
	amountIntegerDigits int32 = 14
)

var maxAmountExclusive = decimal.New(1, amountIntegerDigits)

// ValidateAmount проверяет, что сумму можно сохранить без потерь: модуль меньше 10^14 и не больше
// AmountScale знаков после запятой. Возвращает ErrAmountOutOfRange или ErrAmountPrecision.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Abs().GreaterThanOrEqual(maxAmountExclusive) {
		return fmt.Errorf("%w: %s", ErrAmountOutOfRange, amount.String())
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: %s", ErrAmountPrecision, amount.String())
	}
	return nil
}
