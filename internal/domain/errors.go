package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrUnknown        = errors.New("unknown error")

	ErrNotEnoughBalance = errors.New("not enough balance")

	// ErrAmountOutOfRange сумма или получившийся баланс не помещаются в NUMERIC(20, 6).
	ErrAmountOutOfRange = errors.New("amount out of range")
	// ErrAmountPrecision у суммы больше знаков после запятой, чем хранится.
	ErrAmountPrecision = errors.New("amount has too many decimal places")

	// ErrConflict конкурентная запись помешала завершить транзакцию БД, операцию можно повторить.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrTransient атомарная запись не была применена (ни журнал, ни баланс не изменены).
	ErrTransient = errors.New("transient storage error")
)

// DuplicateTransactionError транзакция с таким transaction_id уже есть в журнале, но с другими данными.
type DuplicateTransactionError struct {
	Transaction *Transaction
}

func NewDuplicateTransactionError(transaction *Transaction) error {
	return &DuplicateTransactionError{Transaction: transaction}
}

func (e *DuplicateTransactionError) Error() string {
	return fmt.Sprintf(
		"transaction with id %s already exists for user with id %s",
		e.Transaction.TransactionID,
		e.Transaction.UserID,
	)
}
