package pgrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/groph-ledger/pkg/uow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = "id, transaction_id, user_id, amount, timestamp"

type TransactionRepository struct {
	conn uow.DBTX
}

func NewTransactionRepository(conn uow.DBTX) *TransactionRepository {
	return &TransactionRepository{conn: conn}
}

// Create добавляет запись в журнал. Идентификатор записи генерируется здесь.
// Повтор transaction_id - domain.ErrDuplicateKey, отсутствующий счет - domain.ErrRecordNotFound.
func (t *TransactionRepository) Create(
	ctx context.Context,
	args repoargs.CreateTransaction,
) (*domain.Transaction, error) {
	id, idErr := uuid.NewRandom()
	if idErr != nil {
		return nil, convertErr(idErr, "generating transaction id")
	}
	row := t.conn.QueryRow(ctx, `
		INSERT INTO transactions (id, transaction_id, user_id, amount, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+transactionColumns,
		id, args.TransactionID, args.UserID, args.Amount, args.Timestamp,
	)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "creating transaction `%s`", args.TransactionID)
	}
	return transaction, nil
}

func (t *TransactionRepository) FindByTransactionID(
	ctx context.Context,
	transactionID string,
) (*domain.Transaction, error) {
	row := t.conn.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE transaction_id = $1`,
		transactionID,
	)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "finding transaction `%s`", transactionID)
	}
	return transaction, nil
}

// ListByUserID возвращает журнал счета в интервале [From, To), отсортированный по timestamp по возрастанию.
func (t *TransactionRepository) ListByUserID(
	ctx context.Context,
	args repoargs.ListTransactions,
) ([]domain.Transaction, error) {
	conditions := []string{"user_id = $1"}
	queryArgs := []any{args.UserID}

	if !args.From.IsZero() {
		queryArgs = append(queryArgs, args.From)
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", len(queryArgs)))
	}
	if !args.To.IsZero() {
		queryArgs = append(queryArgs, args.To)
		conditions = append(conditions, fmt.Sprintf("timestamp < $%d", len(queryArgs)))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY timestamp, id`

	rows, err := t.conn.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, convertErr(err, "listing transactions of `%s`", args.UserID)
	}
	transactions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Transaction, error) {
		transaction, scanErr := scanTransaction(row)
		if scanErr != nil {
			return domain.Transaction{}, scanErr
		}
		return *transaction, nil
	})
	if err != nil {
		return nil, convertErr(err, "listing transactions of `%s`", args.UserID)
	}
	return transactions, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var transaction domain.Transaction
	if err := row.Scan(
		&transaction.ID,
		&transaction.TransactionID,
		&transaction.UserID,
		&transaction.Amount,
		&transaction.Timestamp,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &transaction, nil
}
