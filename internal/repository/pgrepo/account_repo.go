package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/groph-ledger/pkg/uow"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const accountColumns = "user_id, created_at, name, email, balance"

type AccountRepository struct {
	conn uow.DBTX
}

func NewAccountRepository(conn uow.DBTX) *AccountRepository {
	return &AccountRepository{conn: conn}
}

// Create создает счет с нулевым балансом. Если счет с таким user_id уже есть - domain.ErrDuplicateKey.
func (a *AccountRepository) Create(ctx context.Context, args repoargs.CreateAccount) (*domain.Account, error) {
	row := a.conn.QueryRow(ctx,
		`INSERT INTO accounts (user_id, name, email) VALUES ($1, $2, $3) RETURNING `+accountColumns,
		args.UserID, args.Name, args.Email,
	)
	account, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "creating account `%s`", args.UserID)
	}
	return account, nil
}

func (a *AccountRepository) FindByUserID(ctx context.Context, userID string) (*domain.Account, error) {
	row := a.conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID)
	account, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "finding account `%s`", userID)
	}
	return account, nil
}

// FindByUserIDForUpdate читает счет и блокирует строку до конца транзакции. Конкурентные вызовы
// для того же счета ждут фиксации и видят уже обновленный баланс. Вне транзакции смысла не имеет.
func (a *AccountRepository) FindByUserIDForUpdate(ctx context.Context, userID string) (*domain.Account, error) {
	row := a.conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 FOR UPDATE`, userID)
	account, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "locking account `%s`", userID)
	}
	return account, nil
}

// List возвращает все счета, отсортированные по дате создания.
func (a *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := a.conn.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, user_id`)
	if err != nil {
		return nil, convertErr(err, "listing accounts")
	}
	accounts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Account, error) {
		account, scanErr := scanAccount(row)
		if scanErr != nil {
			return domain.Account{}, scanErr
		}
		return *account, nil
	})
	if err != nil {
		return nil, convertErr(err, "listing accounts")
	}
	return accounts, nil
}

// Delete удаляет счет вместе с его журналом (ON DELETE CASCADE). Если счета нет - domain.ErrRecordNotFound.
func (a *AccountRepository) Delete(ctx context.Context, userID string) error {
	tag, err := a.conn.Exec(ctx, `DELETE FROM accounts WHERE user_id = $1`, userID)
	if err != nil {
		return convertErr(err, "deleting account `%s`", userID)
	}
	if tag.RowsAffected() == 0 {
		return convertErr(pgx.ErrNoRows, "deleting account `%s`", userID)
	}
	return nil
}

// IncrementBalance атомарно прибавляет delta к балансу. Если итог окажется отрицательным, сработает
// CHECK ограничение и вернется domain.ErrNotEnoughBalance.
func (a *AccountRepository) IncrementBalance(
	ctx context.Context,
	userID string,
	delta decimal.Decimal,
) (*domain.Account, error) {
	row := a.conn.QueryRow(ctx,
		`UPDATE accounts SET balance = balance + $2 WHERE user_id = $1 RETURNING `+accountColumns,
		userID, delta,
	)
	account, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "incrementing balance of `%s` by %s", userID, delta)
	}
	return account, nil
}

// Summary одним запросом соединяет счет с его журналом и считает транзакции.
func (a *AccountRepository) Summary(ctx context.Context, userID string) (*domain.AccountSummary, error) {
	var summary domain.AccountSummary
	err := a.conn.QueryRow(ctx, `
		SELECT a.user_id, a.balance, COUNT(t.id)
		FROM accounts a
		LEFT JOIN transactions t ON t.user_id = a.user_id
		WHERE a.user_id = $1
		GROUP BY a.user_id, a.balance`,
		userID,
	).Scan(&summary.UserID, &summary.Balance, &summary.TransactionCount)
	if err != nil {
		return nil, convertErr(err, "getting summary for `%s`", userID)
	}
	return &summary, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.UserID,
		&account.CreatedAt,
		&account.Name,
		&account.Email,
		&account.Balance,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &account, nil
}
