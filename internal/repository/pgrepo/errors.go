package pgrepo

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	numericOutOfRangeCode   = "22003"
	serializationFailure    = "40001"
	deadlockDetected        = "40P01"
)

// convertErr преобразует ошибку к стандартному виду для слоя репозитория.
// Добавляет форматированное сообщение контекста, тип бизнес-ошибки и оригинальное сообщение.
// Особенности:
//   - pgx.ErrNoRows и нарушение внешнего ключа возвращаются как ErrRecordNotFound из domain.
//   - Дубликаты ключей (uniqueViolationCode) как ErrDuplicateKey.
//   - Нарушение CHECK ограничения (неотрицательный баланс) как ErrNotEnoughBalance.
//   - Переполнение числового поля (numericOutOfRangeCode) как ErrAmountOutOfRange.
//   - Ошибки сериализации и дедлоки как ErrConflict, такую операцию можно повторить целиком.
//   - Все остальные ошибки возвращаются как ErrUnknown с оригинальным сообщением.
func convertErr(err error, format string, formatArgs ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, formatArgs...)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("[repository/%s] %w", msg, domain.ErrRecordNotFound)
	}

	var pgErr *pgconn.PgError
	errType := domain.ErrUnknown

	if errors.As(err, &pgErr) {
		errType = errTypeByCode(pgErr.Code)
	}

	return fmt.Errorf("[repository/%s] %w: %s", msg, errType, err.Error())
}

func errTypeByCode(code string) error {
	switch code {
	case uniqueViolationCode:
		return domain.ErrDuplicateKey
	case foreignKeyViolationCode:
		return domain.ErrRecordNotFound
	case checkViolationCode:
		return domain.ErrNotEnoughBalance
	case numericOutOfRangeCode:
		return domain.ErrAmountOutOfRange
	case serializationFailure, deadlockDetected:
		return domain.ErrConflict
	default:
		return domain.ErrUnknown
	}
}
