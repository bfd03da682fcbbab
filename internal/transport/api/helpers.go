package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// abortWithBindError отвечает на ошибку биндинга запроса. Нечитаемое тело - 400, нарушение правил
// валидации или неверный формат поля - 422.
func abortWithBindError(c *gin.Context, bindErr error) {
	var syntaxErr *json.SyntaxError
	if errors.As(bindErr, &syntaxErr) || errors.Is(bindErr, io.EOF) || errors.Is(bindErr, io.ErrUnexpectedEOF) {
		_ = c.AbortWithError(http.StatusBadRequest, errors.New("malformed request body")).
			SetType(gin.ErrorTypePublic)
		return
	}

	var valErrs validator.ValidationErrors
	if errors.As(bindErr, &valErrs) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": validationMessages(valErrs)})
		return
	}
	_ = c.AbortWithError(http.StatusUnprocessableEntity, bindErr).SetType(gin.ErrorTypePublic)
}

func validationMessages(valErrs validator.ValidationErrors) []string {
	msgs := make([]string, len(valErrs))
	for i, fieldErr := range valErrs {
		if fieldErr.Param() != "" {
			msgs[i] = fmt.Sprintf("field '%s' failed on '%s=%s'", fieldErr.Field(), fieldErr.Tag(), fieldErr.Param())
			continue
		}
		msgs[i] = fmt.Sprintf("field '%s' failed on '%s'", fieldErr.Field(), fieldErr.Tag())
	}
	return msgs
}

func userNotFoundErr(userID string) error {
	return fmt.Errorf("User with id '%s' not found", userID) //nolint:stylecheck
}

func userAlreadyExistsErr(userID string) error {
	return fmt.Errorf("User with id '%s' already exists", userID) //nolint:stylecheck
}

func insufficientBalanceErr(userID string) error {
	return fmt.Errorf("User with id '%s' has insufficient balance", userID) //nolint:stylecheck
}

// invalidAmountErr текст ответа на сумму, которую нельзя провести.
func invalidAmountErr(err error, amount decimal.Decimal) error {
	if errors.Is(err, domain.ErrAmountPrecision) {
		return fmt.Errorf("Amount '%s' has more than %d decimal places", amount.String(), domain.AmountScale) //nolint:stylecheck
	}
	return fmt.Errorf("Amount '%s' is out of range", amount.String()) //nolint:stylecheck
}
