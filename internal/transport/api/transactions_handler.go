package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	dateLayout = "2006-01-02"
	// naiveTimestampLayout время без зоны трактуется как UTC. Дробная часть секунд необязательна.
	naiveTimestampLayout = "2006-01-02T15:04:05.999999999"
)

// Timestamp время транзакции в запросе. Принимает RFC 3339 и ISO 8601 без зоны.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %s", err.Error())
	}
	parsed, err := parseTimestamp(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(naiveTimestampLayout, raw); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp '%s'", raw)
}

// parseDate разбирает границу интервала фильтра: дата (полночь UTC) или полная метка времени.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if d, err := time.Parse(dateLayout, raw); err == nil {
		return d, nil
	}
	if ts, err := parseTimestamp(raw); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid date '%s'", raw)
}

type TransactionsHandler struct {
	txSvs TransactionServicer
}

func NewTransactionsHandler(txSvs TransactionServicer) *TransactionsHandler {
	return &TransactionsHandler{
		txSvs: txSvs,
	}
}

// CreateTransactionParams amount и timestamp указатели: required для структур не проверяет нулевые значения,
// а нулевая сумма допустима.
type CreateTransactionParams struct {
	TransactionID string           `binding:"required,notblank,max_bytes=64" json:"transactionId"`
	UserID        string           `binding:"required,notblank,max_bytes=64" json:"userId"`
	Amount        *decimal.Decimal `binding:"required"                       json:"amount"`
	Timestamp     *Timestamp       `binding:"required"                       json:"timestamp"`
}

type TransactionResponse struct {
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	Amount        float64   `json:"amount"`
	Timestamp     time.Time `json:"timestamp"`
}

// Create POST TransactionsRoute. Проводит транзакцию по счету.
func (h *TransactionsHandler) Create(c *gin.Context) {
	var params CreateTransactionParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	if amountErr := domain.ValidateAmount(*params.Amount); amountErr != nil {
		_ = c.AbortWithError(http.StatusUnprocessableEntity, invalidAmountErr(amountErr, *params.Amount)).
			SetType(gin.ErrorTypePublic)
		return
	}

	ctx, cancel := context.WithTimeout(c, ProposeServiceTimeout)
	defer cancel()

	result, err := h.txSvs.Propose(ctx, service.ProposeTransactionArgs{
		TransactionID: params.TransactionID,
		UserID:        params.UserID,
		Amount:        *params.Amount,
		Timestamp:     params.Timestamp.Time,
	})
	if err != nil {
		var duplicateErr *domain.DuplicateTransactionError
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			_ = c.AbortWithError(http.StatusNotFound, userNotFoundErr(params.UserID)).SetType(gin.ErrorTypePublic)
		case errors.Is(err, domain.ErrNotEnoughBalance):
			_ = c.AbortWithError(http.StatusBadRequest, insufficientBalanceErr(params.UserID)).
				SetType(gin.ErrorTypePublic)
		case errors.Is(err, domain.ErrAmountOutOfRange), errors.Is(err, domain.ErrAmountPrecision):
			// баланс счета после проведения вышел бы за допустимые пределы.
			_ = c.AbortWithError(http.StatusUnprocessableEntity, invalidAmountErr(err, *params.Amount)).
				SetType(gin.ErrorTypePublic)
		case errors.As(err, &duplicateErr):
			_ = c.AbortWithError(http.StatusConflict,
				fmt.Errorf("Transaction with id '%s' already exists", params.TransactionID)). //nolint:stylecheck
				SetType(gin.ErrorTypePublic)
		case errors.Is(err, domain.ErrTransient):
			// транзакция не проведена, клиент может безопасно повторить запрос.
			c.Header("Retry-After", "1")
			_ = c.AbortWithError(http.StatusServiceUnavailable, err).SetType(gin.ErrorTypePrivate)
		default:
			_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		}
		return
	}

	if result.Replayed {
		c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Transaction already processed."})
		return
	}
	c.JSON(http.StatusCreated, MessageResponse{Success: true, Message: "Transaction created successfully."})
}

type ListTransactionsParams struct {
	UserID    string `binding:"required,notblank" form:"userId"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

// Index GET TransactionsRoute. Журнал счета в полуоткрытом интервале [startDate, endDate).
func (h *TransactionsHandler) Index(c *gin.Context) {
	var params ListTransactionsParams
	if bindErr := c.ShouldBindQuery(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	from, fromErr := parseDate(params.StartDate)
	if fromErr != nil {
		_ = c.AbortWithError(http.StatusUnprocessableEntity, fromErr).SetType(gin.ErrorTypePublic)
		return
	}
	to, toErr := parseDate(params.EndDate)
	if toErr != nil {
		_ = c.AbortWithError(http.StatusUnprocessableEntity, toErr).SetType(gin.ErrorTypePublic)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transactions, err := h.txSvs.List(ctx, service.ListTransactionsArgs{
		UserID: params.UserID,
		From:   from,
		To:     to,
	})
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	var response = make([]TransactionResponse, len(transactions))
	for i, transaction := range transactions {
		response[i] = TransactionResponse{
			TransactionID: transaction.TransactionID,
			UserID:        transaction.UserID,
			Amount:        transaction.Amount.InexactFloat64(),
			Timestamp:     transaction.Timestamp.UTC(),
		}
	}

	c.JSON(http.StatusOK, response)
}
