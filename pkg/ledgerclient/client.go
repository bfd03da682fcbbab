// Package ledgerclient HTTP клиент API журнала транзакций.
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

const (
	RouteUsers          = "/users"
	RouteTransactions   = "/transactions"
	RouteAccountSummary = "/account-summary/%s"
)

// Константы минимального и максимально значения в заголовке Retry-After.
const (
	minRetryAfter = 1
	maxRetryAfter = 120
)

const (
	defaultRetryAfter = time.Second
	defaultMaxRetries = 5
)

type CreateUserRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type CreateTransactionRequest struct {
	TransactionID string          `json:"transactionId"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	Timestamp     time.Time       `json:"timestamp"`
}

type SummaryResponse struct {
	UserID           string          `json:"userId"`
	CurrentBalance   decimal.Decimal `json:"currentBalance"`
	TransactionCount int64           `json:"transactionCount"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTPClient клиент API журнала.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
}

func New(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		maxRetries: defaultMaxRetries,
	}
}

// SetMaxRetries кол-во повторов CreateTransaction после ответа UnavailableError.
func (c *HTTPClient) SetMaxRetries(n uint64) *HTTPClient {
	c.maxRetries = n
	return c
}

// CreateUser создает счет. Если счет уже существует, сервер отвечает 400 и возвращается StatusCodeError.
func (c *HTTPClient) CreateUser(ctx context.Context, req CreateUserRequest) error {
	status, err := c.do(ctx, http.MethodPost, RouteUsers, req, nil)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return NewStatusCodeError(status, "")
	}
	return nil
}

// CreateTransaction проводит транзакцию. replayed == true, если транзакция с таким id и теми же данными уже
// была проведена ранее. Повторная отправка безопасна, поэтому при UnavailableError запрос повторяется
// через время из Retry-After, но не более maxRetries раз.
//
//nolint:nonamedreturns
func (c *HTTPClient) CreateTransaction(
	ctx context.Context,
	req CreateTransactionRequest,
) (replayed bool, err error) {
	var wait time.Duration
	backoff := retry.WithMaxRetries(c.maxRetries, retry.BackoffFunc(func() (time.Duration, bool) {
		return wait, false
	}))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		status, doErr := c.do(ctx, http.MethodPost, RouteTransactions, req, nil)
		if doErr != nil {
			var unavailable *UnavailableError
			if errors.As(doErr, &unavailable) {
				wait = unavailable.RetryAfter
				return retry.RetryableError(doErr)
			}
			return doErr
		}

		switch status {
		case http.StatusCreated:
			replayed = false
		case http.StatusOK:
			replayed = true
		default:
			return NewStatusCodeError(status, "")
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return replayed, nil
}

// AccountSummary возвращает текущий баланс и кол-во транзакций счета.
func (c *HTTPClient) AccountSummary(ctx context.Context, userID string) (*SummaryResponse, error) {
	var response SummaryResponse
	status, err := c.do(ctx, http.MethodGet, fmt.Sprintf(RouteAccountSummary, url.PathEscape(userID)), nil, &response)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, NewStatusCodeError(status, "")
	}
	return &response, nil
}

// do выполняет запрос. Статусы 2xx возвращаются как есть, тело ответа декодируется в out (если out != nil).
// Для 503 и 429 возвращает UnavailableError, для остальных StatusCodeError.
//
//nolint:nonamedreturns
func (c *HTTPClient) do(ctx context.Context, method, route string, in any, out any) (status int, err error) {
	var body io.Reader
	if in != nil {
		payload, marshalErr := json.Marshal(in)
		if marshalErr != nil {
			return 0, fmt.Errorf("marshal request: %s", marshalErr.Error())
		}
		body = bytes.NewReader(payload)
	}

	req, reqErr := http.NewRequestWithContext(ctx, method, c.baseURL+route, body)
	if reqErr != nil {
		return 0, fmt.Errorf("create request: %s", reqErr.Error())
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return 0, fmt.Errorf("do request: %w", doErr)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
		return resp.StatusCode, NewUnavailableError(parseRetryAfter(resp.Header.Get("Retry-After")))
	}

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return resp.StatusCode, fmt.Errorf("read response: %s", readErr.Error())
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var errResp errorResponse
		// тело ошибки может быть не объектом (например список ошибок валидации).
		_ = json.Unmarshal(respBody, &errResp)
		return resp.StatusCode, NewStatusCodeError(resp.StatusCode, errResp.Error)
	}

	if out != nil {
		if jsonErr := json.Unmarshal(respBody, out); jsonErr != nil {
			return resp.StatusCode, fmt.Errorf("parse response: %s", jsonErr.Error())
		}
	}
	return resp.StatusCode, nil
}

// parseRetryAfter принимает кол-во секунд. Пустое или неверное значение заменяется на defaultRetryAfter.
func parseRetryAfter(value string) time.Duration {
	minValue := decimal.NewFromInt(minRetryAfter)
	maxValue := decimal.NewFromInt(maxRetryAfter)

	retryAfter, parseErr := decimal.NewFromString(value)
	if parseErr != nil || retryAfter.LessThan(minValue) || retryAfter.GreaterThan(maxValue) {
		return defaultRetryAfter
	}
	return time.Duration(retryAfter.IntPart()) * time.Second
}
