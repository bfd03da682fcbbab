package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/service"
	"github.com/gin-gonic/gin"
)

type AccountsHandler struct {
	accountSvs AccountServicer
}

func NewAccountsHandler(accountSvs AccountServicer) *AccountsHandler {
	return &AccountsHandler{
		accountSvs: accountSvs,
	}
}

// CreateAccountParams userId ограничен размером колонки accounts.user_id.
type CreateAccountParams struct {
	UserID string `binding:"required,notblank,max_bytes=64"  json:"userId"`
	Name   string `binding:"required,notblank,max_bytes=255" json:"name"`
	Email  string `binding:"required,email,max_bytes=255"    json:"email"`
}

type AccountResponse struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
}

func newAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		UserID:    account.UserID,
		Name:      account.Name,
		Email:     account.Email,
		Balance:   account.Balance.InexactFloat64(),
		CreatedAt: account.CreatedAt,
	}
}

// Create POST UsersRoute. Создает счет с нулевым балансом.
func (h *AccountsHandler) Create(c *gin.Context) {
	var params CreateAccountParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	_, createErr := h.accountSvs.Create(ctx, service.CreateAccountArgs{
		UserID: params.UserID,
		Name:   params.Name,
		Email:  params.Email,
	})
	if createErr != nil {
		if errors.Is(createErr, domain.ErrDuplicateKey) {
			_ = c.AbortWithError(http.StatusBadRequest, userAlreadyExistsErr(params.UserID)).
				SetType(gin.ErrorTypePublic)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, createErr).
			SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{Success: true, Message: "User created successfully."})
}

// Index GET UsersRoute.
func (h *AccountsHandler) Index(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	accounts, err := h.accountSvs.List(ctx)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).
			SetType(gin.ErrorTypePrivate)
		return
	}

	var response = make([]AccountResponse, len(accounts))
	for i := range accounts {
		response[i] = newAccountResponse(&accounts[i])
	}
	c.JSON(http.StatusOK, response)
}

// Show GET UserRoute.
func (h *AccountsHandler) Show(c *gin.Context) {
	userID := c.Param("userId")

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	account, err := h.accountSvs.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			_ = c.AbortWithError(http.StatusNotFound, userNotFoundErr(userID)).SetType(gin.ErrorTypePublic)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, newAccountResponse(account))
}

// Delete DELETE UserRoute. Удаляет счет вместе с его журналом.
func (h *AccountsHandler) Delete(c *gin.Context) {
	userID := c.Param("userId")

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	if err := h.accountSvs.Delete(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			_ = c.AbortWithError(http.StatusNotFound, userNotFoundErr(userID)).SetType(gin.ErrorTypePublic)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "User deleted successfully."})
}
