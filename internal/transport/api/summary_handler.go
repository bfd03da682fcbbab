package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/gin-gonic/gin"
)

type SummaryHandler struct {
	svs TransactionServicer
}

func NewSummaryHandler(svs TransactionServicer) *SummaryHandler {
	return &SummaryHandler{
		svs: svs,
	}
}

type SummaryResponse struct {
	UserID           string  `json:"userId"`
	CurrentBalance   float64 `json:"currentBalance"`
	TransactionCount int64   `json:"transactionCount"`
}

// Show GET AccountSummaryRoute.
func (s *SummaryHandler) Show(c *gin.Context) {
	userID := c.Param("userId")

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	summary, err := s.svs.Summary(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			_ = c.AbortWithError(http.StatusNotFound, userNotFoundErr(userID)).SetType(gin.ErrorTypePublic)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, &SummaryResponse{
		UserID:           summary.UserID,
		CurrentBalance:   summary.Balance.InexactFloat64(),
		TransactionCount: summary.TransactionCount,
	})
}
