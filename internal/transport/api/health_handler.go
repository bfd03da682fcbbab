package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const pingTimeout = time.Second

type HealthHandler struct {
	pinger Pinger
}

func NewHealthHandler(pinger Pinger) *HealthHandler {
	return &HealthHandler{
		pinger: pinger,
	}
}

// Ping GET PingRoute. Проверяет доступность БД.
func (h *HealthHandler) Ping(c *gin.Context) {
	if h.pinger == nil {
		c.AbortWithStatus(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(c, pingTimeout)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		_ = c.AbortWithError(http.StatusServiceUnavailable, err).SetType(gin.ErrorTypePrivate)
		return
	}
	c.AbortWithStatus(http.StatusOK)
}
