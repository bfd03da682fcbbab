package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func statusErrorText(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad request"
	case http.StatusNotFound:
		return "not found"
	case http.StatusUnprocessableEntity:
		return "unprocessable entity"
	case http.StatusConflict:
		return "conflict"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable, try again later"
	default:
		return "internal server error"
	}
}

// Errors отдает клиенту первую ошибку из контекста gin. Текст публичных ошибок отдается как есть, вместо
// приватных - описание статуса ответа. Ответ в JSON, если клиент явно не просит text/plain.
func Errors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// заголовки к этому моменту уже отправлены AbortWithError, но тело ответа хендлер мог записать сам.
		if len(c.Errors) == 0 || c.Writer.Size() > 0 {
			return
		}

		// обрабатываем только первую ошибку
		firstErr := c.Errors[0]
		var msg string
		if firstErr.IsType(gin.ErrorTypePublic) {
			msg = firstErr.Error()
		} else {
			msg = statusErrorText(c.Writer.Status())
		}

		if strings.Contains(c.GetHeader("Accept"), "text/plain") {
			c.String(c.Writer.Status(), msg)
		} else {
			c.JSON(c.Writer.Status(), gin.H{"error": msg})
		}
		c.Abort()
	}
}
