package middlewares

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(l *logrus.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(l), Errors())
	r.GET("/public", func(c *gin.Context) {
		_ = c.AbortWithError(http.StatusNotFound, errors.New("nothing here")).SetType(gin.ErrorTypePublic)
	})
	r.GET("/private", func(c *gin.Context) {
		_ = c.AbortWithError(http.StatusInternalServerError, errors.New("db password leaked")).
			SetType(gin.ErrorTypePrivate)
	})
	r.GET("/own-body", func(c *gin.Context) {
		_ = c.Error(errors.New("logged only"))
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": []string{"field"}})
	})
	r.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func serve(r http.Handler, path string, accept string) (int, string) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	body, _ := io.ReadAll(rec.Result().Body)
	return rec.Code, string(body)
}

func TestErrors(t *testing.T) {
	l, _ := test.NewNullLogger()
	r := newTestRouter(l)

	cases := []struct {
		name       string
		path       string
		accept     string
		wantStatus int
		wantBody   string
	}{
		{name: "public error", path: "/public", wantStatus: http.StatusNotFound, wantBody: `{"error":"nothing here"}`},
		{name: "private error hidden", path: "/private", wantStatus: http.StatusInternalServerError, wantBody: `{"error":"internal server error"}`},
		{name: "plain text", path: "/public", accept: "text/plain", wantStatus: http.StatusNotFound, wantBody: "nothing here"},
		{name: "handler body kept", path: "/own-body", wantStatus: http.StatusUnprocessableEntity, wantBody: `{"error":["field"]}`},
		{name: "no errors", path: "/ok", wantStatus: http.StatusOK, wantBody: "ok"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			status, body := serve(r, c.path, c.accept)
			assert.Equal(t, c.wantStatus, status)
			assert.Equal(t, c.wantBody, body)
		})
	}
}

func TestLogger(t *testing.T) {
	l, hook := test.NewNullLogger()
	r := newTestRouter(l)

	serve(r, "/private?x=1", "")
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "/private?x=1", entry.Data["path"])
	assert.Equal(t, http.StatusInternalServerError, entry.Data["status"])
	assert.Contains(t, entry.Data["errors"], "db password leaked")

	serve(r, "/public", "")
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	serve(r, "/ok", "")
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}
