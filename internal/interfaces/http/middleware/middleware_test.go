package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselens/claimsift/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		assert.NotEmpty(t, c.GetString("request_id"))
		c.Status(http.StatusNoContent)
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestIDEchoesClientValue(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := serve(r, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestRequestLoggerEmitsOneLine(t *testing.T) {
	logger := testutil.NewMockLogger()
	r := gin.New()
	r.Use(RequestID(), RequestLogger(logger))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.True(t, logger.HasMessage("info", "http request"))
	messages := logger.GetMessages()
	require.Len(t, messages, 1)
}

func TestRecoveryConvertsPanicTo500(t *testing.T) {
	logger := testutil.NewMockLogger()
	r := gin.New()
	r.Use(Recovery(logger))
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "COMMON_001")
	assert.True(t, logger.HasMessage("error", "panic recovered"))
}
