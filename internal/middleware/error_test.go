package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/aidanmarr1/dt-chat-sub000/pkg/errors"
)

func serveWith(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlerMiddleware())
	r.GET("/x", handler)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/x", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestErrorHandler_AppErrorMapped(t *testing.T) {
	w := serveWith(func(c *gin.Context) {
		c.Error(apperrors.NewAppError(http.StatusServiceUnavailable, "backend unavailable"))
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"backend unavailable"}`, w.Body.String())
}

func TestErrorHandler_PlainErrorIs500(t *testing.T) {
	w := serveWith(func(c *gin.Context) {
		c.Error(assert.AnError)
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())
}

func TestErrorHandler_PanicRecovered(t *testing.T) {
	w := serveWith(func(c *gin.Context) {
		panic("boom")
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"An unexpected error occurred"}`, w.Body.String())
}
