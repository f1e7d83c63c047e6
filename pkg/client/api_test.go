package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPI_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"messages":[],"onlineCount":0}`))
	}))
	defer srv.Close()

	api := New(srv.URL, "tok123")
	_, err := api.FetchFeed(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "Bearer tok123", gotAuth)
}

func TestAPI_ErrorBodySurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"Edit window has expired"}`))
	}))
	defer srv.Close()

	api := New(srv.URL, "tok")
	err := api.EditMessage(context.Background(), "m1", "fixed")
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "Edit window has expired", apiErr.Message)
}

func TestAPI_TypingSwallowsRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"Too many requests. Please slow down."}`))
	}))
	defer srv.Close()

	api := New(srv.URL, "tok")
	assert.NoError(t, api.Typing(context.Background()))
}

func TestAPI_TypingOtherErrorsPropagate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Unauthorized"}`))
	}))
	defer srv.Close()

	api := New(srv.URL, "tok")
	assert.Error(t, api.Typing(context.Background()))
}
