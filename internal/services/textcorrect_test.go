package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrectOrOriginal_DisabledPassesThrough(t *testing.T) {
	Corrector = nil
	assert.Equal(t, "teh text", CorrectOrOriginal(context.Background(), "teh text"))
}

func TestCorrectOrOriginal_UsesCorrection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"corrected":"the text"}`))
	}))
	defer srv.Close()

	Corrector = &httpCorrector{url: srv.URL, client: srv.Client()}
	defer func() { Corrector = nil }()

	assert.Equal(t, "the text", CorrectOrOriginal(context.Background(), "teh text"))
}

func TestCorrectOrOriginal_FallsBackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	Corrector = &httpCorrector{url: srv.URL, client: srv.Client()}
	defer func() { Corrector = nil }()

	assert.Equal(t, "teh text", CorrectOrOriginal(context.Background(), "teh text"))
}

func TestCorrectOrOriginal_FallsBackOnEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"corrected":""}`))
	}))
	defer srv.Close()

	Corrector = &httpCorrector{url: srv.URL, client: srv.Client()}
	defer func() { Corrector = nil }()

	assert.Equal(t, "keep me", CorrectOrOriginal(context.Background(), "keep me"))
}

func TestCorrectOrOriginal_UnreachableService(t *testing.T) {
	Corrector = &httpCorrector{url: "http://127.0.0.1:1", client: http.DefaultClient}
	defer func() { Corrector = nil }()

	assert.Equal(t, "still here", CorrectOrOriginal(context.Background(), "still here"))
}
