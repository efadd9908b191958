package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"DamOpt/internal/calc/dam"
	"DamOpt/internal/config"
	"DamOpt/internal/repo"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.Config{TokenKey: "test-key", RateLimit: 1000, RateBurst: 1000, Workers: 2, RunTimeout: time.Minute}
	r := mux.NewRouter()
	HandleList(r, cfg, repo.NewMemoryStore())
	return CORS(r)
}

func call(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServerFlow(t *testing.T) {
	srv := newServer(t)

	rec := call(t, srv, http.MethodPost, "/api/dam/optimize", "", `{"H": 40, "epochs": 5}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, srv, http.MethodPost, "/api/register", "", `{"login":"eng","email":"eng@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var tok struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))

	rec = call(t, srv, http.MethodPost, "/api/dam/optimize", tok.Token, `{"H": 40, "epochs": 5, "seed": 1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var opt dam.OptimizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opt))
	require.Equal(t, int64(1), opt.ID)

	rec = call(t, srv, http.MethodGet, "/api/dam/results?h=40", tok.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = call(t, srv, http.MethodGet, "/api/dam/results/1/report.xlsx", tok.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotZero(t, rec.Body.Len())

	rec = call(t, srv, http.MethodGet, "/api/dam/reports/capabilities", tok.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, srv, http.MethodPost, "/api/dam/batch", tok.Token, `{"items":[{"H": 30, "epochs": 3}, {"H": 1}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, srv, http.MethodDelete, "/api/dam/results/1", tok.Token, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = call(t, srv, http.MethodGet, "/api/dam/results/1", tok.Token, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	rec := call(t, newServer(t), http.MethodOptions, "/api/dam/optimize", "", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
