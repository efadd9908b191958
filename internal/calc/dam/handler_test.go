package dam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSaver struct {
	saved []Result
	err   error
}

func (f *fakeSaver) Insert(_ context.Context, res Result) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, res)
	return int64(len(f.saved)), nil
}

func TestHandlerOptimize(t *testing.T) {
	store := &fakeSaver{}
	h := &Handler{Store: store, Options: quietOptions()}

	body := `{"H": 40, "epochs": 20, "seed": 3}`
	rec := httptest.NewRecorder()
	h.Optimize(rec, httptest.NewRequest(http.MethodPost, "/api/dam/optimize", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp OptimizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(1), resp.ID)
	require.Len(t, resp.Result.LossHistory, 20)
	require.Equal(t, 40.0, resp.Result.H)
	// unspecified constants fall back to the reference values
	require.Equal(t, 2.4, resp.Result.GammaBT)
	require.Len(t, store.saved, 1)
}

func TestHandlerOptimizeErrors(t *testing.T) {
	h := &Handler{Options: quietOptions()}

	cases := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"H":`, http.StatusBadRequest},
		{"out of range", `{"H": 500, "epochs": 5}`, http.StatusBadRequest},
		{"missing height", `{"epochs": 5}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Optimize(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body)))
			require.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestHandlerOptimizeStorageFailure(t *testing.T) {
	h := &Handler{Store: &fakeSaver{err: errors.New("disk full")}, Options: quietOptions()}
	rec := httptest.NewRecorder()
	h.Optimize(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"H": 40, "epochs": 2}`)))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandlerOptimizeCanceled(t *testing.T) {
	h := &Handler{Options: quietOptions()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"H": 40, "epochs": 100}`)).WithContext(ctx)

	rec := httptest.NewRecorder()
	h.Optimize(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp OptimizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, StatusCanceled, resp.Result.Status)
	require.NotEmpty(t, resp.Error)
}

func TestHandlerEvaluate(t *testing.T) {
	h := &Handler{}
	rec := httptest.NewRecorder()
	body := `{"H": 10, "n": 0, "m": 1, "xi": 0.5}`
	h.Evaluate(rec, httptest.NewRequest(http.MethodPost, "/api/dam/evaluate", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp EvaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.InDelta(t, 1.36, resp.Physics.K, 1e-12)
	require.InDelta(t, 8.0, resp.Physics.Sigma, 1e-9)
	require.InDelta(t, 100*8.0*8.0+0.01*50, resp.Loss.Total, 1e-6)
	require.Len(t, resp.Figure.Forces, 6)
}

func TestHandlerEvaluateDegenerate(t *testing.T) {
	h := &Handler{}
	rec := httptest.NewRecorder()
	h.Evaluate(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"H": 10, "n": 0, "m": 0, "xi": 0.5}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "degenerate")
}

func TestHandlerEvaluateRejectsExtremeInput(t *testing.T) {
	h := &Handler{}
	for body, code := range map[string]int{
		`{"H": 1e160, "n": 0.1, "m": 1, "xi": 0.5}`: http.StatusBadRequest,
		`{"H": 60, "gamma_n": 50, "m": 1}`:          http.StatusBadRequest,
		`{"H": 10, "n": 0, "m": 1e300, "xi": 0.5}`:  http.StatusUnprocessableEntity,
	} {
		rec := httptest.NewRecorder()
		h.Evaluate(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		require.Equal(t, code, rec.Code, body)
		require.NotZero(t, rec.Body.Len(), body)
	}
}

func TestWriteJSONUnencodable(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"sigma": math.NaN()})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWriteError(t *testing.T) {
	cases := map[error]int{
		&InputError{Field: "H"}:                    http.StatusBadRequest,
		fmt.Errorf("x: %w", ErrDegenerateGeometry): http.StatusBadRequest,
		&DivergenceError{Epoch: 3}:                 http.StatusUnprocessableEntity,
		ErrCanceled:                                http.StatusServiceUnavailable,
		errors.New("boom"):                         http.StatusInternalServerError,
	}
	for err, code := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, err)
		require.Equal(t, code, rec.Code, err.Error())
	}
}
