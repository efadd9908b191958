package batch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"DamOpt/internal/calc/dam"

	"github.com/stretchr/testify/require"
)

func quiet() dam.Options {
	opts := dam.DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return opts
}

func input(h float64, epochs int) dam.Input {
	in := dam.DefaultInput(h)
	in.Epochs = epochs
	seed := uint64(h)
	in.Seed = &seed
	return in
}

type countingSaver struct {
	mu  sync.Mutex
	n   int64
	err error
}

func (c *countingSaver) Insert(context.Context, dam.Result) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	c.n++
	return c.n, nil
}

func TestRunKeepsOrderAndIsolatesFailures(t *testing.T) {
	store := &countingSaver{}
	r := &Runner{Options: quiet(), Workers: 3, Store: store}
	inputs := []dam.Input{input(20, 30), input(500, 30), input(60, 30), input(90, 30)}

	items, err := r.Run(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, items, 4)

	for i, it := range items {
		require.Equal(t, i, it.Index)
	}
	require.Contains(t, items[1].Error, "invalid input")
	require.Nil(t, items[1].Result)
	for _, i := range []int{0, 2, 3} {
		require.Empty(t, items[i].Error)
		require.Equal(t, inputs[i].H, items[i].Result.H)
		require.Len(t, items[i].Result.LossHistory, 30)
		require.Positive(t, items[i].ID)
	}
	require.Equal(t, int64(3), store.n)
}

func TestRunMatchesSequential(t *testing.T) {
	r := &Runner{Options: quiet(), Workers: 4}
	inputs := []dam.Input{input(30, 40), input(45, 40), input(70, 40)}
	items, err := r.Run(context.Background(), inputs)
	require.NoError(t, err)

	for i, in := range inputs {
		want, err := dam.Optimize(context.Background(), in, quiet())
		require.NoError(t, err)
		require.Equal(t, want.Params, items[i].Result.Params)
	}
}

func TestRunLimits(t *testing.T) {
	r := &Runner{Options: quiet()}
	_, err := r.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmpty)

	_, err = r.Run(context.Background(), make([]dam.Input, MaxItems+1))
	require.Error(t, err)
}

func TestRunStorageFailureAborts(t *testing.T) {
	boom := errors.New("disk full")
	r := &Runner{Options: quiet(), Workers: 1, Store: &countingSaver{err: boom}}
	_, err := r.Run(context.Background(), []dam.Input{input(20, 5), input(30, 5)})
	require.ErrorIs(t, err, boom)
}

func TestHandler(t *testing.T) {
	h := &Handler{Runner: &Runner{Options: quiet(), Workers: 2}}

	rec := httptest.NewRecorder()
	body := `{"items": [{"H": 25, "epochs": 10, "seed": 1}, {"H": 35, "epochs": 10, "Kc": 9}]}`
	h.Optimize(rec, httptest.NewRequest(http.MethodPost, "/api/dam/batch", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"count":2`)
	require.Contains(t, rec.Body.String(), "Kc=9")

	rec = httptest.NewRecorder()
	h.Optimize(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"items": []}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
