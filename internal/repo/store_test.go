package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"DamOpt/internal/calc/dam"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func sampleResult(t *testing.T, h, m float64) dam.Result {
	t.Helper()
	in := dam.DefaultInput(h)
	in.Epochs = 3
	seed := uint64(1) << 63 // high bit must survive the int64 column
	in.Seed = &seed
	p := dam.Params{N: 0.2, M: m, Xi: 0.3}
	st, err := dam.Evaluate(in.Site(), p)
	require.NoError(t, err)
	res := dam.Assemble(in, p, st, []float64{30, 20.5, 10.25}, 1500*time.Millisecond)
	res.RunID = "run-" + filepath.Base(t.Name())
	res.SeedUsed = seed
	return res
}

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, st Store, tick func()) {
	ctx := context.Background()

	first := sampleResult(t, 60, 0.8)
	id1, err := st.Insert(ctx, first)
	require.NoError(t, err)
	tick()
	id2, err := st.Insert(ctx, sampleResult(t, 60.005, 0.6))
	require.NoError(t, err)
	tick()
	id3, err := st.Insert(ctx, sampleResult(t, 120, 0.9))
	require.NoError(t, err)
	require.Less(t, id1, id2)
	require.Less(t, id2, id3)

	got, ok, err := st.Get(ctx, id1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id1, got.ID)
	require.False(t, got.Timestamp.IsZero())
	if diff := cmp.Diff(first.LossHistory, got.LossHistory); diff != "" {
		t.Fatalf("loss history mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, first.Params, got.Params)
	require.Equal(t, *first.Input.Seed, *got.Input.Seed)
	require.Equal(t, first.SeedUsed, got.SeedUsed)
	require.Equal(t, first.Physics, got.Physics)
	require.Equal(t, first.StabilityOK, got.StabilityOK)
	require.Equal(t, 10.25, got.FinalLoss)

	_, ok, err = st.Get(ctx, 9999)
	require.NoError(t, err)
	require.False(t, ok)

	all, err := st.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{id3, id2, id1}, ids(all))

	h := 60.0
	byH, err := st.Search(ctx, Filter{H: &h})
	require.NoError(t, err)
	require.Equal(t, []int64{id2, id1}, ids(byH))

	minK := first.K + 1e-9
	byK, err := st.Search(ctx, Filter{MinK: &minK})
	require.NoError(t, err)
	for _, r := range byK {
		require.GreaterOrEqual(t, r.K, minK)
	}
	require.NotContains(t, ids(byK), id1)

	deleted, err := st.Delete(ctx, id2)
	require.NoError(t, err)
	require.True(t, deleted)
	deleted, err = st.Delete(ctx, id2)
	require.NoError(t, err)
	require.False(t, deleted)

	all, err = st.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{id3, id1}, ids(all))

	uid, err := st.CreateUser(ctx, "engineer", "eng@example.com", "hash")
	require.NoError(t, err)
	_, err = st.CreateUser(ctx, "engineer", "other@example.com", "hash2")
	require.ErrorIs(t, err, ErrDuplicate)
	// logins are unique regardless of case on every backend
	_, err = st.CreateUser(ctx, "Engineer", "other@example.com", "hash2")
	require.ErrorIs(t, err, ErrDuplicate)

	u, ok, err := st.GetByLogin(ctx, "ENGINEER")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uid, u.ID)
	require.Equal(t, "hash", u.Password)

	_, ok, err = st.GetByLogin(ctx, "nobody")
	require.NoError(t, err)
	require.False(t, ok)
}

func ids(rs []Record) []int64 {
	out := make([]int64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	st := NewMemoryStore()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }
	require.NoError(t, st.Init(context.Background()))

	exerciseStore(t, st, func() { clock = clock.Add(time.Second) })
}

func TestSQLiteStore(t *testing.T) {
	st := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "dam.db"))
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }
	require.NoError(t, st.Init(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	exerciseStore(t, st, func() { clock = clock.Add(time.Second) })
}

func TestSQLStoreRequiresInit(t *testing.T) {
	st := NewSQLiteStore(filepath.Join(t.TempDir(), "dam.db"))
	_, err := st.Insert(context.Background(), sampleResult(t, 60, 0.8))
	require.ErrorContains(t, err, "not initialized")
}

func TestMemoryStoreIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	res := sampleResult(t, 60, 0.8)
	id, err := st.Insert(ctx, res)
	require.NoError(t, err)

	res.LossHistory[0] = -1
	*res.Input.Seed = 42
	got, _, err := st.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 30.0, got.LossHistory[0])
	require.Equal(t, uint64(1)<<63, *got.Input.Seed)

	*got.Input.Seed = 7
	again, _, err := st.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, uint64(1)<<63, *again.Input.Seed)
}

func TestSQLiteStoreReportsUnusableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))

	st := NewSQLiteStore(filepath.Join(blocker, "nested", "dam.db"))
	err := st.Init(context.Background())
	require.ErrorContains(t, err, "create data directory")
}

func TestPostgresLoginIsCaseInsensitive(t *testing.T) {
	require.Contains(t, postgresSchema, "CREATE UNIQUE INDEX IF NOT EXISTS users_login_lower ON users (lower(login))")
	require.NotContains(t, postgresSchema, "login TEXT NOT NULL UNIQUE")
}

func TestNewStore(t *testing.T) {
	st, err := NewStore("memory", "")
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, st)

	st, err = NewStore("sqlite", "x.db")
	require.NoError(t, err)
	require.IsType(t, &SQLStore{}, st)

	_, err = NewStore("redis", "")
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://u@h/db":             "postgres://u@h/db?sslmode=require",
		"postgres://u@h/db?x=1":         "postgres://u@h/db?x=1&sslmode=require",
		"user=postgres dbname=dam":      "user=postgres dbname=dam sslmode=require",
		"postgres://u@h/db?sslmode=off": "postgres://u@h/db?sslmode=off",
	}
	for in, want := range cases {
		require.Equal(t, want, postgresDSN(in), in)
	}
}

func TestDollarRebind(t *testing.T) {
	require.Equal(t, "a = $1 AND b = $2", dollarRebind("a = ? AND b = ?"))
}

func TestLossHistoryCodec(t *testing.T) {
	s, err := EncodeLossHistory(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", s)

	h, err := DecodeLossHistory("[1.5,2]")
	require.NoError(t, err)
	require.Equal(t, []float64{1.5, 2}, h)

	_, err = DecodeLossHistory("not json")
	require.Error(t, err)
}
