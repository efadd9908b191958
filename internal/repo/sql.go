package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"DamOpt/internal/calc/dam"
)

// dialect captures what differs between the SQL backends.
type dialect struct {
	driver      string
	schema      string
	rebind      func(query string) string
	isDuplicate func(err error) bool
	configure   func(db *sql.DB)
	prepare     func() error // runs before the first connection is opened
}

// SQLStore implements Store on database/sql.
type SQLStore struct {
	d   dialect
	dsn string
	now func() time.Time

	mu sync.RWMutex
	db *sql.DB
}

const resultColumns = `ts, run_id, status, h, gamma_bt, gamma_n, f, c, kc, a1, alpha, k_factor,
	epochs, seed, seed_used, n, m, xi, area, k, sigma, loss_history, computation_time`

func (s *SQLStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dsn == "" {
		return fmt.Errorf("%s: data source is required", s.d.driver)
	}
	if s.db != nil {
		return nil
	}

	if s.d.prepare != nil {
		if err := s.d.prepare(); err != nil {
			return err
		}
	}
	db, err := sql.Open(s.d.driver, s.dsn)
	if err != nil {
		return err
	}
	if s.d.configure != nil {
		s.d.configure(db)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if _, err := db.ExecContext(ctx, s.d.schema); err != nil {
		_ = db.Close()
		return fmt.Errorf("create tables: %w", err)
	}

	s.db = db
	return nil
}

func (s *SQLStore) Insert(ctx context.Context, res dam.Result) (int64, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	history, err := EncodeLossHistory(res.LossHistory)
	if err != nil {
		return 0, err
	}
	var seed sql.NullInt64
	if res.Input.Seed != nil {
		seed = sql.NullInt64{Int64: int64(*res.Input.Seed), Valid: true}
	}

	query := s.d.rebind(`INSERT INTO calculation_results (` + resultColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err = db.QueryRowContext(ctx, query,
		s.now().UTC().UnixNano(), res.RunID, string(res.Status),
		res.H, res.GammaBT, res.GammaN, res.F, res.C, res.Kc, res.A1, res.Alpha, res.KFactor,
		res.Epochs, seed, int64(res.SeedUsed),
		res.N, res.M, res.Xi, res.A, res.K, res.Sigma,
		history, res.ComputationTime,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert result: %w", err)
	}
	return id, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (Record, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Record{}, false, err
	}
	row := db.QueryRowContext(ctx, s.d.rebind(`SELECT id, `+resultColumns+` FROM calculation_results WHERE id = ?`), id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("get result %d: %w", id, err)
	}
	return rec, true, nil
}

func (s *SQLStore) List(ctx context.Context) ([]Record, error) {
	return s.Search(ctx, Filter{})
}

func (s *SQLStore) Search(ctx context.Context, f Filter) ([]Record, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	query := `SELECT id, ` + resultColumns + ` FROM calculation_results WHERE 1=1`
	var args []any
	if f.H != nil {
		query += ` AND ABS(h - ?) < ?`
		args = append(args, *f.H, HTolerance)
	}
	if f.MinK != nil {
		query += ` AND k >= ?`
		args = append(args, *f.MinK)
	}
	query += ` ORDER BY ts DESC, id DESC`

	rows, err := db.QueryContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("search results: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) Delete(ctx context.Context, id int64) (bool, error) {
	db, err := s.getDB()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, s.d.rebind(`DELETE FROM calculation_results WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("delete result %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, login, email, passwordHash string) (int64, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	var id int64
	query := s.d.rebind(`INSERT INTO users (login, email, password, created_at) VALUES (?, ?, ?, ?) RETURNING id`)
	err = db.QueryRowContext(ctx, query, login, email, passwordHash, s.now().UTC().UnixNano()).Scan(&id)
	if err != nil {
		if s.d.isDuplicate(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (s *SQLStore) GetByLogin(ctx context.Context, login string) (User, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return User{}, false, err
	}
	var u User
	err = db.QueryRowContext(ctx, s.d.rebind(`SELECT id, login, email, password FROM users WHERE lower(login) = lower(?)`), login).
		Scan(&u.ID, &u.Login, &u.Email, &u.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, false, nil
		}
		return User{}, false, err
	}
	return u, true, nil
}

func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		rec      Record
		ts       int64
		status   string
		seed     sql.NullInt64
		seedUsed int64
		history  string
	)
	r := &rec.Result
	err := sc.Scan(&rec.ID, &ts, &r.RunID, &status,
		&r.H, &r.GammaBT, &r.GammaN, &r.F, &r.C, &r.Kc, &r.A1, &r.Alpha, &r.KFactor,
		&r.Epochs, &seed, &seedUsed,
		&r.N, &r.M, &r.Xi, &r.A, &r.K, &r.Sigma,
		&history, &r.ComputationTime,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Timestamp = time.Unix(0, ts).UTC()
	r.Status = dam.Status(status)
	r.SeedUsed = uint64(seedUsed)
	if seed.Valid {
		v := uint64(seed.Int64)
		r.Input.Seed = &v
	}
	if r.LossHistory, err = DecodeLossHistory(history); err != nil {
		return Record{}, fmt.Errorf("row %d: %w", rec.ID, err)
	}
	restore(r)
	return rec, nil
}

// dollarRebind turns ? placeholders into $1, $2, ...
func dollarRebind(query string) string {
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func identity(query string) string {
	return query
}
