package repo

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS calculation_results (
	id BIGSERIAL PRIMARY KEY,
	ts BIGINT NOT NULL,
	run_id TEXT NOT NULL,
	status TEXT NOT NULL,
	h DOUBLE PRECISION NOT NULL,
	gamma_bt DOUBLE PRECISION NOT NULL,
	gamma_n DOUBLE PRECISION NOT NULL,
	f DOUBLE PRECISION NOT NULL,
	c DOUBLE PRECISION NOT NULL,
	kc DOUBLE PRECISION NOT NULL,
	a1 DOUBLE PRECISION NOT NULL,
	alpha DOUBLE PRECISION NOT NULL,
	k_factor DOUBLE PRECISION NOT NULL,
	epochs INTEGER NOT NULL,
	seed BIGINT,
	seed_used BIGINT NOT NULL,
	n DOUBLE PRECISION NOT NULL,
	m DOUBLE PRECISION NOT NULL,
	xi DOUBLE PRECISION NOT NULL,
	area DOUBLE PRECISION NOT NULL,
	k DOUBLE PRECISION NOT NULL,
	sigma DOUBLE PRECISION NOT NULL,
	loss_history TEXT NOT NULL,
	computation_time DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS calculation_results_ts ON calculation_results (ts DESC);
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	login TEXT NOT NULL,
	email TEXT NOT NULL,
	password TEXT NOT NULL,
	created_at BIGINT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_login_lower ON users (lower(login));
`

// NewPostgresStore returns a store backed by PostgreSQL. Connection strings
// without an sslmode get sslmode=require.
func NewPostgresStore(connStr string) *SQLStore {
	return &SQLStore{
		dsn: postgresDSN(connStr),
		now: time.Now,
		d: dialect{
			driver:      "postgres",
			schema:      postgresSchema,
			rebind:      dollarRebind,
			isDuplicate: isPostgresDuplicate,
			configure: func(db *sql.DB) {
				db.SetMaxOpenConns(25)
				db.SetMaxIdleConns(25)
				db.SetConnMaxLifetime(5 * time.Minute)
			},
		},
	}
}

func postgresDSN(connStr string) string {
	if connStr == "" || strings.Contains(connStr, "sslmode=") {
		return connStr
	}
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		if strings.Contains(connStr, "?") {
			return connStr + "&sslmode=require"
		}
		return connStr + "?sslmode=require"
	}
	return connStr + " sslmode=require"
}

func isPostgresDuplicate(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
