package repo

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS calculation_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL,
	run_id TEXT NOT NULL,
	status TEXT NOT NULL,
	h REAL NOT NULL,
	gamma_bt REAL NOT NULL,
	gamma_n REAL NOT NULL,
	f REAL NOT NULL,
	c REAL NOT NULL,
	kc REAL NOT NULL,
	a1 REAL NOT NULL,
	alpha REAL NOT NULL,
	k_factor REAL NOT NULL,
	epochs INTEGER NOT NULL,
	seed INTEGER,
	seed_used INTEGER NOT NULL,
	n REAL NOT NULL,
	m REAL NOT NULL,
	xi REAL NOT NULL,
	area REAL NOT NULL,
	k REAL NOT NULL,
	sigma REAL NOT NULL,
	loss_history TEXT NOT NULL,
	computation_time REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS calculation_results_ts ON calculation_results (ts DESC);
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	login TEXT NOT NULL UNIQUE COLLATE NOCASE,
	email TEXT NOT NULL,
	password TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// NewSQLiteStore returns an embedded store in the file at path. The parent
// directory is created on Init.
func NewSQLiteStore(path string) *SQLStore {
	return &SQLStore{
		dsn: path,
		now: time.Now,
		d: dialect{
			driver:      "sqlite",
			schema:      sqliteSchema,
			rebind:      identity,
			isDuplicate: isSQLiteDuplicate,
			configure: func(db *sql.DB) {
				// one writer; sqlite serialises anyway
				db.SetMaxOpenConns(1)
			},
			prepare: func() error {
				dir := filepath.Dir(path)
				if dir == "." || dir == "" {
					return nil
				}
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create data directory: %w", err)
				}
				return nil
			},
		},
	}
}

func isSQLiteDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
