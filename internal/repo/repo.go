package repo

import (
	"context"
	"errors"
	"math"
	"time"

	"DamOpt/internal/calc/dam"
)

// HTolerance is the half-width of the height window used by Search.
const HTolerance = 0.01

// ErrDuplicate is returned when a unique key (user login) already exists.
var ErrDuplicate = errors.New("repo: duplicate key")

// Record is a stored optimization result.
type Record struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	dam.Result
}

// Filter narrows Search. Nil fields are ignored.
type Filter struct {
	H    *float64
	MinK *float64
}

func (f Filter) match(r dam.Result) bool {
	if f.H != nil && math.Abs(r.H-*f.H) >= HTolerance {
		return false
	}
	if f.MinK != nil && r.K < *f.MinK {
		return false
	}
	return true
}

// ResultStore persists one row per optimization run. List and Search
// return newest first.
type ResultStore interface {
	Init(ctx context.Context) error
	Insert(ctx context.Context, res dam.Result) (int64, error)
	Get(ctx context.Context, id int64) (Record, bool, error)
	List(ctx context.Context) ([]Record, error)
	Search(ctx context.Context, f Filter) ([]Record, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Close() error
}

// User is an API account.
type User struct {
	ID       int64
	Login    string
	Email    string
	Password string // bcrypt hash
}

type UserStore interface {
	CreateUser(ctx context.Context, login, email, passwordHash string) (int64, error)
	GetByLogin(ctx context.Context, login string) (User, bool, error)
}

// Store is a backend holding both results and users.
type Store interface {
	ResultStore
	UserStore
}
