package repo

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"DamOpt/internal/calc/dam"
)

type MemoryStore struct {
	mu      sync.RWMutex
	now     func() time.Time
	nextID  int64
	records []Record
	userID  int64
	users   map[string]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now, users: make(map[string]User)}
}

func (s *MemoryStore) Init(_ context.Context) error {
	return nil
}

func (s *MemoryStore) Insert(_ context.Context, res dam.Result) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.records = append(s.records, clone(Record{ID: s.nextID, Timestamp: s.now().UTC(), Result: res}))
	return s.nextID, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ID == id {
			return clone(r), true, nil
		}
	}
	return Record{}, false, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Record, error) {
	return s.Search(ctx, Filter{})
}

func (s *MemoryStore) Search(_ context.Context, f Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Record{}
	for i := len(s.records) - 1; i >= 0; i-- {
		if f.match(s.records[i].Result) {
			out = append(out, clone(s.records[i]))
		}
	}
	slices.SortStableFunc(out, func(a, b Record) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.records {
		if r.ID == id {
			s.records = slices.Delete(s.records, i, i+1)
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, login, email, passwordHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(login)
	if _, ok := s.users[key]; ok {
		return 0, ErrDuplicate
	}
	s.userID++
	s.users[key] = User{ID: s.userID, Login: login, Email: email, Password: passwordHash}
	return s.userID, nil
}

func (s *MemoryStore) GetByLogin(_ context.Context, login string) (User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[strings.ToLower(login)]
	return u, ok, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// clone detaches r from every slice and pointer the caller may still hold.
func clone(r Record) Record {
	r.LossHistory = slices.Clone(r.LossHistory)
	if r.Input.Seed != nil {
		seed := *r.Input.Seed
		r.Input.Seed = &seed
	}
	return r
}
