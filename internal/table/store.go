package table

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps the live tables, addressable by id or join code.
type Store struct {
	mu     sync.Mutex
	tables map[uuid.UUID]*Table
	codes  map[string]uuid.UUID
}

func NewStore() *Store {
	return &Store{
		tables: make(map[uuid.UUID]*Table),
		codes:  make(map[string]uuid.UUID),
	}
}

func (s *Store) Add(t *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.ID] = t
	s.codes[t.Code] = t.ID
}

func (s *Store) Get(id uuid.UUID) (*Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	return t, ok
}

// GetByCode looks a table up by its join code, ignoring case.
func (s *Store) GetByCode(code string) (*Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.codes[strings.ToUpper(code)]
	if !ok {
		return nil, false
	}
	t, ok := s.tables[id]
	return t, ok
}

// CodeInUse reports whether a live table already holds code.
func (s *Store) CodeInUse(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.codes[code]
	return ok
}

// Delete closes and removes a table.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	t, ok := s.tables[id]
	if ok {
		delete(s.tables, id)
		if s.codes[t.Code] == id {
			delete(s.codes, t.Code)
		}
	}
	s.mu.Unlock()
	if ok {
		t.Close()
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables)
}

// CleanupIdle removes tables idle for longer than maxIdle and returns their ids.
func (s *Store) CleanupIdle(now time.Time, maxIdle time.Duration) []uuid.UUID {
	s.mu.Lock()
	candidates := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		candidates = append(candidates, t)
	}
	s.mu.Unlock()

	var removed []uuid.UUID
	for _, t := range candidates {
		if now.Sub(t.LastActivity()) > maxIdle {
			s.Delete(t.ID)
			removed = append(removed, t.ID)
		}
	}
	return removed
}

// RunCleanup calls CleanupIdle every interval until ctx is done.
func (s *Store) RunCleanup(ctx context.Context, interval, maxIdle time.Duration, onRemove func(id uuid.UUID)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, id := range s.CleanupIdle(now, maxIdle) {
				if onRemove != nil {
					onRemove(id)
				}
			}
		}
	}
}
