package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use and tests.
type InMemoryStore struct {
	mu        sync.RWMutex
	users     map[string]User
	turns     map[string][]Turn
	memories  map[string]string
	summaries map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:     make(map[string]User),
		turns:     make(map[string][]Turn),
		memories:  make(map[string]string),
		summaries: make(map[string]string),
	}
}

func (s *InMemoryStore) CreateUser(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = user
	return nil
}

func (s *InMemoryStore) UserByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *InMemoryStore) UserByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *InMemoryStore) UpdateUser(_ context.Context, id, name, passwordHash string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	if name != "" {
		u.Name = name
	}
	if passwordHash != "" {
		u.PasswordHash = passwordHash
	}
	s.users[id] = u
	return u, nil
}

func (s *InMemoryStore) DeleteUser(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	delete(s.users, id)
	return u, nil
}

func (s *InMemoryStore) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *InMemoryStore) ReadHistory(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.turns[userID]
	if len(turns) == 0 {
		return "", nil
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, t.Role+": "+t.Message)
	}
	return strings.Join(lines, "\n"), nil
}

func (s *InMemoryStore) AppendTurn(_ context.Context, userID, role, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[userID] = append(s.turns[userID], Turn{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *InMemoryStore) ReadMemory(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memories[userID], nil
}

func (s *InMemoryStore) UpdateMemory(_ context.Context, userID, memory string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[userID] = memory
	return nil
}

func (s *InMemoryStore) ReadSummary(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summaries[userID], nil
}

func (s *InMemoryStore) UpsertSummary(_ context.Context, userID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[userID] = summary
	return nil
}

func (s *InMemoryStore) Close() error { return nil }

// Turns exposes the raw turn slice for assertions in tests.
func (s *InMemoryStore) Turns(userID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns[userID]))
	copy(out, s.turns[userID])
	return out
}
