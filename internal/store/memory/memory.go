package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"subtrack/internal/core"
)

const idPrefix = "sub_"

type Store struct {
	mu    sync.Mutex
	next  int
	taken map[string]struct{}
	items []core.Subscription
	now   func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used to stamp updates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{taken: map[string]struct{}{}, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromFile seeds a store from a JSON array of candidate records. A missing
// file yields an empty store.
func NewFromFile(path string, opts ...Option) (*Store, error) {
	s := New(opts...)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seeds []core.Candidate
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	now := s.now()
	for i, c := range seeds {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("seed %d: %w", i, err)
		}
		sub := c.ToSubscription(now)
		if err := s.Add(context.Background(), &sub); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add assigns a sequential "sub_<n>" ID when missing, or when the supplied
// one is already in use, and appends the record.
func (s *Store) Add(_ context.Context, sub *core.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.taken[sub.ID]; sub.ID == "" || dup {
		sub.ID = s.nextID()
	}
	s.taken[sub.ID] = struct{}{}
	s.items = append(s.items, sub.Clone())
	return nil
}

// nextID skips tokens already claimed by caller-supplied IDs. Callers hold mu.
func (s *Store) nextID() string {
	for {
		s.next++
		id := idPrefix + strconv.Itoa(s.next)
		if _, ok := s.taken[id]; !ok {
			return id
		}
	}
}

func (s *Store) ListAll(_ context.Context) ([]core.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Subscription, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out, nil
}

func (s *Store) Get(_ context.Context, identifier string) (core.Subscription, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(identifier)
	if i < 0 {
		return core.Subscription{}, false, nil
	}
	return s.items[i].Clone(), true, nil
}

func (s *Store) Update(_ context.Context, identifier string, patch core.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(identifier)
	if i < 0 {
		return nil
	}
	patch.Apply(&s.items[i], s.now())
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// indexOf prefers an ID match over a name match. Callers hold mu.
func (s *Store) indexOf(identifier string) int {
	for i := range s.items {
		if s.items[i].ID == identifier {
			return i
		}
	}
	for i := range s.items {
		if s.items[i].MatchesName(identifier) {
			return i
		}
	}
	return -1
}
