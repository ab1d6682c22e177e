// Package memstore is an in-process license store. Records do not survive a restart.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cheetahbyte/licensor/internal/license"
)

type Store struct {
	mu       sync.Mutex
	licenses map[string]license.License
	now      func() time.Time
}

// New returns a store seeded with the given licenses.
func New(seed ...license.License) *Store {
	s := &Store{
		licenses: make(map[string]license.License, len(seed)),
		now:      time.Now,
	}
	for _, l := range seed {
		if l.BoundAccounts == nil {
			l.BoundAccounts = []int64{}
		}
		s.licenses[l.Key] = l.Clone()
	}
	return s
}

func (s *Store) Lookup(_ context.Context, key string) (license.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.licenses[key]
	if !ok {
		return license.License{}, license.ErrNotFound
	}
	return l.Clone(), nil
}

func (s *Store) Insert(_ context.Context, n license.NewLicense) (license.License, error) {
	if err := n.Validate(); err != nil {
		return license.License{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.licenses[n.Key]; ok {
		return license.License{}, fmt.Errorf("insert %q: %w", n.Key, license.ErrDuplicateKey)
	}
	l := n.Build(s.now()).Clone()
	s.licenses[n.Key] = l
	return l.Clone(), nil
}

func (s *Store) AppendAccount(_ context.Context, key string, account int64) (license.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.licenses[key]
	if !ok {
		return license.License{}, license.ErrNotFound
	}
	if l.HasAccount(account) {
		return l.Clone(), nil
	}
	if !l.SeatsAvailable() {
		return license.License{}, license.ErrAccountLimitExceeded
	}
	l.BoundAccounts = append(l.BoundAccounts, account)
	s.licenses[key] = l
	return l.Clone(), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }
