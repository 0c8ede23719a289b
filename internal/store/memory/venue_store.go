// Package memory implements the domain store interfaces with mutex-guarded
// in-process maps. It backs tests and DSN-less runs; semantics match the
// postgres package, including retention enforcement on reads.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"arbwatch/internal/domain"
)

// VenueStore implements domain.VenueStore in memory.
type VenueStore struct {
	mu     sync.RWMutex
	venues map[string]domain.Venue
}

// NewVenueStore creates an empty VenueStore.
func NewVenueStore() *VenueStore {
	return &VenueStore{venues: make(map[string]domain.Venue)}
}

func (s *VenueStore) Upsert(_ context.Context, v domain.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.venues[v.ID] = v
	return nil
}

func (s *VenueStore) GetByID(_ context.Context, id string) (domain.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.venues[id]
	if !ok {
		return domain.Venue{}, fmt.Errorf("memory: venue %s: %w", id, domain.ErrNotFound)
	}
	return v, nil
}

func (s *VenueStore) ListActive(ctx context.Context) ([]domain.Venue, error) {
	return s.list(func(v domain.Venue) bool { return v.Active })
}

func (s *VenueStore) List(ctx context.Context) ([]domain.Venue, error) {
	return s.list(func(domain.Venue) bool { return true })
}

func (s *VenueStore) list(keep func(domain.Venue) bool) ([]domain.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Venue
	for _, v := range s.venues {
		if keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
