package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"arbwatch/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore in memory. A single
// mutex makes ReplaceGeneration atomic with respect to readers; the
// retention window is also applied on every read so an aged-out entry is
// invisible even before the next Expire.
type OpportunityStore struct {
	mu        sync.RWMutex
	opps      map[string]domain.Opportunity
	retention time.Duration
	clock     domain.Clock
}

// NewOpportunityStore creates an OpportunityStore with the given retention
// window. clock may be nil for UTC wall time.
func NewOpportunityStore(retention time.Duration, clock domain.Clock) *OpportunityStore {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &OpportunityStore{
		opps:      make(map[string]domain.Opportunity),
		retention: retention,
		clock:     clock,
	}
}

func (s *OpportunityStore) ReplaceGeneration(_ context.Context, opps []domain.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked()
	for _, o := range opps {
		s.opps[o.ID] = o
	}
	return nil
}

func (s *OpportunityStore) List(_ context.Context, limit int) ([]domain.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.clock().Add(-s.retention)
	var out []domain.Opportunity
	for _, o := range s.opps {
		if o.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *OpportunityStore) GetByID(_ context.Context, id string) (domain.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.opps[id]
	if !ok || o.CreatedAt.Before(s.clock().Add(-s.retention)) {
		return domain.Opportunity{}, fmt.Errorf("memory: opportunity %s: %w", id, domain.ErrNotFound)
	}
	return o, nil
}

func (s *OpportunityStore) Expire(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return nil
}

func (s *OpportunityStore) CountActive(ctx context.Context) (int, error) {
	opps, err := s.List(ctx, 0)
	if err != nil {
		return 0, err
	}
	return len(opps), nil
}

func (s *OpportunityStore) expireLocked() {
	cutoff := s.clock().Add(-s.retention)
	for id, o := range s.opps {
		if o.CreatedAt.Before(cutoff) {
			delete(s.opps, id)
		}
	}
}
