package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"arbwatch/internal/domain"
)

// PairStore implements domain.PairStore in memory.
type PairStore struct {
	mu    sync.RWMutex
	pairs map[string]domain.TradingPair
}

// NewPairStore creates an empty PairStore.
func NewPairStore() *PairStore {
	return &PairStore{pairs: make(map[string]domain.TradingPair)}
}

func (s *PairStore) Upsert(_ context.Context, p domain.TradingPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[p.ID] = p
	return nil
}

func (s *PairStore) GetByID(_ context.Context, id string) (domain.TradingPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pairs[id]
	if !ok {
		return domain.TradingPair{}, fmt.Errorf("memory: pair %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

func (s *PairStore) ListActive(_ context.Context) ([]domain.TradingPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.TradingPair
	for _, p := range s.pairs {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

func (s *PairStore) CountActive(ctx context.Context) (int, error) {
	pairs, err := s.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	return len(pairs), nil
}
