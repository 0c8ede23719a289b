package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"arbwatch/internal/domain"
)

// TransactionStore implements domain.TransactionStore in memory.
type TransactionStore struct {
	mu  sync.RWMutex
	txs map[string]domain.Transaction
}

// NewTransactionStore creates an empty TransactionStore.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{txs: make(map[string]domain.Transaction)}
}

func (s *TransactionStore) Insert(_ context.Context, tx domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.txs[tx.ID]; exists {
		return fmt.Errorf("memory: transaction %s already exists", tx.ID)
	}
	s.txs[tx.ID] = tx
	return nil
}

func (s *TransactionStore) GetByID(_ context.Context, id string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[id]
	if !ok {
		return domain.Transaction{}, fmt.Errorf("memory: transaction %s: %w", id, domain.ErrNotFound)
	}
	return tx, nil
}

func (s *TransactionStore) ListRecent(_ context.Context, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecutedAt.After(out[j].ExecutedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *TransactionStore) SumProfitSince(_ context.Context, since time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := decimal.Zero
	for _, tx := range s.txs {
		if tx.Status != domain.TxSuccess || tx.ExecutedAt.Before(since) || tx.ActualProfit == nil {
			continue
		}
		sum = sum.Add(*tx.ActualProfit)
	}
	return sum, nil
}

func (s *TransactionStore) SumGasSince(_ context.Context, since time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := decimal.Zero
	for _, tx := range s.txs {
		if tx.ExecutedAt.Before(since) || tx.GasUsed == nil {
			continue
		}
		sum = sum.Add(*tx.GasUsed)
	}
	return sum, nil
}

func (s *TransactionStore) CountByStatusSince(_ context.Context, since time.Time) (map[domain.TxStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[domain.TxStatus]int)
	for _, tx := range s.txs {
		if tx.ExecutedAt.Before(since) {
			continue
		}
		counts[tx.Status]++
	}
	return counts, nil
}

func (s *TransactionStore) ListBefore(_ context.Context, before time.Time) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Transaction
	for _, tx := range s.txs {
		if tx.ExecutedAt.Before(before) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecutedAt.Before(out[j].ExecutedAt) })
	return out, nil
}

func (s *TransactionStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, tx := range s.txs {
		if tx.ExecutedAt.Before(before) {
			delete(s.txs, id)
			n++
		}
	}
	return n, nil
}
