package memory

import (
	"context"
	"sync"
	"time"

	"arbwatch/internal/domain"
)

// SettingsStore implements domain.SettingsStore in memory.
type SettingsStore struct {
	mu       sync.RWMutex
	settings *domain.BotSettings
	clock    domain.Clock
}

// NewSettingsStore creates an empty SettingsStore. The default record is
// installed on first Get. clock may be nil for UTC wall time.
func NewSettingsStore(clock domain.Clock) *SettingsStore {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &SettingsStore{clock: clock}
}

func (s *SettingsStore) Get(_ context.Context) (domain.BotSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		defaults := domain.DefaultSettings()
		defaults.UpdatedAt = s.clock()
		s.settings = &defaults
	}
	return *s.settings, nil
}

func (s *SettingsStore) Update(_ context.Context, settings domain.BotSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &settings
	return nil
}
