package service

import (
	"context"
	"fmt"
	"log/slog"

	"arbwatch/internal/domain"
)

// Triggerer requests an out-of-schedule detection cycle.
type Triggerer interface {
	Trigger()
}

// OpportunityService serves the opportunity window to the API layer: joined
// read views plus the manual scan trigger.
type OpportunityService struct {
	opps    domain.OpportunityStore
	venues  domain.VenueStore
	pairs   domain.PairStore
	scanner Triggerer
	logger  *slog.Logger
}

// NewOpportunityService creates an OpportunityService. scanner may be nil
// when no detection loop is running (read-only deployments).
func NewOpportunityService(
	opps domain.OpportunityStore,
	venues domain.VenueStore,
	pairs domain.PairStore,
	scanner Triggerer,
	logger *slog.Logger,
) *OpportunityService {
	return &OpportunityService{
		opps:    opps,
		venues:  venues,
		pairs:   pairs,
		scanner: scanner,
		logger:  logger.With(slog.String("component", "opportunity_service")),
	}
}

// List returns current opportunities, newest first, joined with venue and
// pair display names.
func (s *OpportunityService) List(ctx context.Context, limit int) ([]domain.OpportunityView, error) {
	opps, err := s.opps.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("opportunity_service: list: %w", err)
	}
	return s.toViews(ctx, opps)
}

// Get returns a single opportunity by ID, joined with display names.
func (s *OpportunityService) Get(ctx context.Context, id string) (domain.OpportunityView, error) {
	opp, err := s.opps.GetByID(ctx, id)
	if err != nil {
		return domain.OpportunityView{}, fmt.Errorf("opportunity_service: get %s: %w", id, err)
	}
	views, err := s.toViews(ctx, []domain.Opportunity{opp})
	if err != nil {
		return domain.OpportunityView{}, err
	}
	return views[0], nil
}

// TriggerScan requests one detection cycle. Returns false when no scanner is
// wired.
func (s *OpportunityService) TriggerScan(ctx context.Context) bool {
	if s.scanner == nil {
		return false
	}
	s.scanner.Trigger()
	s.logger.InfoContext(ctx, "manual scan triggered")
	return true
}

// toViews joins opportunities with venue and pair names. Unknown IDs fall
// back to the raw ID so a stale row never breaks a listing.
func (s *OpportunityService) toViews(ctx context.Context, opps []domain.Opportunity) ([]domain.OpportunityView, error) {
	venues, err := s.venues.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("opportunity_service: list venues: %w", err)
	}
	pairs, err := s.pairs.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("opportunity_service: list pairs: %w", err)
	}

	venueNames := make(map[string]string, len(venues))
	for _, v := range venues {
		venueNames[v.ID] = v.Name
	}
	pairNames := make(map[string]string, len(pairs))
	for _, p := range pairs {
		pairNames[p.ID] = p.DisplayName
	}

	name := func(m map[string]string, id string) string {
		if n, ok := m[id]; ok {
			return n
		}
		return id
	}

	views := make([]domain.OpportunityView, 0, len(opps))
	for _, opp := range opps {
		views = append(views, domain.OpportunityView{
			Opportunity: opp,
			PairName:    name(pairNames, opp.TradingPairID),
			VenueAName:  name(venueNames, opp.VenueAID),
			VenueBName:  name(venueNames, opp.VenueBID),
		})
	}
	return views, nil
}
