package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"arbwatch/internal/detect"
	"arbwatch/internal/server"
	"arbwatch/internal/server/handler"
	"arbwatch/internal/server/ws"
	"arbwatch/internal/service"
	"arbwatch/internal/sim"
)

// engine bundles the services and the scanner built on top of the wired
// dependencies.
type engine struct {
	scanner     *detect.Scanner
	opportunity *service.OpportunityService
	execution   *service.ExecutionService
	settings    *service.SettingsService
	stats       *service.StatsService
}

// buildEngine assembles the detection pipeline and the services around it.
func (a *App) buildEngine(deps *Dependencies) *engine {
	costModel := detect.NewGasCostModel(a.cfg.Simulator.GasUnits, a.cfg.Simulator.NativePrice)
	detector := detect.NewDetector(a.logger)
	classifier := detect.NewClassifier(costModel)

	policy := sim.NewRandomOutcomePolicy(
		a.cfg.Simulator.SuccessProbability,
		a.cfg.Simulator.ProfitJitterLow,
		a.cfg.Simulator.ProfitJitterHigh,
		time.Now().UnixNano(),
	)
	simulator := sim.NewSimulator(policy, nil, a.logger)

	var notifier service.Notifier
	if deps.Notifier != nil {
		notifier = deps.Notifier
	}
	execution := service.NewExecutionService(
		deps.OpportunityStore, deps.TransactionStore, deps.SettingsStore,
		simulator, deps.SignalBus, notifier, nil, a.logger,
	)

	scanner := detect.NewScanner(
		deps.Source, deps.PairStore, deps.OpportunityStore, deps.SettingsStore,
		detector, classifier, deps.SignalBus, execution,
		detect.ScannerConfig{
			Interval:  a.cfg.Detector.Interval.Duration,
			MinMargin: decimal.NewFromFloat(a.cfg.Detector.MinMarginPercent),
		},
		a.logger,
	)

	return &engine{
		scanner: scanner,
		opportunity: service.NewOpportunityService(
			deps.OpportunityStore, deps.VenueStore, deps.PairStore, scanner, a.logger),
		execution: execution,
		settings:  service.NewSettingsService(deps.SettingsStore, nil, a.logger),
		stats: service.NewStatsService(
			deps.OpportunityStore, deps.TransactionStore, deps.PairStore,
			a.cfg.Stats.Window.Duration, nil, a.logger),
	}
}

// ScanMode runs the detection loop with the API surface on top: quote
// feeds, scanner, and the HTTP server unless server.enabled is false. The
// archiver stays off; full mode owns it.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	eng := a.buildEngine(deps)
	g, ctx := errgroup.WithContext(ctx)

	a.startFeeds(ctx, g, deps)
	g.Go(func() error { return eng.scanner.Run(ctx) })
	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps, eng)
	}

	return g.Wait()
}

// MonitorMode serves the API and WebSocket surface over the existing stores
// without running detection. Executions stay available, so an operator can
// still paper-fill from a dashboard.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	eng := a.buildEngine(deps)
	g, ctx := errgroup.WithContext(ctx)

	// No scanner goroutine: the trigger endpoint reports 409 via a nil
	// scanner reference.
	eng.opportunity = service.NewOpportunityService(
		deps.OpportunityStore, deps.VenueStore, deps.PairStore, nil, a.logger)

	a.startServer(ctx, g, deps, eng)
	return g.Wait()
}

// FullMode runs everything: feeds, scanner, API server, WebSocket hub, and
// the archiver when enabled.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	eng := a.buildEngine(deps)
	g, ctx := errgroup.WithContext(ctx)

	a.startFeeds(ctx, g, deps)
	g.Go(func() error { return eng.scanner.Run(ctx) })
	a.startArchiver(ctx, g, deps)
	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps, eng)
	}

	return g.Wait()
}

// startFeeds launches the streaming venue feeds, if the source wiring built
// any.
func (a *App) startFeeds(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	for _, feed := range deps.Feeds {
		feed := feed
		g.Go(func() error { return feed.Run(ctx) })
	}
}

// startArchiver launches the transaction archiver when configured.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}
	g.Go(func() error { return deps.Archiver.Run(ctx) })
}

// startServer builds the handlers, the WebSocket hub, and the HTTP server,
// and ties server shutdown to context cancellation.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, eng *engine) {
	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
	g.Go(func() error { return hub.Run(ctx) })

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Status: handler.NewStatusHandler(a.cfg.Mode, a.cfg.Detector.Source),
		Opportunities: handler.NewOpportunityHandler(
			eng.opportunity, eng.execution,
			a.cfg.Detector.ListLimit, a.cfg.Detector.ExportLimit, a.logger),
		Transactions: handler.NewTransactionHandler(
			eng.execution, a.cfg.Detector.ListLimit, a.cfg.Detector.ExportLimit, a.logger),
		Stats:    handler.NewStatsHandler(eng.stats, a.logger),
		Settings: handler.NewSettingsHandler(eng.settings, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(func() error { return srv.Start() })
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
