package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
	"github.com/matheushexsel/polymarket-worker/internal/ports"
)

// Config contiene la configuración completa del engine de run-cycle.
type Config struct {
	Assets         []AssetSpec
	MaxBookLatency time.Duration
	Planner        PlannerConfig
	Resolver       ResolverConfig
	Tracker        TrackerConfig
}

// Engine ejecuta un ciclo completo: resolución de mercado por asset,
// clasificación de books por token, planning y ejecución, y el resumen
// agregado del ciclo. Los errores por asset/token se registran en el
// resumen y nunca abortan el ciclo.
type Engine struct {
	venue    ports.VenueClient
	store    ports.Store
	notifier ports.Notifier
	resolver *Resolver
	planner  *Planner
	tracker  *Tracker
	cfg      Config
}

// New crea un Engine con todas las dependencias inyectadas.
func New(venue ports.VenueClient, listing ports.MarketListing, store ports.Store, notifier ports.Notifier, cfg Config) *Engine {
	return &Engine{
		venue:    venue,
		store:    store,
		notifier: notifier,
		resolver: NewResolver(listing, cfg.Resolver),
		planner:  NewPlanner(cfg.Planner),
		tracker:  NewTracker(venue, store, cfg.Tracker),
		cfg:      cfg,
	}
}

// Tracker expone el tracker para el API de control, que debe pasar por los
// mismos contratos de ejecución que el ciclo programado.
func (e *Engine) Tracker() *Tracker { return e.tracker }

// Planner expone el planner para el modo dry-run del API de control.
func (e *Engine) Planner() *Planner { return e.planner }

// RunOnce ejecuta exactamente un ciclo sobre todos los assets configurados.
// Persiste exactamente un RunSummary, siempre, incluso con fallo parcial.
// Solo un fallo obteniendo la lista de assets habilitados aborta el ciclo
// antes de tocar ningún mercado.
func (e *Engine) RunOnce(ctx context.Context) (*domain.RunSummary, error) {
	now := time.Now().UTC()
	summary := &domain.RunSummary{
		RunID:     uuid.New().String(),
		StartedAt: now,
	}

	if len(e.cfg.Assets) == 0 {
		// Lista de assets no confiable → no se opera sobre una lista parcial
		summary.Errors = append(summary.Errors, "no enabled assets")
		e.finish(ctx, summary)
		return summary, fmt.Errorf("engine.RunOnce: no enabled assets")
	}

	for _, asset := range e.cfg.Assets {
		stats := e.runAsset(ctx, asset, summary)
		summary.Assets = append(summary.Assets, stats)
	}

	e.finish(ctx, summary)
	return summary, nil
}

// runAsset procesa un asset: resuelve el mercado y recorre sus dos tokens.
func (e *Engine) runAsset(ctx context.Context, asset AssetSpec, summary *domain.RunSummary) domain.AssetStats {
	stats := domain.AssetStats{Asset: asset.Name}

	market, ok := e.resolver.Resolve(ctx, asset, time.Now().UTC())
	if !ok {
		summary.SkippedReasons = append(summary.SkippedReasons, asset.Name+": NO_MARKET")
		stats.Skips++
		return stats
	}
	stats.Resolved = true
	stats.Slug = market.Slug

	slog.Debug("engine: market resolved",
		"asset", asset.Name, "slug", market.Slug,
		"tick", market.TickSize, "neg_risk", market.NegRisk,
		"expires_at", market.ExpiresAt)

	for _, token := range market.Tokens() {
		e.runToken(ctx, market, token, &stats, summary)
	}
	return stats
}

// runToken ejecuta el pipeline de un token: cancelación de stale, fetch y
// clasificación del book, sync de posición, planning y ejecución.
func (e *Engine) runToken(ctx context.Context, market domain.Market, token domain.MarketToken, stats *domain.AssetStats, summary *domain.RunSummary) {
	now := time.Now().UTC()

	stats.Cancelled += e.tracker.CancelStale(ctx, token.TokenID, now)

	book, err := e.venue.FetchOrderBook(ctx, token.TokenID)
	if err != nil {
		stats.Errors++
		summary.Errors = append(summary.Errors,
			fmt.Sprintf("%s/%s: book fetch: %v", market.Asset, token.Outcome, err))
		return
	}
	book.MarkStaleness(e.cfg.MaxBookLatency)
	if book.Stale {
		// Fail-safe: un fetch lento puede no reflejar ya el venue
		stats.Skips++
		summary.SkippedReasons = append(summary.SkippedReasons,
			fmt.Sprintf("%s/%s: %s", market.Asset, token.Outcome, ReasonStaleBook))
		slog.Warn("engine: stale book excluded",
			"asset", market.Asset, "outcome", token.Outcome,
			"latency", book.FetchLatency.Round(time.Millisecond))
		return
	}

	pos, err := e.tracker.SyncPosition(ctx, market, token)
	if err != nil {
		stats.Errors++
		summary.Errors = append(summary.Errors,
			fmt.Sprintf("%s/%s: position sync: %v", market.Asset, token.Outcome, err))
		return
	}

	buys, sells, err := e.tracker.ActiveCounts(ctx, token.TokenID)
	if err != nil {
		stats.Errors++
		summary.Errors = append(summary.Errors,
			fmt.Sprintf("%s/%s: active counts: %v", market.Asset, token.Outcome, err))
		return
	}

	exposure, err := e.store.OpenExposureUSD(ctx)
	if err != nil {
		stats.Errors++
		summary.Errors = append(summary.Errors,
			fmt.Sprintf("%s/%s: exposure: %v", market.Asset, token.Outcome, err))
		return
	}

	plan := e.planner.Plan(PlanInput{
		Market:      market,
		Token:       token,
		Book:        book,
		Position:    pos,
		ActiveBuys:  buys,
		ActiveSells: sells,
		ExposureUSD: exposure,
		Now:         now,
	})

	switch plan.Action {
	case ActionSkip:
		stats.Skips++
		summary.SkippedReasons = append(summary.SkippedReasons,
			fmt.Sprintf("%s/%s: %s", market.Asset, token.Outcome, plan.Reason))
		return
	case ActionSeed:
		stats.Seeds++
	case ActionMakerQuote:
		stats.MakerQuotes++
	case ActionProfitExit:
		stats.ProfitExits++
	case ActionCloseoutExit:
		stats.CloseoutExits++
	}

	slog.Info("engine: plan",
		"asset", market.Asset, "outcome", token.Outcome,
		"action", plan.Action, "quotes", len(plan.Quotes),
		"bid", book.BestBid, "ask", book.BestAsk,
		"shares", pos.Shares)

	res := e.tracker.Execute(ctx, market, token, plan, now)
	stats.Errors += len(res.Errors)
	summary.Errors = append(summary.Errors, prefixAll(market.Asset, token.Outcome, res.Errors)...)
	if res.Failed > 0 {
		slog.Warn("engine: placements failed",
			"asset", market.Asset, "outcome", token.Outcome, "failed", res.Failed)
	}
}

// finish cierra el resumen, lo persiste y lo notifica.
func (e *Engine) finish(ctx context.Context, summary *domain.RunSummary) {
	summary.EndedAt = time.Now().UTC()

	if err := e.store.SaveRunSummary(ctx, *summary); err != nil {
		slog.Error("engine: error persisting run summary", "run", summary.RunID, "err", err)
	}

	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, *summary); err != nil {
			slog.Warn("engine: notifier error", "err", err)
		}
	}

	slog.Info("engine: cycle complete",
		"run", summary.RunID,
		"duration", summary.Duration().Round(time.Millisecond),
		"orders", summary.OrdersPlaced(),
		"skips", len(summary.SkippedReasons),
		"errors", len(summary.Errors))
}

func prefixAll(asset, outcome string, msgs []string) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = fmt.Sprintf("%s/%s: %s", asset, outcome, m)
	}
	return out
}
