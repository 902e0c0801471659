package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
	"github.com/matheushexsel/polymarket-worker/internal/ports"
)

// TrackerConfig parametriza el order lifecycle tracker.
type TrackerConfig struct {
	MaxOrdersPerSide int
	StaleOrderAge    time.Duration
}

// ExecResult resume lo ejecutado para un plan.
type ExecResult struct {
	Placed  int
	Failed  int
	Skipped int
	Errors  []string
}

// Tracker es el dueño del ciclo de vida de órdenes y posiciones: cancela
// órdenes stale, ejecuta los planes contra el venue, y mantiene el
// bookkeeping en el store. Nadie más muta posiciones ni órdenes.
type Tracker struct {
	venue ports.VenueClient
	store ports.Store
	cfg   TrackerConfig

	// Un mutex por token: cancelación y colocación sobre el mismo token
	// se serializan para que el conteo contra el cap por lado no corra
	// contra una cancelación aún no confirmada.
	tokenMu sync.Map // tokenID → *sync.Mutex
}

// NewTracker crea un Tracker.
func NewTracker(venue ports.VenueClient, store ports.Store, cfg TrackerConfig) *Tracker {
	return &Tracker{venue: venue, store: store, cfg: cfg}
}

func (t *Tracker) lockToken(tokenID string) *sync.Mutex {
	mu, _ := t.tokenMu.LoadOrStore(tokenID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// CancelStale cancela best-effort toda orden ACTIVE del token más vieja que
// StaleOrderAge. Un fallo de cancelación se loguea y no se reintenta este
// ciclo; tampoco bloquea el resto del ciclo.
func (t *Tracker) CancelStale(ctx context.Context, tokenID string, now time.Time) int {
	mu := t.lockToken(tokenID)
	mu.Lock()
	defer mu.Unlock()

	active, err := t.store.ActiveOrders(ctx, tokenID)
	if err != nil {
		slog.Warn("tracker: error listing active orders", "token", shortID(tokenID), "err", err)
		return 0
	}

	cancelled := 0
	for _, rec := range active {
		if rec.Age(now) < t.cfg.StaleOrderAge {
			continue
		}
		if rec.OrderID == "" {
			// Sin id del venue no hay nada que cancelar; cerrar el registro
			_ = t.store.UpdateOrderStatus(ctx, rec.ID, domain.OrderCancelled, "no venue order id")
			continue
		}
		if err := t.venue.CancelOrder(ctx, rec.OrderID); err != nil {
			slog.Warn("tracker: error cancelling stale order",
				"order", rec.OrderID, "age", rec.Age(now).Round(time.Second), "err", err)
			continue
		}
		if err := t.store.UpdateOrderStatus(ctx, rec.ID, domain.OrderCancelled, ""); err != nil {
			slog.Warn("tracker: error recording cancellation", "order", rec.OrderID, "err", err)
		}
		cancelled++
	}

	if cancelled > 0 {
		slog.Debug("tracker: stale orders cancelled", "token", shortID(tokenID), "count", cancelled)
	}
	return cancelled
}

// ActiveCounts devuelve el número de órdenes ACTIVE por lado para un token.
func (t *Tracker) ActiveCounts(ctx context.Context, tokenID string) (buys, sells int, err error) {
	buys, err = t.store.CountActiveOrders(ctx, tokenID, domain.SideBuy)
	if err != nil {
		return 0, 0, fmt.Errorf("tracker.ActiveCounts: %w", err)
	}
	sells, err = t.store.CountActiveOrders(ctx, tokenID, domain.SideSell)
	if err != nil {
		return 0, 0, fmt.Errorf("tracker.ActiveCounts: %w", err)
	}
	return buys, sells, nil
}

// SyncPosition refresca las shares de la posición desde el balance on-venue.
// Si aparecen shares que el store no conocía, el avg cost se estima con el
// precio del último BUY registrado.
func (t *Tracker) SyncPosition(ctx context.Context, market domain.Market, token domain.MarketToken) (domain.Position, error) {
	pos, found, err := t.store.GetPosition(ctx, token.TokenID)
	if err != nil {
		return domain.Position{}, fmt.Errorf("tracker.SyncPosition: %w", err)
	}
	if !found {
		pos = domain.Position{
			Asset:   market.Asset,
			Slug:    market.Slug,
			TokenID: token.TokenID,
			Outcome: token.Outcome,
		}
	}

	shares, err := t.venue.GetBalance(ctx, token.TokenID)
	if err != nil {
		// Balance inalcanzable: se sigue con el estado local
		slog.Debug("tracker: balance check failed, using stored position",
			"token", shortID(token.TokenID), "err", err)
		return pos, nil
	}

	if shares != pos.Shares {
		slog.Info("tracker: position shares updated from venue balance",
			"token", shortID(token.TokenID), "stored", pos.Shares, "venue", shares)
		if pos.Shares == 0 && pos.AvgCost == 0 {
			pos.AvgCost = t.lastBuyPrice(ctx, token.TokenID)
		}
		pos.Shares = shares
		pos.UpdatedAt = time.Now().UTC()
		if err := t.store.UpsertPosition(ctx, pos); err != nil {
			slog.Warn("tracker: error persisting synced position", "token", shortID(token.TokenID), "err", err)
		}
	}
	return pos, nil
}

// lastBuyPrice devuelve el precio del BUY más reciente del token, o 0.
func (t *Tracker) lastBuyPrice(ctx context.Context, tokenID string) float64 {
	records, err := t.store.ListOrders(ctx, tokenID, 20)
	if err != nil {
		return 0
	}
	for _, r := range records {
		if r.Side == domain.SideBuy && (r.Status == domain.OrderFilled || r.Status == domain.OrderActive) {
			return r.Price
		}
	}
	return 0
}

// Execute ejecuta las quotes de un plan: valida, respeta el cap por lado,
// coloca contra el venue y persiste el resultado. Las posiciones se
// actualizan según la acción: alta en cero para SEED/MAKER, cierre
// optimista para los exits.
func (t *Tracker) Execute(ctx context.Context, market domain.Market, token domain.MarketToken, plan Plan, now time.Time) ExecResult {
	var res ExecResult
	if plan.Action == ActionSkip || len(plan.Quotes) == 0 {
		return res
	}

	mu := t.lockToken(token.TokenID)
	mu.Lock()
	defer mu.Unlock()

	for _, q := range plan.Quotes {
		if err := t.ValidateQuote(q, market.TickSize); err != nil {
			// Rechazo inmediato, sin side effects
			res.Failed++
			res.Errors = append(res.Errors, err.Error())
			slog.Warn("tracker: quote rejected", "token", shortID(token.TokenID), "err", err)
			continue
		}

		count, err := t.store.CountActiveOrders(ctx, token.TokenID, q.Side)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("count active: %v", err))
			continue
		}
		if q.OrderType == domain.OrderGTC && count >= t.cfg.MaxOrdersPerSide {
			res.Skipped++
			slog.Debug("tracker: order cap reached",
				"token", shortID(token.TokenID), "side", q.Side, "active", count)
			continue
		}

		rec := domain.OrderRecord{
			Asset:         market.Asset,
			Slug:          market.Slug,
			TokenID:       token.TokenID,
			Outcome:       token.Outcome,
			Side:          q.Side,
			OrderType:     q.OrderType,
			Price:         q.Price,
			Size:          q.Size,
			TickSize:      market.TickSize,
			NegRisk:       market.NegRisk,
			ClientOrderID: uuid.New().String(),
			PlacedAt:      now,
			UpdatedAt:     now,
		}

		orderID, placeErr := t.venue.PlaceOrder(ctx, ports.PlaceOrderRequest{
			TokenID:       token.TokenID,
			Side:          q.Side,
			Price:         q.Price,
			Size:          q.Size,
			OrderType:     q.OrderType,
			TickSize:      market.TickSize,
			NegRisk:       market.NegRisk,
			ClientOrderID: rec.ClientOrderID,
		})

		switch {
		case placeErr != nil:
			rec.Status = domain.OrderFailed
			rec.LastError = placeErr.Error()
			res.Failed++
			slog.Warn("tracker: placement rejected",
				"token", shortID(token.TokenID), "side", q.Side,
				"price", q.Price, "size", q.Size, "err", placeErr)
		case q.OrderType == domain.OrderFOK:
			// Respuesta síncrona de un FOK aceptado → ejecutada completa.
			// Ver DESIGN.md: la semántica real de fills no se verifica aquí.
			rec.Status = domain.OrderFilled
			rec.OrderID = orderID
			res.Placed++
		default:
			rec.Status = domain.OrderActive
			rec.OrderID = orderID
			res.Placed++
		}

		if _, err := t.store.AppendOrder(ctx, rec); err != nil {
			// Sin rollback: la orden ya está en el venue, el registro diverge
			res.Errors = append(res.Errors, fmt.Sprintf("append order: %v", err))
			slog.Error("tracker: order placed but not recorded",
				"venue_order", orderID, "client_order", rec.ClientOrderID, "err", err)
		}

		if placeErr != nil {
			continue
		}

		switch plan.Action {
		case ActionSeed, ActionMakerQuote:
			t.ensurePosition(ctx, market, token, now)
		case ActionProfitExit, ActionCloseoutExit:
			t.closePosition(ctx, market, token, now)
		}
	}

	return res
}

// ValidateQuote rechaza quotes malformadas antes de tocar el venue.
// El API de control lo usa en modo dry-run: misma validación, sin side effects.
func (t *Tracker) ValidateQuote(q Quote, tick float64) error {
	if q.Side != domain.SideBuy && q.Side != domain.SideSell {
		return fmt.Errorf("tracker: invalid side %q: %w", q.Side, domain.ErrValidation)
	}
	if q.OrderType != domain.OrderGTC && q.OrderType != domain.OrderFOK {
		return fmt.Errorf("tracker: invalid order type %q: %w", q.OrderType, domain.ErrValidation)
	}
	if q.Price <= 0 || q.Price >= 1 {
		return fmt.Errorf("tracker: price %v outside (0,1): %w", q.Price, domain.ErrValidation)
	}
	if !domain.TickAligned(q.Price, tick) {
		return fmt.Errorf("tracker: price %v not aligned to tick %v: %w", q.Price, tick, domain.ErrValidation)
	}
	if q.Size <= 0 {
		return fmt.Errorf("tracker: size %v not positive: %w", q.Size, domain.ErrValidation)
	}
	return nil
}

// CancelVenueOrder cancela una orden ACTIVE concreta por su id del venue.
// Pasa por el mismo lock por token que el resto del lifecycle.
func (t *Tracker) CancelVenueOrder(ctx context.Context, tokenID, venueOrderID string) error {
	mu := t.lockToken(tokenID)
	mu.Lock()
	defer mu.Unlock()

	active, err := t.store.ActiveOrders(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("tracker.CancelVenueOrder: %w", err)
	}
	for _, rec := range active {
		if rec.OrderID != venueOrderID {
			continue
		}
		if err := t.venue.CancelOrder(ctx, venueOrderID); err != nil {
			return fmt.Errorf("tracker.CancelVenueOrder: %w", err)
		}
		if err := t.store.UpdateOrderStatus(ctx, rec.ID, domain.OrderCancelled, ""); err != nil {
			slog.Warn("tracker: error recording manual cancellation", "order", venueOrderID, "err", err)
		}
		return nil
	}
	return fmt.Errorf("tracker.CancelVenueOrder: order %q not active on token %s: %w",
		venueOrderID, shortID(tokenID), domain.ErrValidation)
}

// ensurePosition garantiza que exista una fila de posición (en cero) para
// el token tras colocar una orden que puede generar inventario.
func (t *Tracker) ensurePosition(ctx context.Context, market domain.Market, token domain.MarketToken, now time.Time) {
	_, found, err := t.store.GetPosition(ctx, token.TokenID)
	if err != nil || found {
		return
	}
	pos := domain.Position{
		Asset:     market.Asset,
		Slug:      market.Slug,
		TokenID:   token.TokenID,
		Outcome:   token.Outcome,
		UpdatedAt: now,
	}
	if err := t.store.UpsertPosition(ctx, pos); err != nil {
		slog.Warn("tracker: error creating position row", "token", shortID(token.TokenID), "err", err)
	}
}

// closePosition pone la posición a cero de forma optimista tras un exit FOK
// aceptado, y contrasta con el balance del venue para detectar divergencias.
func (t *Tracker) closePosition(ctx context.Context, market domain.Market, token domain.MarketToken, now time.Time) {
	pos, found, err := t.store.GetPosition(ctx, token.TokenID)
	if err != nil || !found {
		return
	}
	pos.Shares = 0
	pos.UpdatedAt = now
	if err := t.store.UpsertPosition(ctx, pos); err != nil {
		slog.Warn("tracker: error zeroing position", "token", shortID(token.TokenID), "err", err)
		return
	}

	if remaining, err := t.venue.GetBalance(ctx, token.TokenID); err == nil && remaining > 0 {
		slog.Warn("tracker: venue balance nonzero after exit — position may not be fully closed",
			"token", shortID(token.TokenID), "remaining", remaining)
	}
}

// IsTransient devuelve true si el error es recuperable en el siguiente ciclo.
func IsTransient(err error) bool {
	return errors.Is(err, domain.ErrTransientFetch) || errors.Is(err, domain.ErrStaleData)
}

// shortID acorta un token id para logging.
func shortID(id string) string {
	if len(id) > 16 {
		return id[:16]
	}
	return id
}
