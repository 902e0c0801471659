// Package api expone el servidor HTTP de control del worker: salud, estado
// de posiciones y órdenes, colocación manual y cancelación. Las operaciones
// manuales pasan por el mismo tracker que el ciclo programado — mismos caps,
// misma validación, mismo bookkeeping.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/matheushexsel/polymarket-worker/internal/application/engine"
	"github.com/matheushexsel/polymarket-worker/internal/domain"
	"github.com/matheushexsel/polymarket-worker/internal/ports"
)

// Config parametriza el servidor de control.
type Config struct {
	Listen      string
	BearerToken string
	DryRun      bool
}

// Server es el servidor HTTP de control.
type Server struct {
	engine *engine.Engine
	store  ports.Store
	cfg    Config
	http   *http.Server
}

// NewServer crea el servidor con sus rutas registradas.
func NewServer(eng *engine.Engine, store ports.Store, cfg Config) *Server {
	s := &Server{engine: eng, store: store, cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /positions", s.auth(s.handlePositions))
	mux.HandleFunc("GET /orders", s.auth(s.handleListOrders))
	mux.HandleFunc("POST /orders", s.auth(s.handlePlaceOrder))
	mux.HandleFunc("DELETE /orders/{id}", s.auth(s.handleCancelOrder))

	s.http = &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run arranca el servidor y lo apaga ordenadamente cuando el contexto muere.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("api: listening", "addr", s.cfg.Listen, "dry_run", s.cfg.DryRun)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api.Run: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// auth exige el bearer token estático en cada endpoint salvo /health.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.BearerToken {
			writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}
		next(w, r)
	}
}

type healthResponse struct {
	Status       string    `json:"status"`
	DryRun       bool      `json:"dry_run"`
	LastRunID    string    `json:"last_run_id,omitempty"`
	LastRunAt    time.Time `json:"last_run_at,omitzero"`
	LastOrders   int       `json:"last_orders"`
	LastErrors   int       `json:"last_errors"`
	DroppedTicks int64     `json:"dropped_ticks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", DryRun: s.cfg.DryRun}
	if last, found, err := s.store.LastRunSummary(r.Context()); err == nil && found {
		resp.LastRunID = last.RunID
		resp.LastRunAt = last.EndedAt
		resp.LastOrders = last.OrdersPlaced()
		resp.LastErrors = len(last.Errors)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.store.ListPositions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	tokenID := r.URL.Query().Get("token_id")
	if tokenID == "" {
		writeError(w, http.StatusBadRequest, "token_id query parameter required")
		return
	}
	orders, err := s.store.ListOrders(r.Context(), tokenID, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if orders == nil {
		orders = []domain.OrderRecord{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// placeOrderRequest es el body de POST /orders.
type placeOrderRequest struct {
	Asset     string  `json:"asset"`
	Slug      string  `json:"slug"`
	TokenID   string  `json:"token_id"`
	Outcome   string  `json:"outcome"`
	Side      string  `json:"side"`
	OrderType string  `json:"order_type"`
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
	TickSize  float64 `json:"tick_size"`
	NegRisk   bool    `json:"neg_risk"`
}

type placeOrderResponse struct {
	DryRun  bool   `json:"dry_run"`
	Placed  int    `json:"placed"`
	Failed  int    `json:"failed"`
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// handlePlaceOrder coloca una orden manual a través del tracker. En modo
// dry-run valida la quote y responde sin tocar el venue.
func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.TokenID == "" {
		writeError(w, http.StatusBadRequest, "token_id required")
		return
	}
	if req.TickSize <= 0 {
		req.TickSize = 0.01
	}
	if req.OrderType == "" {
		req.OrderType = string(domain.OrderGTC)
	}

	quote := engine.Quote{
		Side:      domain.Side(req.Side),
		Price:     req.Price,
		Size:      req.Size,
		OrderType: domain.OrderType(req.OrderType),
	}
	tracker := s.engine.Tracker()

	if s.cfg.DryRun {
		resp := placeOrderResponse{DryRun: true}
		if err := tracker.ValidateQuote(quote, req.TickSize); err != nil {
			resp.Failed = 1
			resp.Error = err.Error()
			writeJSON(w, http.StatusUnprocessableEntity, resp)
			return
		}
		resp.Placed = 1
		writeJSON(w, http.StatusOK, resp)
		return
	}

	market := domain.Market{
		Asset:    req.Asset,
		Slug:     req.Slug,
		TickSize: req.TickSize,
		NegRisk:  req.NegRisk,
	}
	token := domain.MarketToken{TokenID: req.TokenID, Outcome: req.Outcome}
	plan := engine.Plan{
		TokenID: req.TokenID,
		Action:  engine.ActionMakerQuote,
		Quotes:  []engine.Quote{quote},
	}

	res := tracker.Execute(r.Context(), market, token, plan, time.Now().UTC())
	resp := placeOrderResponse{
		Placed:  res.Placed,
		Failed:  res.Failed,
		Skipped: res.Skipped,
	}
	if len(res.Errors) > 0 {
		resp.Error = res.Errors[0]
	}

	status := http.StatusOK
	if res.Placed == 0 {
		status = http.StatusUnprocessableEntity
	}
	slog.Info("api: manual order", "token", req.TokenID, "side", req.Side,
		"price", req.Price, "size", req.Size, "placed", res.Placed, "failed", res.Failed)
	writeJSON(w, status, resp)
}

// handleCancelOrder cancela una orden ACTIVE por su id del venue.
func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	tokenID := r.URL.Query().Get("token_id")
	if tokenID == "" {
		writeError(w, http.StatusBadRequest, "token_id query parameter required")
		return
	}

	if s.cfg.DryRun {
		writeJSON(w, http.StatusOK, map[string]any{"dry_run": true, "cancelled": false})
		return
	}

	if err := s.engine.Tracker().CancelVenueOrder(r.Context(), tokenID, orderID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrValidation) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	slog.Info("api: manual cancel", "order", orderID)
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": true})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("api: error encoding response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
