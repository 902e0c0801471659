package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Scheduler dispara ciclos a intervalo fijo con protección single-flight:
// un tick que llega mientras el ciclo anterior sigue corriendo se descarta,
// no se encola. Ningún trabajo queda pendiente entre ciclos salvo las
// órdenes descansando en el venue.
type Scheduler struct {
	engine   *Engine
	interval time.Duration

	running atomic.Bool
	dropped atomic.Int64
}

// NewScheduler crea un Scheduler.
func NewScheduler(engine *Engine, interval time.Duration) *Scheduler {
	return &Scheduler{engine: engine, interval: interval}
}

// DroppedTicks devuelve cuántos ticks se descartaron por solape.
func (s *Scheduler) DroppedTicks() int64 {
	return s.dropped.Load()
}

// Run ejecuta el loop de ciclos hasta que el contexto se cancele.
// El primer ciclo corre inmediatamente, sin esperar al primer tick.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler starting", "interval", s.interval)

	s.tryCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.waitIdle()
			slog.Info("scheduler stopped", "dropped_ticks", s.dropped.Load())
			return nil
		case <-ticker.C:
			s.tryCycle(ctx)
		}
	}
}

// tryCycle arranca un ciclo si no hay otro en vuelo; si lo hay, descarta
// el tick y lo cuenta.
func (s *Scheduler) tryCycle(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		n := s.dropped.Add(1)
		slog.Warn("scheduler: previous cycle still running, tick dropped", "dropped_total", n)
		return
	}

	go func() {
		defer s.running.Store(false)
		if _, err := s.engine.RunOnce(ctx); err != nil {
			slog.Error("scheduler: cycle failed", "err", err)
		}
	}()
}

// waitIdle espera a que el ciclo en vuelo (si lo hay) termine antes de salir.
func (s *Scheduler) waitIdle() {
	for s.running.Load() {
		time.Sleep(50 * time.Millisecond)
	}
}
