package domain

import "time"

// AssetStats acumula los resultados de un asset dentro de un ciclo.
type AssetStats struct {
	Asset         string
	Slug          string
	Resolved      bool
	Seeds         int
	MakerQuotes   int
	ProfitExits   int
	CloseoutExits int
	Skips         int
	Cancelled     int
	Errors        int
}

// RunSummary es el resumen de un ciclo completo. Se persiste exactamente uno
// por ciclo, siempre, incluso con fallos parciales (write-once).
type RunSummary struct {
	RunID          string
	StartedAt      time.Time
	EndedAt        time.Time
	Assets         []AssetStats
	SkippedReasons []string
	Errors         []string
}

// Duration devuelve la duración del ciclo.
func (r RunSummary) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// OrdersPlaced devuelve el total de órdenes colocadas en el ciclo.
func (r RunSummary) OrdersPlaced() int {
	total := 0
	for _, a := range r.Assets {
		total += a.Seeds + a.MakerQuotes + a.ProfitExits + a.CloseoutExits
	}
	return total
}
