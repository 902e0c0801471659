package domain

import "time"

// Side es el lado de una orden.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType es el tipo de ejecución de una orden.
type OrderType string

const (
	OrderGTC OrderType = "GTC" // good-till-cancelled, descansa en el book
	OrderFOK OrderType = "FOK" // fill-or-kill, ejecuta completa o nada
)

// OrderStatus es el estado de una orden en el histórico local.
// ACTIVE es el único estado no terminal; las transiciones son monótonas:
// FILLED/CANCELLED/FAILED nunca revierten.
type OrderStatus string

const (
	OrderActive    OrderStatus = "ACTIVE"
	OrderFilled    OrderStatus = "FILLED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderFailed    OrderStatus = "FAILED"
)

// Terminal devuelve true si el estado no admite más transiciones.
func (s OrderStatus) Terminal() bool {
	return s != OrderActive
}

// OrderRecord es una entrada del histórico de órdenes (append-only).
type OrderRecord struct {
	ID            int64
	Asset         string
	Slug          string
	TokenID       string
	Outcome       string
	Side          Side
	OrderType     OrderType
	Price         float64
	Size          float64
	TickSize      float64
	NegRisk       bool
	Status        OrderStatus
	OrderID       string // id del venue; vacío si el placement falló
	ClientOrderID string // clave de idempotencia, única
	PlacedAt      time.Time
	UpdatedAt     time.Time
	LastError     string
}

// Age devuelve la edad de la orden desde su placement.
func (r OrderRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.PlacedAt)
}

// Position es el inventario actual en un token. Se crea en el primer
// fill/seed, se actualiza en los exits, y nunca se borra: se pone a cero.
type Position struct {
	Asset     string
	Slug      string
	TokenID   string
	Outcome   string
	Shares    float64 // ≥ 0
	AvgCost   float64 // ∈ [0,1]
	UpdatedAt time.Time
}

// NotionalUSD devuelve el coste de adquisición de la posición.
func (p Position) NotionalUSD() float64 {
	return p.Shares * p.AvgCost
}

// ProjectedProfitPerShare devuelve el profit por share si se saliera al mid dado.
func (p Position) ProjectedProfitPerShare(mid float64) float64 {
	if p.Shares <= 0 || mid <= 0 {
		return 0
	}
	return mid - p.AvgCost
}
