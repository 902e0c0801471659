package ports

import (
	"context"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
)

// PlaceOrderRequest es lo que el engine envía al venue para colocar una orden.
type PlaceOrderRequest struct {
	TokenID       string
	Side          domain.Side
	Price         float64
	Size          float64
	OrderType     domain.OrderType
	TickSize      float64
	NegRisk       bool
	ClientOrderID string // clave de idempotencia generada por el tracker
}

// VenueClient es el contrato con el venue de trading (CLOB).
// La autenticación y la firma de órdenes viven detrás de esta frontera.
type VenueClient interface {
	// FetchOrderBook devuelve el top-of-book de un token, con la latencia
	// del round-trip medida para el guard de staleness.
	FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBookSnapshot, error)

	// PlaceOrder firma y envía una orden. Devuelve el order id del venue.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (string, error)

	// CancelOrder cancela una orden por su id del venue.
	CancelOrder(ctx context.Context, orderID string) error

	// ListOpenOrders devuelve las órdenes abiertas de esta wallet en el venue.
	ListOpenOrders(ctx context.Context) ([]domain.OrderRecord, error)

	// GetBalance devuelve el balance en shares del token dado.
	GetBalance(ctx context.Context, tokenID string) (float64, error)
}
