package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/matheushexsel/polymarket-worker/internal/ports"
)

// DryRunClient envuelve un Client: lee books y balances reales pero nunca
// coloca ni cancela órdenes. Para probar el planner contra mercados vivos
// sin arriesgar capital.
type DryRunClient struct {
	*Client
	seq atomic.Int64
}

// NewDryRunClient crea el wrapper de dry-run.
func NewDryRunClient(client *Client) *DryRunClient {
	return &DryRunClient{Client: client}
}

// PlaceOrder loguea la orden y devuelve un id sintético sin tocar el venue.
func (d *DryRunClient) PlaceOrder(_ context.Context, req ports.PlaceOrderRequest) (string, error) {
	id := fmt.Sprintf("dry-%d", d.seq.Add(1))
	slog.Info("dry-run: order not sent",
		"token", req.TokenID, "side", req.Side, "type", req.OrderType,
		"price", req.Price, "size", req.Size, "order_id", id)
	return id, nil
}

// CancelOrder loguea la cancelación sin tocar el venue.
func (d *DryRunClient) CancelOrder(_ context.Context, orderID string) error {
	slog.Info("dry-run: cancel not sent", "order", orderID)
	return nil
}
