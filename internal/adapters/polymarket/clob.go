package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
	"github.com/matheushexsel/polymarket-worker/internal/ports"
)

// FetchOrderBook devuelve el snapshot del book de un token con la latencia
// del round-trip medida. Los fallos de red o de decode son transitorios:
// el siguiente ciclo vuelve a intentarlo.
func (c *Client) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBookSnapshot, error) {
	endpoint := fmt.Sprintf("%s/book?token_id=%s", c.clobBase, url.QueryEscape(tokenID))

	start := time.Now()
	var raw orderBookResponse
	if err := c.get(ctx, c.booksLimiter, endpoint, &raw); err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("polymarket.FetchOrderBook: %w: %w", domain.ErrTransientFetch, err)
	}
	latency := time.Since(start)

	return mapOrderBook(raw, latency, time.Now().UTC()), nil
}

// PlaceOrder firma y envía una orden al CLOB. Un rechazo del venue
// (success=false o HTTP 4xx) es terminal para esta orden; no se reintenta.
func (c *Client) PlaceOrder(ctx context.Context, req ports.PlaceOrderRequest) (string, error) {
	if !c.creds.Configured() {
		return "", fmt.Errorf("polymarket.PlaceOrder: missing credentials: %w", domain.ErrValidation)
	}

	body := clobOrderRequest{
		TokenID:       req.TokenID,
		Price:         strconv.FormatFloat(req.Price, 'f', -1, 64),
		Size:          strconv.FormatFloat(req.Size, 'f', -1, 64),
		Side:          string(req.Side),
		OrderType:     string(req.OrderType),
		TickSize:      strconv.FormatFloat(req.TickSize, 'f', -1, 64),
		NegRisk:       req.NegRisk,
		ClientOrderID: req.ClientOrderID,
		Owner:         c.creds.APIKey,
	}

	var resp clobOrderResponse
	if err := c.doSigned(ctx, "POST", "/order", body, &resp); err != nil {
		return "", fmt.Errorf("polymarket.PlaceOrder: %w: %w", domain.ErrVenueRejected, err)
	}
	if !resp.Success {
		return "", fmt.Errorf("polymarket.PlaceOrder: %w: %s", domain.ErrVenueRejected, resp.ErrorMsg)
	}
	return resp.OrderID, nil
}

// CancelOrder cancela una orden por su id del venue. Si el venue reporta
// la orden como no cancelable (ya ejecutada o ya cancelada) devuelve error
// con el motivo.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	body := map[string]string{"orderID": orderID}

	var resp clobCancelResponse
	if err := c.doSigned(ctx, "DELETE", "/order", body, &resp); err != nil {
		return fmt.Errorf("polymarket.CancelOrder: %w: %w", domain.ErrVenueRejected, err)
	}
	if reason, ok := resp.NotCanceled[orderID]; ok {
		return fmt.Errorf("polymarket.CancelOrder: %w: %s", domain.ErrVenueRejected, reason)
	}
	return nil
}

// ListOpenOrders devuelve las órdenes abiertas de esta wallet en el venue.
func (c *Client) ListOpenOrders(ctx context.Context) ([]domain.OrderRecord, error) {
	var raw []clobOpenOrder
	if err := c.doSigned(ctx, "GET", "/data/orders", nil, &raw); err != nil {
		return nil, fmt.Errorf("polymarket.ListOpenOrders: %w: %w", domain.ErrTransientFetch, err)
	}

	records := make([]domain.OrderRecord, 0, len(raw))
	for _, o := range raw {
		records = append(records, mapOpenOrder(o))
	}
	return records, nil
}

// GetBalance devuelve el balance en shares de un conditional token.
func (c *Client) GetBalance(ctx context.Context, tokenID string) (float64, error) {
	path := fmt.Sprintf("/balance-allowance?asset_type=CONDITIONAL&token_id=%s", url.QueryEscape(tokenID))

	var resp clobBalanceResponse
	if err := c.doSigned(ctx, "GET", path, nil, &resp); err != nil {
		return 0, fmt.Errorf("polymarket.GetBalance: %w: %w", domain.ErrTransientFetch, err)
	}

	// El balance llega en unidades base de 6 decimales
	raw, err := strconv.ParseFloat(resp.Balance, 64)
	if err != nil {
		return 0, fmt.Errorf("polymarket.GetBalance: parse balance %q: %w", resp.Balance, err)
	}
	return raw / 1e6, nil
}
