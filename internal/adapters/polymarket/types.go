package polymarket

import "encoding/json"

// DTOs crudos de las APIs del CLOB y de Gamma.

// bookEntryRaw es un nivel de precio tal como lo devuelve el CLOB.
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// orderBookResponse es la respuesta de GET /book.
type orderBookResponse struct {
	Market   string         `json:"market"`
	AssetID  string         `json:"asset_id"`
	Bids     []bookEntryRaw `json:"bids"`
	Asks     []bookEntryRaw `json:"asks"`
	TickSize string         `json:"tick_size"`
	NegRisk  bool           `json:"neg_risk"`
	Hash     string         `json:"hash"`
}

// clobOrderRequest es el body de POST /order.
type clobOrderRequest struct {
	TokenID       string `json:"tokenID"`
	Price         string `json:"price"`
	Size          string `json:"size"`
	Side          string `json:"side"`
	OrderType     string `json:"orderType"`
	TickSize      string `json:"tickSize"`
	NegRisk       bool   `json:"negRisk"`
	ClientOrderID string `json:"clientOrderId"`
	Owner         string `json:"owner"`
}

// clobOrderResponse es la respuesta de POST /order.
type clobOrderResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"` // "live", "matched", ...
}

// clobCancelResponse es la respuesta de DELETE /order.
type clobCancelResponse struct {
	Canceled    []string          `json:"canceled"`
	NotCanceled map[string]string `json:"not_canceled"`
}

// clobOpenOrder es una orden abierta en GET /data/orders.
type clobOpenOrder struct {
	ID           string `json:"id"`
	AssetID      string `json:"asset_id"`
	Market       string `json:"market"`
	Side         string `json:"side"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	Price        string `json:"price"`
	Status       string `json:"status"`
	Outcome      string `json:"outcome"`
	CreatedAt    int64  `json:"created_at"`
}

// clobBalanceResponse es la respuesta de GET /balance-allowance.
type clobBalanceResponse struct {
	Balance string `json:"balance"`
}

// gammaMarket es un mercado en el listing de Gamma.
type gammaMarket struct {
	ConditionID  string `json:"conditionId"`
	Question     string `json:"question"`
	Slug         string `json:"slug"`
	EndDateISO   string `json:"endDateIso"`
	ClobTokenIDs string      `json:"clobTokenIds"` // JSON array codificado como string
	TickSize     json.Number `json:"orderPriceMinTickSize"`
	NegRisk      bool   `json:"negRisk"`
	Active       bool   `json:"active"`
	Closed       bool   `json:"closed"`
	Recurrence   string `json:"recurrence"` // "hourly" | "daily" | "" — marcador de corta duración
}
