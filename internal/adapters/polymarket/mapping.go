package polymarket

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
)

// Niveles del book que cuentan para la profundidad en USD. Más allá del
// top del book la liquidez publicada es poco informativa.
const depthLevels = 5

// mapOrderBook convierte la respuesta de GET /book a un snapshot de dominio.
// La latencia del fetch la aporta el caller, que midió el round-trip.
func mapOrderBook(raw orderBookResponse, latency time.Duration, fetchedAt time.Time) domain.OrderBookSnapshot {
	bids := mapBookEntries(raw.Bids, false)
	asks := mapBookEntries(raw.Asks, true)

	snap := domain.OrderBookSnapshot{
		TokenID:      raw.AssetID,
		TickSize:     parseFloat(raw.TickSize),
		FetchLatency: latency,
		FetchedAt:    fetchedAt,
	}

	if len(bids) > 0 {
		snap.BestBid = bids[0].price
		snap.BidSize = bids[0].size
		snap.BidDepthUSD = depthUSD(bids)
	}
	if len(asks) > 0 {
		snap.BestAsk = asks[0].price
		snap.AskSize = asks[0].size
		snap.AskDepthUSD = depthUSD(asks)
	}
	return snap
}

type bookLevel struct {
	price float64
	size  float64
}

// mapBookEntries convierte entries raw a niveles ordenados.
// ascending=true → menor a mayor (asks), ascending=false → mayor a menor (bids).
func mapBookEntries(raw []bookEntryRaw, ascending bool) []bookLevel {
	levels := make([]bookLevel, 0, len(raw))
	for _, r := range raw {
		price := parseFloat(r.Price)
		size := parseFloat(r.Size)
		if price <= 0 || size <= 0 {
			continue
		}
		levels = append(levels, bookLevel{price: price, size: size})
	}

	sort.Slice(levels, func(i, j int) bool {
		if ascending {
			return levels[i].price < levels[j].price
		}
		return levels[i].price > levels[j].price
	})

	return levels
}

// depthUSD suma price×size de los primeros depthLevels niveles.
func depthUSD(levels []bookLevel) float64 {
	var total float64
	for i, l := range levels {
		if i >= depthLevels {
			break
		}
		total += l.price * l.size
	}
	return total
}

// mapGammaMarket convierte un mercado de Gamma a metadata de dominio.
func mapGammaMarket(gm gammaMarket) domain.MarketMetadata {
	md := domain.MarketMetadata{
		Slug:        gm.Slug,
		Question:    gm.Question,
		ConditionID: gm.ConditionID,
		NegRisk:     gm.NegRisk,
		Active:      gm.Active,
		Closed:      gm.Closed,
		ShortLived:  gm.Recurrence != "",
	}

	if tick, err := gm.TickSize.Float64(); err == nil {
		md.TickSize = tick
	}

	// clobTokenIds viene como JSON array codificado en string
	var tokenIDs []string
	if gm.ClobTokenIDs != "" {
		if err := json.Unmarshal([]byte(gm.ClobTokenIDs), &tokenIDs); err == nil {
			md.TokenIDs = tokenIDs
		}
	}

	if gm.EndDateISO != "" {
		// Polymarket usa varios formatos; intentamos los más comunes
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02T15:04:05.000Z",
			"2006-01-02T15:04:05Z",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, gm.EndDateISO); err == nil {
				md.EndDate = t.UTC()
				break
			}
		}
	}

	return md
}

// mapOpenOrder convierte una orden abierta del CLOB a un OrderRecord parcial.
func mapOpenOrder(o clobOpenOrder) domain.OrderRecord {
	return domain.OrderRecord{
		TokenID:   o.AssetID,
		Outcome:   o.Outcome,
		Side:      domain.Side(o.Side),
		OrderType: domain.OrderGTC,
		Price:     parseFloat(o.Price),
		Size:      parseFloat(o.OriginalSize),
		Status:    domain.OrderActive,
		OrderID:   o.ID,
		PlacedAt:  time.Unix(o.CreatedAt, 0).UTC(),
	}
}

// parseFloat convierte un string numérico del API a float64.
func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
