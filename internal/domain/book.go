package domain

import "time"

// BookState es la clasificación cualitativa de un orderbook.
type BookState string

const (
	BookEmpty BookState = "EMPTY"
	BookThin  BookState = "THIN"
	BookReal  BookState = "REAL"
)

// La profundidad mínima por lado para no considerar un book THIN:
// un book con menos de 1 USD en un lado es ruido, no liquidez.
const minSideDepthFloorUSD = 1.0

// OrderBookSnapshot es el top-of-book de un token en un instante.
// Se crea fresco en cada ciclo y se consume inmediatamente; nunca se persiste.
type OrderBookSnapshot struct {
	TokenID      string
	BestBid      float64
	BestAsk      float64
	BidSize      float64 // shares en el mejor bid
	AskSize      float64 // shares en el mejor ask
	BidDepthUSD  float64
	AskDepthUSD  float64
	TickSize     float64
	FetchLatency time.Duration
	FetchedAt    time.Time
	Stale        bool
}

// HasBid devuelve true si el book tiene lado comprador.
func (s OrderBookSnapshot) HasBid() bool { return s.BestBid > 0 }

// HasAsk devuelve true si el book tiene lado vendedor por debajo de 1.0.
func (s OrderBookSnapshot) HasAsk() bool { return s.BestAsk > 0 && s.BestAsk < 1.0 }

// Mid devuelve el punto medio entre best bid y best ask.
// Devuelve 0 si falta algún lado.
func (s OrderBookSnapshot) Mid() float64 {
	if !s.HasBid() || s.BestAsk <= 0 {
		return 0
	}
	return (s.BestBid + s.BestAsk) / 2
}

// SpreadBps devuelve el spread del book en basis points relativo al mid.
func (s OrderBookSnapshot) SpreadBps() float64 {
	return SpreadBps(s.BestBid, s.BestAsk)
}

// TopSumDepthUSD devuelve la profundidad combinada del top-of-book en USD.
func (s OrderBookSnapshot) TopSumDepthUSD() float64 {
	return s.BidDepthUSD + s.AskDepthUSD
}

// Dead devuelve true si el book está en los extremos del rango de precios:
// nadie cotiza de verdad, solo órdenes boundary de 0.01/0.99.
func (s OrderBookSnapshot) Dead() bool {
	return s.BestBid <= PriceFloor && s.BestAsk >= PriceCeil
}

// Classify clasifica el snapshot en EMPTY, THIN o REAL.
//
// EMPTY: book en los extremos, o falta un lado completo.
// THIN:  hay cotizaciones pero la profundidad combinada no llega a
//        minTopSumDepthUSD, o algún lado está por debajo del piso de 1 USD.
// REAL:  lo demás.
func (s OrderBookSnapshot) Classify(minTopSumDepthUSD float64) BookState {
	if s.Dead() || s.BestBid <= 0 || s.BestAsk >= 1.0 {
		return BookEmpty
	}
	if s.TopSumDepthUSD() < minTopSumDepthUSD ||
		s.BidDepthUSD < minSideDepthFloorUSD ||
		s.AskDepthUSD < minSideDepthFloorUSD {
		return BookThin
	}
	return BookReal
}

// MarkStaleness marca el snapshot como stale si el fetch tardó más que
// maxLatency. Un book cuyo fetch fue lento puede no reflejar ya el estado
// del venue — fail-safe: no se opera sobre él este ciclo.
func (s *OrderBookSnapshot) MarkStaleness(maxLatency time.Duration) {
	if maxLatency > 0 && s.FetchLatency > maxLatency {
		s.Stale = true
	}
}
