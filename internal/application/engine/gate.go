package engine

import (
	"github.com/matheushexsel/polymarket-worker/internal/domain"
)

// Reason es el código de diagnóstico de un rechazo del gate o de un SKIP
// del planner. Estable y machine-readable para monitoreo.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonDeadBook    Reason = "DEAD_BOOK"
	ReasonNoAsk       Reason = "NO_ASK"
	ReasonNoBid       Reason = "NO_BID"
	ReasonMinBid      Reason = "MIN_BID"
	ReasonMaxAsk      Reason = "MAX_ASK"
	ReasonSpread      Reason = "SPREAD"
	ReasonSumDepth    Reason = "SUM_DEPTH"
	ReasonFOKBidDepth Reason = "FOK_BID_DEPTH"
	ReasonFOKAskDepth Reason = "FOK_ASK_DEPTH"
	ReasonAskDepth    Reason = "ASK_DEPTH"
	ReasonBidDepth    Reason = "BID_DEPTH"

	// Razones de SKIP del planner (no son rechazos del gate)
	ReasonStaleBook   Reason = "STALE_BOOK"
	ReasonPositionCap Reason = "POSITION_CAP"
	ReasonExposureCap Reason = "EXPOSURE_CAP"
	ReasonOrderCap       Reason = "ORDER_CAP"
	ReasonCloseoutWindow Reason = "CLOSEOUT_WINDOW"
	ReasonNoAction       Reason = "NO_ACTION"
)

// GateThresholds contiene los umbrales del gate de elegibilidad.
// La elegibilidad es monótona en cada umbral: apretar un límite solo puede
// volver inelegible un resultado elegible, nunca al revés.
type GateThresholds struct {
	MinBid            float64
	MaxAsk            float64
	MaxSpreadBps      float64
	MinTopSumDepthUSD float64
	FOKMinDepthUSD    float64
	SideMinDepthUSD   float64
}

// CheckEligibility evalúa las reglas del gate en orden fijo sobre un book
// clasificado. La primera regla que falla es la razón reportada —
// diagnóstico determinista y reproducible.
func CheckEligibility(book domain.OrderBookSnapshot, side domain.Side, orderType domain.OrderType, th GateThresholds) (bool, Reason) {
	// 1. Book muerto: solo órdenes boundary
	if book.Dead() {
		return false, ReasonDeadBook
	}

	// 2. Falta el lado contrario
	if !book.HasAsk() {
		return false, ReasonNoAsk
	}
	if !book.HasBid() {
		return false, ReasonNoBid
	}

	// 3. Bounds de precio
	if book.BestBid < th.MinBid {
		return false, ReasonMinBid
	}
	if book.BestAsk > th.MaxAsk {
		return false, ReasonMaxAsk
	}

	// 4. Spread
	if book.SpreadBps() > th.MaxSpreadBps {
		return false, ReasonSpread
	}

	// 5. Profundidad combinada
	if book.TopSumDepthUSD() < th.MinTopSumDepthUSD {
		return false, ReasonSumDepth
	}

	// 6. FOK exige profundidad estricta en ambos lados
	if orderType == domain.OrderFOK {
		if book.BidDepthUSD < th.FOKMinDepthUSD {
			return false, ReasonFOKBidDepth
		}
		if book.AskDepthUSD < th.FOKMinDepthUSD {
			return false, ReasonFOKAskDepth
		}
	}

	// 7. Profundidad del lado contrario según el lado de la orden
	switch side {
	case domain.SideBuy:
		if book.AskDepthUSD < th.SideMinDepthUSD {
			return false, ReasonAskDepth
		}
	case domain.SideSell:
		if book.BidDepthUSD < th.SideMinDepthUSD {
			return false, ReasonBidDepth
		}
	}

	return true, ReasonNone
}
