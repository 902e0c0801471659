package engine

import (
	"math"
	"time"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
)

// ActionType es la acción elegida por el planner para un token en un ciclo.
type ActionType string

const (
	ActionSeed         ActionType = "SEED"
	ActionMakerQuote   ActionType = "MAKER_QUOTE"
	ActionProfitExit   ActionType = "PROFIT_EXIT"
	ActionCloseoutExit ActionType = "CLOSEOUT_EXIT"
	ActionSkip         ActionType = "SKIP"
)

// Quote es una orden planificada, lista para ejecutar.
type Quote struct {
	Side      domain.Side
	Price     float64
	Size      float64
	OrderType domain.OrderType
}

// Plan es el resultado del planner para un token: exactamente una acción,
// con las quotes a colocar o la razón del skip.
type Plan struct {
	TokenID string
	Action  ActionType
	Quotes  []Quote
	Reason  Reason
}

// PlannerConfig parametriza el quote & exit planner.
type PlannerConfig struct {
	FairPrice            float64 // precio justo externo para centrar seeds
	HalfSpreadBps        float64 // offset relativo de los seeds respecto al fair
	TargetNotionalUSD    float64
	MinOrderSize         float64
	TickImprove          int     // mejora máxima del best bid en ticks
	MaxImproveBps        float64 // mejora máxima del best bid en bps relativos
	MinProfitBps         float64
	MinProfitPerShareUSD float64
	MinProfitTotalUSD    float64
	SeedEnabled          bool
	CloseoutWindow       time.Duration
	MaxOrdersPerSide     int
	MaxPositionShares    float64
	MaxExposureUSD       float64
	Gate                 GateThresholds
}

// PlanInput es el estado observado de un token al inicio del planning.
type PlanInput struct {
	Market      domain.Market
	Token       domain.MarketToken
	Book        domain.OrderBookSnapshot
	Position    domain.Position
	ActiveBuys  int
	ActiveSells int
	ExposureUSD float64
	Now         time.Time
}

// Planner decide la acción por token. Es una función pura del input:
// replanificar con book y posición idénticos produce el mismo plan.
type Planner struct {
	cfg PlannerConfig
}

// NewPlanner crea un Planner con la configuración dada.
func NewPlanner(cfg PlannerConfig) *Planner {
	return &Planner{cfg: cfg}
}

// Plan evalúa la máquina de estados del planner en orden de precedencia:
// CLOSEOUT_EXIT → PROFIT_EXIT → SEED → MAKER_QUOTE → SKIP. Gana el primero.
func (p *Planner) Plan(in PlanInput) Plan {
	book := in.Book
	tick := book.TickSize
	if tick <= 0 {
		tick = in.Market.TickSize
	}

	if book.Stale {
		return p.skip(in, ReasonStaleBook)
	}

	inCloseout := in.Market.HasExpiry() && in.Market.TimeToExpiry(in.Now) <= p.cfg.CloseoutWindow

	// 1. CLOSEOUT_EXIT: cerca de expiry se liquida todo, rentable o no
	if inCloseout && in.Position.Shares > 0 {
		price := domain.ClampPrice(domain.RoundToTick(book.BestBid, tick))
		return Plan{
			TokenID: in.Token.TokenID,
			Action:  ActionCloseoutExit,
			Quotes: []Quote{{
				Side:      domain.SideSell,
				Price:     price,
				Size:      in.Position.Shares,
				OrderType: domain.OrderFOK,
			}},
		}
	}

	// 2. PROFIT_EXIT: salida FOK si el profit proyectado supera los umbrales
	if in.Position.Shares > 0 {
		if plan, ok := p.planProfitExit(in, tick); ok {
			return plan
		}
	}

	// Dentro de la ventana de closeout no se abre inventario nuevo
	if inCloseout {
		return p.skip(in, ReasonCloseoutWindow)
	}

	state := book.Classify(p.cfg.Gate.MinTopSumDepthUSD)

	// 3. SEED: book vacío o fino → quotes GTC simétricas alrededor del fair
	if state == domain.BookEmpty || state == domain.BookThin {
		return p.planSeed(in, tick)
	}

	// 4. MAKER_QUOTE: book real → mejorar el best bid, y descansar ventas
	// contra el inventario existente
	return p.planMakerQuote(in, tick)
}

// planProfitExit comprueba los tres umbrales de profit (relativo, por share,
// total) y la elegibilidad FOK del lado SELL.
func (p *Planner) planProfitExit(in PlanInput, tick float64) (Plan, bool) {
	mid := in.Book.Mid()
	perShare := in.Position.ProjectedProfitPerShare(mid)
	if perShare <= 0 {
		return Plan{}, false
	}

	relBps := math.Inf(1)
	if in.Position.AvgCost > 0 {
		relBps = 10000 * perShare / in.Position.AvgCost
	}
	total := perShare * in.Position.Shares

	if relBps < p.cfg.MinProfitBps ||
		perShare < p.cfg.MinProfitPerShareUSD ||
		total < p.cfg.MinProfitTotalUSD {
		return Plan{}, false
	}

	if ok, _ := CheckEligibility(in.Book, domain.SideSell, domain.OrderFOK, p.cfg.Gate); !ok {
		return Plan{}, false
	}

	price := domain.ClampPrice(domain.RoundToTick(in.Book.BestBid, tick))
	return Plan{
		TokenID: in.Token.TokenID,
		Action:  ActionProfitExit,
		Quotes: []Quote{{
			Side:      domain.SideSell,
			Price:     price,
			Size:      in.Position.Shares,
			OrderType: domain.OrderFOK,
		}},
	}, true
}

// planSeed coloca quotes GTC simétricas alrededor del fair price externo.
func (p *Planner) planSeed(in PlanInput, tick float64) Plan {
	if !p.cfg.SeedEnabled {
		return p.skip(in, ReasonNoAction)
	}
	if in.ActiveBuys >= p.cfg.MaxOrdersPerSide || in.ActiveSells >= p.cfg.MaxOrdersPerSide {
		return p.skip(in, ReasonOrderCap)
	}

	fair := p.cfg.FairPrice
	offset := domain.BpsOf(fair, p.cfg.HalfSpreadBps)
	bidPrice := domain.ClampPrice(domain.RoundToTick(fair-offset, tick))
	askPrice := domain.ClampPrice(domain.RoundToTick(fair+offset, tick))

	return Plan{
		TokenID: in.Token.TokenID,
		Action:  ActionSeed,
		Quotes: []Quote{
			{
				Side:      domain.SideBuy,
				Price:     bidPrice,
				Size:      domain.SharesFor(p.cfg.TargetNotionalUSD, bidPrice, p.cfg.MinOrderSize),
				OrderType: domain.OrderGTC,
			},
			{
				Side:      domain.SideSell,
				Price:     askPrice,
				Size:      domain.SharesFor(p.cfg.TargetNotionalUSD, askPrice, p.cfg.MinOrderSize),
				OrderType: domain.OrderGTC,
			},
		},
	}
}

// planMakerQuote construye la quote BUY que mejora el best bid y, si hay
// inventario, la quote SELL de descanso con piso en avgCost + minProfit.
func (p *Planner) planMakerQuote(in PlanInput, tick float64) Plan {
	var quotes []Quote
	firstBlock := ReasonNone

	record := func(r Reason) {
		if firstBlock == ReasonNone {
			firstBlock = r
		}
	}

	improve := math.Min(float64(p.cfg.TickImprove)*tick, domain.BpsOf(in.Book.BestBid, p.cfg.MaxImproveBps))

	// Lado BUY
	if ok, reason := CheckEligibility(in.Book, domain.SideBuy, domain.OrderGTC, p.cfg.Gate); !ok {
		record(reason)
	} else if in.Position.Shares >= p.cfg.MaxPositionShares {
		record(ReasonPositionCap)
	} else if in.ExposureUSD+p.cfg.TargetNotionalUSD > p.cfg.MaxExposureUSD {
		record(ReasonExposureCap)
	} else if in.ActiveBuys >= p.cfg.MaxOrdersPerSide {
		record(ReasonOrderCap)
	} else {
		price := domain.RoundToTick(in.Book.BestBid+improve, tick)
		// No cruzar el book: la quote es maker, no taker
		maxMaker := domain.RoundToTick(in.Book.BestAsk-tick, tick)
		price = domain.ClampPrice(math.Min(price, maxMaker))
		quotes = append(quotes, Quote{
			Side:      domain.SideBuy,
			Price:     price,
			Size:      domain.SharesFor(p.cfg.TargetNotionalUSD, price, p.cfg.MinOrderSize),
			OrderType: domain.OrderGTC,
		})
	}

	// Lado SELL: solo contra inventario existente
	if in.Position.Shares > 0 {
		if ok, reason := CheckEligibility(in.Book, domain.SideSell, domain.OrderGTC, p.cfg.Gate); !ok {
			record(reason)
		} else if in.ActiveSells >= p.cfg.MaxOrdersPerSide {
			record(ReasonOrderCap)
		} else {
			price := domain.RoundToTick(in.Book.BestAsk-improve, tick)
			floor := domain.CeilToTick(in.Position.AvgCost+p.cfg.MinProfitPerShareUSD, tick)
			price = domain.ClampPrice(math.Max(price, floor))
			quotes = append(quotes, Quote{
				Side:      domain.SideSell,
				Price:     price,
				Size:      in.Position.Shares,
				OrderType: domain.OrderGTC,
			})
		}
	}

	if len(quotes) == 0 {
		if firstBlock == ReasonNone {
			firstBlock = ReasonNoAction
		}
		return p.skip(in, firstBlock)
	}

	return Plan{
		TokenID: in.Token.TokenID,
		Action:  ActionMakerQuote,
		Quotes:  quotes,
	}
}

func (p *Planner) skip(in PlanInput, reason Reason) Plan {
	return Plan{
		TokenID: in.Token.TokenID,
		Action:  ActionSkip,
		Reason:  reason,
	}
}
