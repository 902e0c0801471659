package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
)

func planInput(book domain.OrderBookSnapshot) PlanInput {
	market := testMarket()
	return PlanInput{
		Market: market,
		Token:  domain.MarketToken{TokenID: market.YesTokenID, Outcome: "Yes"},
		Book:   book,
		Now:    time.Now().UTC(),
	}
}

func TestPlanStaleBookSkips(t *testing.T) {
	p := NewPlanner(testPlannerConfig())
	book := realBook("yes-token")
	book.Stale = true

	plan := p.Plan(planInput(book))

	assert.Equal(t, ActionSkip, plan.Action)
	assert.Equal(t, ReasonStaleBook, plan.Reason)
}

func TestPlanSeedOnEmptyBook(t *testing.T) {
	p := NewPlanner(testPlannerConfig())

	plan := p.Plan(planInput(emptyBook("yes-token")))

	require.Equal(t, ActionSeed, plan.Action)
	require.Len(t, plan.Quotes, 2)

	// fair 0.50 ± 10% relativo → 0.45 / 0.55
	bid, ask := plan.Quotes[0], plan.Quotes[1]
	assert.Equal(t, domain.SideBuy, bid.Side)
	assert.InDelta(t, 0.45, bid.Price, 1e-9)
	assert.InDelta(t, 4.0, bid.Size, 1e-9) // floor(2/0.45)
	assert.Equal(t, domain.OrderGTC, bid.OrderType)

	assert.Equal(t, domain.SideSell, ask.Side)
	assert.InDelta(t, 0.55, ask.Price, 1e-9)
	assert.InDelta(t, 3.0, ask.Size, 1e-9) // floor(2/0.55)
	assert.Equal(t, domain.OrderGTC, ask.OrderType)
}

func TestPlanSeedOnThinBook(t *testing.T) {
	p := NewPlanner(testPlannerConfig())
	book := realBook("yes-token")
	book.BidDepthUSD, book.AskDepthUSD = 2, 2 // por debajo del mínimo combinado

	plan := p.Plan(planInput(book))

	assert.Equal(t, ActionSeed, plan.Action)
}

func TestPlanSeedDisabled(t *testing.T) {
	cfg := testPlannerConfig()
	cfg.SeedEnabled = false
	p := NewPlanner(cfg)

	plan := p.Plan(planInput(emptyBook("yes-token")))

	assert.Equal(t, ActionSkip, plan.Action)
	assert.Equal(t, ReasonNoAction, plan.Reason)
}

func TestPlanSeedOrderCap(t *testing.T) {
	p := NewPlanner(testPlannerConfig())
	in := planInput(emptyBook("yes-token"))
	in.ActiveBuys = testPlannerConfig().MaxOrdersPerSide

	plan := p.Plan(in)

	assert.Equal(t, ActionSkip, plan.Action)
	assert.Equal(t, ReasonOrderCap, plan.Reason)
}

func TestPlanMakerQuoteImprovesBid(t *testing.T) {
	p := NewPlanner(testPlannerConfig())

	plan := p.Plan(planInput(realBook("yes-token")))

	require.Equal(t, ActionMakerQuote, plan.Action)
	require.Len(t, plan.Quotes, 1)

	q := plan.Quotes[0]
	assert.Equal(t, domain.SideBuy, q.Side)
	// best bid 0.49 + 1 tick, capado por best ask - 1 tick = 0.50
	assert.InDelta(t, 0.50, q.Price, 1e-9)
	assert.Equal(t, domain.OrderGTC, q.OrderType)
}

func TestPlanMakerQuoteRestingSellAboveCost(t *testing.T) {
	p := NewPlanner(testPlannerConfig())
	in := planInput(realBook("yes-token"))
	in.Position = domain.Position{
		TokenID: "yes-token", Shares: 5, AvgCost: 0.52, // mid 0.50 → sin profit exit
	}

	plan := p.Plan(in)

	require.Equal(t, ActionMakerQuote, plan.Action)
	require.Len(t, plan.Quotes, 2)

	sell := plan.Quotes[1]
	require.Equal(t, domain.SideSell, sell.Side)
	assert.InDelta(t, 5.0, sell.Size, 1e-9)
	// piso: ceil(avgCost + minProfitPerShare) al tick = ceil(0.54) = 0.54
	assert.GreaterOrEqual(t, sell.Price, 0.54-1e-9)
}

func TestPlanProfitExit(t *testing.T) {
	p := NewPlanner(testPlannerConfig())
	in := planInput(realBook("yes-token"))
	in.Position = domain.Position{
		TokenID: "yes-token", Shares: 10, AvgCost: 0.40, // mid 0.50 → +0.10/share
	}

	plan := p.Plan(in)

	require.Equal(t, ActionProfitExit, plan.Action)
	require.Len(t, plan.Quotes, 1)

	q := plan.Quotes[0]
	assert.Equal(t, domain.SideSell, q.Side)
	assert.Equal(t, domain.OrderFOK, q.OrderType)
	assert.InDelta(t, 0.49, q.Price, 1e-9) // al best bid, liquidez inmediata
	assert.InDelta(t, 10.0, q.Size, 1e-9)  // posición completa
}

func TestPlanProfitExitBelowThresholds(t *testing.T) {
	p := NewPlanner(testPlannerConfig())
	in := planInput(realBook("yes-token"))
	// +0.01/share: por debajo de MinProfitPerShareUSD (0.02)
	in.Position = domain.Position{TokenID: "yes-token", Shares: 10, AvgCost: 0.49}

	plan := p.Plan(in)

	// Sin exit: cae a maker quote con sell de descanso
	assert.Equal(t, ActionMakerQuote, plan.Action)
}

func TestPlanProfitExitNeedsFOKDepth(t *testing.T) {
	p := NewPlanner(testPlannerConfig())
	book := realBook("yes-token")
	book.BidDepthUSD = 5 // por debajo del mínimo FOK
	in := planInput(book)
	in.Position = domain.Position{TokenID: "yes-token", Shares: 10, AvgCost: 0.40}

	plan := p.Plan(in)

	assert.NotEqual(t, ActionProfitExit, plan.Action)
}

func TestPlanCloseoutExitBeatsProfitExit(t *testing.T) {
	p := NewPlanner(testPlannerConfig())
	in := planInput(realBook("yes-token"))
	in.Market.ExpiresAt = in.Now.Add(2 * time.Minute) // dentro de la ventana
	// Posición con pérdida: el closeout liquida igual
	in.Position = domain.Position{TokenID: "yes-token", Shares: 8, AvgCost: 0.60}

	plan := p.Plan(in)

	require.Equal(t, ActionCloseoutExit, plan.Action)
	require.Len(t, plan.Quotes, 1)
	assert.Equal(t, domain.OrderFOK, plan.Quotes[0].OrderType)
	assert.Equal(t, domain.SideSell, plan.Quotes[0].Side)
	assert.InDelta(t, 8.0, plan.Quotes[0].Size, 1e-9)
}

func TestPlanCloseoutWindowBlocksNewInventory(t *testing.T) {
	p := NewPlanner(testPlannerConfig())
	in := planInput(realBook("yes-token"))
	in.Market.ExpiresAt = in.Now.Add(2 * time.Minute)
	// Sin posición: nada que liquidar, pero tampoco inventario nuevo

	plan := p.Plan(in)

	assert.Equal(t, ActionSkip, plan.Action)
	assert.Equal(t, ReasonCloseoutWindow, plan.Reason)
}

func TestPlanNoExpiryDisablesCloseout(t *testing.T) {
	p := NewPlanner(testPlannerConfig())
	in := planInput(realBook("yes-token"))
	in.Market.ExpiresAt = time.Time{}

	plan := p.Plan(in)

	assert.Equal(t, ActionMakerQuote, plan.Action)
}

func TestPlanExposureCap(t *testing.T) {
	cfg := testPlannerConfig()
	cfg.MaxExposureUSD = 10
	p := NewPlanner(cfg)
	in := planInput(realBook("yes-token"))
	in.ExposureUSD = 9 // 9 + 2 > 10

	plan := p.Plan(in)

	assert.Equal(t, ActionSkip, plan.Action)
	assert.Equal(t, ReasonExposureCap, plan.Reason)
}

func TestPlanPositionCap(t *testing.T) {
	cfg := testPlannerConfig()
	cfg.MaxPositionShares = 5
	p := NewPlanner(cfg)
	in := planInput(realBook("yes-token"))
	// En el cap, sin margen de profit → no compra más, pero sí descansa la venta
	in.Position = domain.Position{TokenID: "yes-token", Shares: 5, AvgCost: 0.52}

	plan := p.Plan(in)

	require.Equal(t, ActionMakerQuote, plan.Action)
	require.Len(t, plan.Quotes, 1)
	assert.Equal(t, domain.SideSell, plan.Quotes[0].Side)
}

func TestPlanGateRejectionSkipsWithReason(t *testing.T) {
	p := NewPlanner(testPlannerConfig())
	book := realBook("yes-token")
	book.BestBid, book.BestAsk = 0.30, 0.70 // spread 8000 bps
	book.BidDepthUSD, book.AskDepthUSD = 100, 100

	plan := p.Plan(planInput(book))

	assert.Equal(t, ActionSkip, plan.Action)
	assert.Equal(t, ReasonSpread, plan.Reason)
}

// El planner es una función pura del input: mismo input, mismo plan.
func TestPlanDeterministic(t *testing.T) {
	p := NewPlanner(testPlannerConfig())
	in := planInput(realBook("yes-token"))
	in.Position = domain.Position{TokenID: "yes-token", Shares: 5, AvgCost: 0.52}

	first := p.Plan(in)
	second := p.Plan(in)

	assert.Equal(t, first, second)
}
