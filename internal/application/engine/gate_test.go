package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
)

func TestCheckEligibilityPasses(t *testing.T) {
	ok, reason := CheckEligibility(realBook("t"), domain.SideBuy, domain.OrderGTC, testGate())
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)
}

func TestCheckEligibilityFirstFailReason(t *testing.T) {
	th := testGate()

	cases := []struct {
		name   string
		book   domain.OrderBookSnapshot
		side   domain.Side
		otype  domain.OrderType
		reason Reason
	}{
		{
			name: "dead book wins over everything",
			book: domain.OrderBookSnapshot{
				BestBid: 0.01, BestAsk: 0.99,
				BidDepthUSD: 100, AskDepthUSD: 100,
			},
			side: domain.SideBuy, otype: domain.OrderGTC,
			reason: ReasonDeadBook,
		},
		{
			name: "missing ask",
			book: domain.OrderBookSnapshot{
				BestBid: 0.49, BidDepthUSD: 100,
			},
			side: domain.SideBuy, otype: domain.OrderGTC,
			reason: ReasonNoAsk,
		},
		{
			name: "ask at ceiling counts as missing",
			book: domain.OrderBookSnapshot{
				BestBid: 0.49, BestAsk: 1.0,
				BidDepthUSD: 100, AskDepthUSD: 100,
			},
			side: domain.SideBuy, otype: domain.OrderGTC,
			reason: ReasonNoAsk,
		},
		{
			name: "missing bid",
			book: domain.OrderBookSnapshot{
				BestAsk: 0.51, AskDepthUSD: 100,
			},
			side: domain.SideBuy, otype: domain.OrderGTC,
			reason: ReasonNoBid,
		},
		{
			name: "bid below floor, even with wide spread too",
			book: domain.OrderBookSnapshot{
				BestBid: 0.03, BestAsk: 0.90,
				BidDepthUSD: 100, AskDepthUSD: 100,
			},
			side: domain.SideBuy, otype: domain.OrderGTC,
			reason: ReasonMinBid,
		},
		{
			name: "ask above cap",
			book: domain.OrderBookSnapshot{
				BestBid: 0.50, BestAsk: 0.97,
				BidDepthUSD: 100, AskDepthUSD: 100,
			},
			side: domain.SideBuy, otype: domain.OrderGTC,
			reason: ReasonMaxAsk,
		},
		{
			name: "spread too wide",
			book: domain.OrderBookSnapshot{
				BestBid: 0.30, BestAsk: 0.70,
				BidDepthUSD: 100, AskDepthUSD: 100,
			},
			side: domain.SideBuy, otype: domain.OrderGTC,
			reason: ReasonSpread,
		},
		{
			name: "combined depth too low",
			book: domain.OrderBookSnapshot{
				BestBid: 0.49, BestAsk: 0.51,
				BidDepthUSD: 20, AskDepthUSD: 20,
			},
			side: domain.SideBuy, otype: domain.OrderGTC,
			reason: ReasonSumDepth,
		},
		{
			name: "fok needs strict bid depth",
			book: domain.OrderBookSnapshot{
				BestBid: 0.49, BestAsk: 0.51,
				BidDepthUSD: 5, AskDepthUSD: 100,
			},
			side: domain.SideSell, otype: domain.OrderFOK,
			reason: ReasonFOKBidDepth,
		},
		{
			name: "fok needs strict ask depth",
			book: domain.OrderBookSnapshot{
				BestBid: 0.49, BestAsk: 0.51,
				BidDepthUSD: 100, AskDepthUSD: 5,
			},
			side: domain.SideBuy, otype: domain.OrderFOK,
			reason: ReasonFOKAskDepth,
		},
		{
			name: "buy needs ask depth",
			book: domain.OrderBookSnapshot{
				BestBid: 0.49, BestAsk: 0.51,
				BidDepthUSD: 100, AskDepthUSD: 3,
			},
			side: domain.SideBuy, otype: domain.OrderGTC,
			reason: ReasonAskDepth,
		},
		{
			name: "sell needs bid depth",
			book: domain.OrderBookSnapshot{
				BestBid: 0.49, BestAsk: 0.51,
				BidDepthUSD: 3, AskDepthUSD: 100,
			},
			side: domain.SideSell, otype: domain.OrderGTC,
			reason: ReasonBidDepth,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := CheckEligibility(tc.book, tc.side, tc.otype, th)
			assert.False(t, ok)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

// Apretar un umbral nunca vuelve elegible un book inelegible.
func TestCheckEligibilityMonotone(t *testing.T) {
	book := realBook("t")
	th := testGate()

	ok, _ := CheckEligibility(book, domain.SideBuy, domain.OrderGTC, th)
	assert.True(t, ok)

	tighter := th
	tighter.MinTopSumDepthUSD = book.TopSumDepthUSD() + 1
	ok, reason := CheckEligibility(book, domain.SideBuy, domain.OrderGTC, tighter)
	assert.False(t, ok)
	assert.Equal(t, ReasonSumDepth, reason)

	tighter = th
	tighter.MaxSpreadBps = book.SpreadBps() - 1
	ok, reason = CheckEligibility(book, domain.SideBuy, domain.OrderGTC, tighter)
	assert.False(t, ok)
	assert.Equal(t, ReasonSpread, reason)
}
