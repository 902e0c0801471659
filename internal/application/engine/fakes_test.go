package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
	"github.com/matheushexsel/polymarket-worker/internal/ports"
)

// fakeVenue implementa ports.VenueClient en memoria.
type fakeVenue struct {
	mu        sync.Mutex
	books     map[string]domain.OrderBookSnapshot
	balances  map[string]float64
	bookErr   error
	placeErr  error
	cancelErr error
	placed    []ports.PlaceOrderRequest
	cancelled []string
	nextID    int

	// blockFetch, si no es nil, bloquea FetchOrderBook hasta que se cierre.
	blockFetch chan struct{}
}

func newFakeVenue() *fakeVenue {
	return &fakeVenue{
		books:    make(map[string]domain.OrderBookSnapshot),
		balances: make(map[string]float64),
	}
}

func (v *fakeVenue) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBookSnapshot, error) {
	if v.blockFetch != nil {
		select {
		case <-v.blockFetch:
		case <-ctx.Done():
			return domain.OrderBookSnapshot{}, ctx.Err()
		}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.bookErr != nil {
		return domain.OrderBookSnapshot{}, v.bookErr
	}
	book, ok := v.books[tokenID]
	if !ok {
		return domain.OrderBookSnapshot{}, fmt.Errorf("no book for %s: %w", tokenID, domain.ErrTransientFetch)
	}
	return book, nil
}

func (v *fakeVenue) PlaceOrder(_ context.Context, req ports.PlaceOrderRequest) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.placeErr != nil {
		return "", v.placeErr
	}
	v.placed = append(v.placed, req)
	v.nextID++
	return fmt.Sprintf("venue-order-%d", v.nextID), nil
}

func (v *fakeVenue) CancelOrder(_ context.Context, orderID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancelErr != nil {
		return v.cancelErr
	}
	v.cancelled = append(v.cancelled, orderID)
	return nil
}

func (v *fakeVenue) ListOpenOrders(context.Context) ([]domain.OrderRecord, error) {
	return nil, nil
}

func (v *fakeVenue) GetBalance(_ context.Context, tokenID string) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[tokenID], nil
}

// fakeListing implementa ports.MarketListing sobre un slice fijo.
type fakeListing struct {
	markets []domain.MarketMetadata
	err     error
}

func (l *fakeListing) ListActiveMarkets(context.Context, ports.ListingFilters) ([]domain.MarketMetadata, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.markets, nil
}

func (l *fakeListing) FindBySlug(_ context.Context, slug string) (domain.MarketMetadata, bool, error) {
	if l.err != nil {
		return domain.MarketMetadata{}, false, l.err
	}
	for _, md := range l.markets {
		if strings.EqualFold(md.Slug, slug) {
			return md, true, nil
		}
	}
	return domain.MarketMetadata{}, false, nil
}

// fakeStore implementa ports.Store en memoria.
type fakeStore struct {
	mu        sync.Mutex
	positions map[string]domain.Position
	orders    []domain.OrderRecord
	nextID    int64
	summaries []domain.RunSummary

	appendErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{positions: make(map[string]domain.Position)}
}

func (s *fakeStore) UpsertPosition(_ context.Context, pos domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[pos.TokenID] = pos
	return nil
}

func (s *fakeStore) GetPosition(_ context.Context, tokenID string) (domain.Position, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[tokenID]
	return pos, ok, nil
}

func (s *fakeStore) ListPositions(context.Context) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Position
	for _, pos := range s.positions {
		if pos.Shares > 0 {
			out = append(out, pos)
		}
	}
	return out, nil
}

func (s *fakeStore) AppendOrder(_ context.Context, rec domain.OrderRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return 0, s.appendErr
	}
	s.nextID++
	rec.ID = s.nextID
	s.orders = append(s.orders, rec)
	return rec.ID, nil
}

func (s *fakeStore) UpdateOrderStatus(_ context.Context, id int64, status domain.OrderStatus, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.orders {
		if rec.ID == id && rec.Status == domain.OrderActive {
			s.orders[i].Status = status
			s.orders[i].LastError = lastError
		}
	}
	return nil
}

func (s *fakeStore) ActiveOrders(_ context.Context, tokenID string) ([]domain.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.OrderRecord
	for _, rec := range s.orders {
		if rec.TokenID == tokenID && rec.Status == domain.OrderActive {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *fakeStore) CountActiveOrders(_ context.Context, tokenID string, side domain.Side) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, rec := range s.orders {
		if rec.TokenID == tokenID && rec.Side == side && rec.Status == domain.OrderActive {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) OpenExposureUSD(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, rec := range s.orders {
		if rec.Side == domain.SideBuy && rec.Status == domain.OrderActive {
			total += rec.Price * rec.Size
		}
	}
	for _, pos := range s.positions {
		total += pos.NotionalUSD()
	}
	return total, nil
}

func (s *fakeStore) ListOrders(_ context.Context, tokenID string, limit int) ([]domain.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.OrderRecord
	for i := len(s.orders) - 1; i >= 0 && len(out) < limit; i-- {
		if s.orders[i].TokenID == tokenID {
			out = append(out, s.orders[i])
		}
	}
	return out, nil
}

func (s *fakeStore) SaveRunSummary(_ context.Context, summary domain.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, summary)
	return nil
}

func (s *fakeStore) LastRunSummary(context.Context) (domain.RunSummary, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.summaries) == 0 {
		return domain.RunSummary{}, false, nil
	}
	return s.summaries[len(s.summaries)-1], true, nil
}

func (s *fakeStore) PruneRunSummaries(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// fakeNotifier cuenta notificaciones.
type fakeNotifier struct {
	mu   sync.Mutex
	got  []domain.RunSummary
	fail error
}

func (n *fakeNotifier) Notify(_ context.Context, summary domain.RunSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.got = append(n.got, summary)
	return nil
}

// --- builders compartidos ---

func realBook(tokenID string) domain.OrderBookSnapshot {
	return domain.OrderBookSnapshot{
		TokenID:     tokenID,
		BestBid:     0.49,
		BestAsk:     0.51,
		BidSize:     100,
		AskSize:     100,
		BidDepthUSD: 100,
		AskDepthUSD: 100,
		TickSize:    0.01,
		FetchedAt:   time.Now().UTC(),
	}
}

func emptyBook(tokenID string) domain.OrderBookSnapshot {
	return domain.OrderBookSnapshot{TokenID: tokenID, TickSize: 0.01, FetchedAt: time.Now().UTC()}
}

func testGate() GateThresholds {
	return GateThresholds{
		MinBid:            0.05,
		MaxAsk:            0.95,
		MaxSpreadBps:      2000,
		MinTopSumDepthUSD: 50,
		FOKMinDepthUSD:    10,
		SideMinDepthUSD:   5,
	}
}

func testPlannerConfig() PlannerConfig {
	return PlannerConfig{
		FairPrice:            0.50,
		HalfSpreadBps:        1000,
		TargetNotionalUSD:    2,
		MinOrderSize:         1,
		TickImprove:          1,
		MaxImproveBps:        300,
		MinProfitBps:         500,
		MinProfitPerShareUSD: 0.02,
		MinProfitTotalUSD:    0.5,
		SeedEnabled:          true,
		CloseoutWindow:       5 * time.Minute,
		MaxOrdersPerSide:     2,
		MaxPositionShares:    100,
		MaxExposureUSD:       500,
		Gate:                 testGate(),
	}
}

func testMarket() domain.Market {
	return domain.Market{
		Asset:      "bitcoin",
		Slug:       "btc-up-or-down-3pm",
		YesTokenID: "yes-token",
		NoTokenID:  "no-token",
		TickSize:   0.01,
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	}
}
