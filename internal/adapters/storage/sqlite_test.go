package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleOrder(tokenID string, side domain.Side, status domain.OrderStatus, clientID string) domain.OrderRecord {
	now := time.Now().UTC()
	return domain.OrderRecord{
		Asset:         "bitcoin",
		Slug:          "btc-up-or-down",
		TokenID:       tokenID,
		Outcome:       "Yes",
		Side:          side,
		OrderType:     domain.OrderGTC,
		Price:         0.45,
		Size:          10,
		TickSize:      0.01,
		Status:        status,
		ClientOrderID: clientID,
		PlacedAt:      now,
		UpdatedAt:     now,
	}
}

func TestPositionUpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, found, err := s.GetPosition(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, found)

	pos := domain.Position{
		Asset: "bitcoin", Slug: "btc-up", TokenID: "tok-1", Outcome: "Yes",
		Shares: 12, AvgCost: 0.44, UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.UpsertPosition(ctx, pos))

	got, found, err := s.GetPosition(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 12.0, got.Shares, 1e-9)
	assert.InDelta(t, 0.44, got.AvgCost, 1e-9)

	// Upsert sobre la misma fila
	pos.Shares = 0
	require.NoError(t, s.UpsertPosition(ctx, pos))

	got, found, err = s.GetPosition(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Zero(t, got.Shares)

	// Cerrada a cero → fuera del listado de abiertas
	open, err := s.ListPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestOrderStatusMonotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := sampleOrder("tok-1", domain.SideBuy, domain.OrderActive, "c-1")
	id, err := s.AppendOrder(ctx, rec)
	require.NoError(t, err)
	require.Positive(t, id)

	require.NoError(t, s.UpdateOrderStatus(ctx, id, domain.OrderCancelled, ""))

	// Una orden terminal no cambia de estado
	require.NoError(t, s.UpdateOrderStatus(ctx, id, domain.OrderFilled, ""))

	orders, err := s.ListOrders(ctx, "tok-1", 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderCancelled, orders[0].Status)
}

func TestCountActiveOrdersPerSide(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AppendOrder(ctx, sampleOrder("tok-1", domain.SideBuy, domain.OrderActive, "c-1"))
	require.NoError(t, err)
	_, err = s.AppendOrder(ctx, sampleOrder("tok-1", domain.SideBuy, domain.OrderFailed, "c-2"))
	require.NoError(t, err)
	_, err = s.AppendOrder(ctx, sampleOrder("tok-1", domain.SideSell, domain.OrderActive, "c-3"))
	require.NoError(t, err)
	_, err = s.AppendOrder(ctx, sampleOrder("tok-2", domain.SideBuy, domain.OrderActive, "c-4"))
	require.NoError(t, err)

	buys, err := s.CountActiveOrders(ctx, "tok-1", domain.SideBuy)
	require.NoError(t, err)
	assert.Equal(t, 1, buys)

	sells, err := s.CountActiveOrders(ctx, "tok-1", domain.SideSell)
	require.NoError(t, err)
	assert.Equal(t, 1, sells)

	active, err := s.ActiveOrders(ctx, "tok-1")
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestDuplicateClientOrderIDRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AppendOrder(ctx, sampleOrder("tok-1", domain.SideBuy, domain.OrderActive, "same"))
	require.NoError(t, err)
	_, err = s.AppendOrder(ctx, sampleOrder("tok-1", domain.SideBuy, domain.OrderActive, "same"))
	assert.Error(t, err)
}

func TestOpenExposureUSD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// BUY activa: 0.45 × 10 = 4.50
	_, err := s.AppendOrder(ctx, sampleOrder("tok-1", domain.SideBuy, domain.OrderActive, "c-1"))
	require.NoError(t, err)
	// SELL activa no cuenta
	_, err = s.AppendOrder(ctx, sampleOrder("tok-1", domain.SideSell, domain.OrderActive, "c-2"))
	require.NoError(t, err)
	// Posición abierta: 20 × 0.50 = 10.00
	require.NoError(t, s.UpsertPosition(ctx, domain.Position{
		Asset: "eth", Slug: "eth-up", TokenID: "tok-2", Outcome: "Yes",
		Shares: 20, AvgCost: 0.50, UpdatedAt: time.Now().UTC(),
	}))

	exposure, err := s.OpenExposureUSD(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 14.50, exposure, 1e-6)
}

func TestRunSummaryRoundTripAndPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, found, err := s.LastRunSummary(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	old := domain.RunSummary{
		RunID:     "run-old",
		StartedAt: time.Now().UTC().Add(-48 * time.Hour),
		EndedAt:   time.Now().UTC().Add(-48 * time.Hour).Add(time.Second),
	}
	require.NoError(t, s.SaveRunSummary(ctx, old))

	recent := domain.RunSummary{
		RunID:     "run-recent",
		StartedAt: time.Now().UTC(),
		EndedAt:   time.Now().UTC().Add(2 * time.Second),
		Assets: []domain.AssetStats{
			{Asset: "bitcoin", Slug: "btc-up", Resolved: true, Seeds: 2},
		},
		SkippedReasons: []string{"ethereum/No: SPREAD"},
		Errors:         []string{"ethereum/Yes: book fetch: timeout"},
	}
	require.NoError(t, s.SaveRunSummary(ctx, recent))

	got, found, err := s.LastRunSummary(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "run-recent", got.RunID)
	require.Len(t, got.Assets, 1)
	assert.Equal(t, 2, got.Assets[0].Seeds)
	assert.Equal(t, []string{"ethereum/No: SPREAD"}, got.SkippedReasons)
	assert.Len(t, got.Errors, 1)

	pruned, err := s.PruneRunSummaries(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	got, found, err = s.LastRunSummary(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "run-recent", got.RunID)
}
