package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
)

func sampleSummary() domain.RunSummary {
	start := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	return domain.RunSummary{
		RunID:     "0b54f1f0-1111-2222-3333-444455556666",
		StartedAt: start,
		EndedAt:   start.Add(800 * time.Millisecond),
		Assets: []domain.AssetStats{
			{Asset: "bitcoin", Slug: "btc-up-or-down-3pm", Resolved: true, Seeds: 2, Cancelled: 1},
			{Asset: "ethereum", Resolved: false, Skips: 1},
		},
		SkippedReasons: []string{"ethereum: NO_MARKET"},
		Errors:         []string{"bitcoin/No: book fetch: timeout"},
	}
}

func TestNotifyCompact(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	require.NoError(t, c.Notify(context.Background(), sampleSummary()))

	out := buf.String()
	assert.Contains(t, out, "run 0b54f1f0")
	assert.Contains(t, out, "2 assets")
	assert.Contains(t, out, "2 orders")
	assert.Contains(t, out, "bitcoin: s2 q0 x0 c1")
	assert.Contains(t, out, "ethereum: no market")
}

func TestNotifyTable(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, true)

	require.NoError(t, c.Notify(context.Background(), sampleSummary()))

	out := buf.String()
	assert.Contains(t, out, "btc-up-or-down-3pm")
	assert.Contains(t, out, "(no market)")
	assert.Contains(t, out, "ethereum: NO_MARKET")
	assert.Contains(t, out, "book fetch: timeout")
}
