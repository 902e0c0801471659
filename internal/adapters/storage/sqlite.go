package storage

// sqlite.go — persistencia del worker.
//
// Estrategia:
//   - `positions`: UNA fila por token (UPSERT). Las posiciones cerradas se
//     quedan en cero, no se borran — el histórico de avg cost sigue visible.
//   - `orders`: histórico append-only. Las transiciones de estado son
//     monótonas: un UPDATE solo aplica si el estado actual es ACTIVE.
//   - `run_summaries`: una fila por ciclo, con stats/skips/errors en JSON.
//     Prune por retención para que la DB no crezca sin límite.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por token; cerrar una posición la pone a cero, no la borra
CREATE TABLE IF NOT EXISTS positions (
    token_id   TEXT PRIMARY KEY,
    asset      TEXT NOT NULL,
    slug       TEXT NOT NULL,
    outcome    TEXT NOT NULL,
    shares     REAL NOT NULL DEFAULT 0,
    avg_cost   REAL NOT NULL DEFAULT 0,
    updated_at DATETIME NOT NULL
);

-- Histórico append-only de órdenes
CREATE TABLE IF NOT EXISTS orders (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    asset           TEXT NOT NULL,
    slug            TEXT NOT NULL,
    token_id        TEXT NOT NULL,
    outcome         TEXT NOT NULL,
    side            TEXT NOT NULL,
    order_type      TEXT NOT NULL,
    price           REAL NOT NULL,
    size            REAL NOT NULL,
    tick_size       REAL NOT NULL DEFAULT 0,
    neg_risk        INTEGER NOT NULL DEFAULT 0,
    status          TEXT NOT NULL,
    order_id        TEXT NOT NULL DEFAULT '',
    client_order_id TEXT NOT NULL UNIQUE,
    placed_at       DATETIME NOT NULL,
    updated_at      DATETIME NOT NULL,
    last_error      TEXT NOT NULL DEFAULT ''
);

-- Un resumen por ciclo
CREATE TABLE IF NOT EXISTS run_summaries (
    run_id     TEXT PRIMARY KEY,
    started_at DATETIME NOT NULL,
    ended_at   DATETIME NOT NULL,
    assets     TEXT NOT NULL DEFAULT '[]',
    skips      TEXT NOT NULL DEFAULT '[]',
    errors     TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_orders_token_status ON orders(token_id, status);
CREATE INDEX IF NOT EXISTS idx_orders_placed       ON orders(placed_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_started        ON run_summaries(started_at DESC);
`

// SQLiteStore implementa ports.Store usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en el DSN dado y aplica
// el schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertPosition crea o actualiza la posición de un token.
func (s *SQLiteStore) UpsertPosition(ctx context.Context, pos domain.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (token_id, asset, slug, outcome, shares, avg_cost, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token_id) DO UPDATE SET
			asset      = excluded.asset,
			slug       = excluded.slug,
			outcome    = excluded.outcome,
			shares     = excluded.shares,
			avg_cost   = excluded.avg_cost,
			updated_at = excluded.updated_at
	`, pos.TokenID, pos.Asset, pos.Slug, pos.Outcome, pos.Shares, pos.AvgCost, pos.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("storage.UpsertPosition: %w: %w", domain.ErrStore, err)
	}
	return nil
}

// GetPosition devuelve la posición de un token. found=false si no existe.
func (s *SQLiteStore) GetPosition(ctx context.Context, tokenID string) (domain.Position, bool, error) {
	var pos domain.Position
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT token_id, asset, slug, outcome, shares, avg_cost, updated_at
		FROM positions WHERE token_id = ?
	`, tokenID).Scan(&pos.TokenID, &pos.Asset, &pos.Slug, &pos.Outcome, &pos.Shares, &pos.AvgCost, &updatedAt)
	if err == sql.ErrNoRows {
		return domain.Position{}, false, nil
	}
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("storage.GetPosition: %w: %w", domain.ErrStore, err)
	}
	pos.UpdatedAt = parseTime(updatedAt)
	return pos, true, nil
}

// ListPositions devuelve todas las posiciones con shares > 0.
func (s *SQLiteStore) ListPositions(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token_id, asset, slug, outcome, shares, avg_cost, updated_at
		FROM positions WHERE shares > 0
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListPositions: %w: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var pos domain.Position
		var updatedAt string
		if err := rows.Scan(&pos.TokenID, &pos.Asset, &pos.Slug, &pos.Outcome,
			&pos.Shares, &pos.AvgCost, &updatedAt); err != nil {
			return nil, fmt.Errorf("storage.ListPositions: scan: %w", err)
		}
		pos.UpdatedAt = parseTime(updatedAt)
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// AppendOrder añade un registro al histórico y devuelve su id local.
func (s *SQLiteStore) AppendOrder(ctx context.Context, rec domain.OrderRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO orders
			(asset, slug, token_id, outcome, side, order_type, price, size,
			 tick_size, neg_risk, status, order_id, client_order_id,
			 placed_at, updated_at, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Asset, rec.Slug, rec.TokenID, rec.Outcome, string(rec.Side), string(rec.OrderType),
		rec.Price, rec.Size, rec.TickSize, boolToInt(rec.NegRisk), string(rec.Status),
		rec.OrderID, rec.ClientOrderID, rec.PlacedAt.UTC(), rec.UpdatedAt.UTC(), rec.LastError)
	if err != nil {
		return 0, fmt.Errorf("storage.AppendOrder: %w: %w", domain.ErrStore, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage.AppendOrder: last insert id: %w", err)
	}
	return id, nil
}

// UpdateOrderStatus transiciona una orden a un estado terminal. El WHERE
// sobre status='ACTIVE' garantiza la monotonía: una orden ya terminal no
// cambia, silenciosamente.
func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus, lastError string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, last_error = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(status), lastError, time.Now().UTC(), id, string(domain.OrderActive))
	if err != nil {
		return fmt.Errorf("storage.UpdateOrderStatus: %w: %w", domain.ErrStore, err)
	}
	return nil
}

// ActiveOrders devuelve las órdenes ACTIVE de un token.
func (s *SQLiteStore) ActiveOrders(ctx context.Context, tokenID string) ([]domain.OrderRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectOrders+`
		WHERE token_id = ? AND status = ?
		ORDER BY placed_at ASC
	`, tokenID, string(domain.OrderActive))
	if err != nil {
		return nil, fmt.Errorf("storage.ActiveOrders: %w: %w", domain.ErrStore, err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// CountActiveOrders cuenta las órdenes ACTIVE por (token, side).
func (s *SQLiteStore) CountActiveOrders(ctx context.Context, tokenID string, side domain.Side) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE token_id = ? AND side = ? AND status = ?
	`, tokenID, string(side), string(domain.OrderActive)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("storage.CountActiveOrders: %w: %w", domain.ErrStore, err)
	}
	return count, nil
}

// OpenExposureUSD devuelve el capital comprometido: BUYs activas a
// price×size más el notional de las posiciones abiertas.
func (s *SQLiteStore) OpenExposureUSD(ctx context.Context) (float64, error) {
	var orders float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(price * size), 0) FROM orders
		WHERE side = ? AND status = ?
	`, string(domain.SideBuy), string(domain.OrderActive)).Scan(&orders)
	if err != nil {
		return 0, fmt.Errorf("storage.OpenExposureUSD: %w: %w", domain.ErrStore, err)
	}

	var positions float64
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(shares * avg_cost), 0) FROM positions WHERE shares > 0
	`).Scan(&positions)
	if err != nil {
		return 0, fmt.Errorf("storage.OpenExposureUSD: %w: %w", domain.ErrStore, err)
	}
	return orders + positions, nil
}

// ListOrders devuelve el histórico de un token, más reciente primero.
func (s *SQLiteStore) ListOrders(ctx context.Context, tokenID string, limit int) ([]domain.OrderRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, selectOrders+`
		WHERE token_id = ?
		ORDER BY placed_at DESC
		LIMIT ?
	`, tokenID, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListOrders: %w: %w", domain.ErrStore, err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// SaveRunSummary persiste el resumen de un ciclo.
func (s *SQLiteStore) SaveRunSummary(ctx context.Context, summary domain.RunSummary) error {
	assets, err := json.Marshal(summary.Assets)
	if err != nil {
		return fmt.Errorf("storage.SaveRunSummary: marshal assets: %w", err)
	}
	skips, err := json.Marshal(summary.SkippedReasons)
	if err != nil {
		return fmt.Errorf("storage.SaveRunSummary: marshal skips: %w", err)
	}
	errs, err := json.Marshal(summary.Errors)
	if err != nil {
		return fmt.Errorf("storage.SaveRunSummary: marshal errors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_summaries (run_id, started_at, ended_at, assets, skips, errors)
		VALUES (?, ?, ?, ?, ?, ?)
	`, summary.RunID, summary.StartedAt.UTC(), summary.EndedAt.UTC(),
		string(assets), string(skips), string(errs))
	if err != nil {
		return fmt.Errorf("storage.SaveRunSummary: %w: %w", domain.ErrStore, err)
	}
	return nil
}

// LastRunSummary devuelve el resumen más reciente.
func (s *SQLiteStore) LastRunSummary(ctx context.Context) (domain.RunSummary, bool, error) {
	var summary domain.RunSummary
	var startedAt, endedAt, assets, skips, errs string
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, started_at, ended_at, assets, skips, errors
		FROM run_summaries ORDER BY started_at DESC LIMIT 1
	`).Scan(&summary.RunID, &startedAt, &endedAt, &assets, &skips, &errs)
	if err == sql.ErrNoRows {
		return domain.RunSummary{}, false, nil
	}
	if err != nil {
		return domain.RunSummary{}, false, fmt.Errorf("storage.LastRunSummary: %w: %w", domain.ErrStore, err)
	}

	summary.StartedAt = parseTime(startedAt)
	summary.EndedAt = parseTime(endedAt)
	if err := json.Unmarshal([]byte(assets), &summary.Assets); err != nil {
		return domain.RunSummary{}, false, fmt.Errorf("storage.LastRunSummary: unmarshal assets: %w", err)
	}
	if err := json.Unmarshal([]byte(skips), &summary.SkippedReasons); err != nil {
		return domain.RunSummary{}, false, fmt.Errorf("storage.LastRunSummary: unmarshal skips: %w", err)
	}
	if err := json.Unmarshal([]byte(errs), &summary.Errors); err != nil {
		return domain.RunSummary{}, false, fmt.Errorf("storage.LastRunSummary: unmarshal errors: %w", err)
	}
	return summary, true, nil
}

// PruneRunSummaries borra resúmenes anteriores a before.
func (s *SQLiteStore) PruneRunSummaries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM run_summaries WHERE started_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("storage.PruneRunSummaries: %w: %w", domain.ErrStore, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// --- helpers internos ---

const selectOrders = `
	SELECT id, asset, slug, token_id, outcome, side, order_type, price, size,
	       tick_size, neg_risk, status, order_id, client_order_id,
	       placed_at, updated_at, last_error
	FROM orders
`

func scanOrders(rows *sql.Rows) ([]domain.OrderRecord, error) {
	var records []domain.OrderRecord
	for rows.Next() {
		var rec domain.OrderRecord
		var side, orderType, status, placedAt, updatedAt string
		var negRisk int
		if err := rows.Scan(&rec.ID, &rec.Asset, &rec.Slug, &rec.TokenID, &rec.Outcome,
			&side, &orderType, &rec.Price, &rec.Size, &rec.TickSize, &negRisk,
			&status, &rec.OrderID, &rec.ClientOrderID, &placedAt, &updatedAt,
			&rec.LastError); err != nil {
			return nil, fmt.Errorf("storage: scan order: %w", err)
		}
		rec.Side = domain.Side(side)
		rec.OrderType = domain.OrderType(orderType)
		rec.Status = domain.OrderStatus(status)
		rec.NegRisk = negRisk == 1
		rec.PlacedAt = parseTime(placedAt)
		rec.UpdatedAt = parseTime(updatedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// parseTime acepta los formatos con los que el driver serializa DATETIME.
func parseTime(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
