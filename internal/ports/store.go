package ports

import (
	"context"
	"time"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
)

// Store es el contrato de persistencia del worker. Todo acceso al estado
// de posiciones y órdenes pasa por aquí — nadie muta directamente.
type Store interface {
	// UpsertPosition crea o actualiza la posición por (asset, slug, token_id).
	UpsertPosition(ctx context.Context, pos domain.Position) error

	// GetPosition devuelve la posición de un token. found=false si no existe.
	GetPosition(ctx context.Context, tokenID string) (domain.Position, bool, error)

	// ListPositions devuelve todas las posiciones con shares > 0.
	ListPositions(ctx context.Context) ([]domain.Position, error)

	// AppendOrder añade un registro al histórico de órdenes y devuelve su id.
	AppendOrder(ctx context.Context, rec domain.OrderRecord) (int64, error)

	// UpdateOrderStatus transiciona una orden ACTIVE a un estado terminal.
	// Las transiciones desde estados terminales se ignoran (monotonía).
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus, lastError string) error

	// ActiveOrders devuelve las órdenes ACTIVE de un token.
	ActiveOrders(ctx context.Context, tokenID string) ([]domain.OrderRecord, error)

	// CountActiveOrders cuenta las órdenes ACTIVE por (token, side).
	CountActiveOrders(ctx context.Context, tokenID string, side domain.Side) (int, error)

	// OpenExposureUSD devuelve la suma de price×size de todas las órdenes
	// BUY ACTIVE más el notional de las posiciones abiertas.
	OpenExposureUSD(ctx context.Context) (float64, error)

	// ListOrders devuelve el histórico de órdenes de un token, más reciente primero.
	ListOrders(ctx context.Context, tokenID string, limit int) ([]domain.OrderRecord, error)

	// SaveRunSummary persiste el resumen de un ciclo (write-once).
	SaveRunSummary(ctx context.Context, summary domain.RunSummary) error

	// LastRunSummary devuelve el resumen más reciente. found=false si no hay.
	LastRunSummary(ctx context.Context) (domain.RunSummary, bool, error)

	// PruneRunSummaries borra resúmenes anteriores a before.
	PruneRunSummaries(ctx context.Context, before time.Time) (int64, error)
}
