package ports

import (
	"context"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
)

// Notifier reporta el resumen de un ciclo (consola, webhook, etc.).
type Notifier interface {
	Notify(ctx context.Context, summary domain.RunSummary) error
}
