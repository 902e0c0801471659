package ports

import (
	"context"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
)

// ListingFilters acota la consulta al listing de mercados.
type ListingFilters struct {
	Active bool
	Closed bool
	Limit  int
}

// MarketListing es el contrato con el servicio de listado de mercados (Gamma).
type MarketListing interface {
	// ListActiveMarkets devuelve una página acotada de mercados según filtros.
	ListActiveMarkets(ctx context.Context, filters ListingFilters) ([]domain.MarketMetadata, error)

	// FindBySlug busca un mercado por slug (match exacto, case-insensitive).
	// Devuelve found=false si el slug no existe en el listing.
	FindBySlug(ctx context.Context, slug string) (domain.MarketMetadata, bool, error)
}
