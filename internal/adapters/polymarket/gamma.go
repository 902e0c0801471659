package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
	"github.com/matheushexsel/polymarket-worker/internal/ports"
)

// ListActiveMarkets devuelve una página de mercados del listing de Gamma
// según los filtros dados. Una página acotada; la paginación completa no
// hace falta para el scan.
func (c *Client) ListActiveMarkets(ctx context.Context, filters ports.ListingFilters) ([]domain.MarketMetadata, error) {
	params := url.Values{}
	params.Set("active", strconv.FormatBool(filters.Active))
	params.Set("closed", strconv.FormatBool(filters.Closed))
	if filters.Limit > 0 {
		params.Set("limit", strconv.Itoa(filters.Limit))
	}
	params.Set("order", "endDate")
	params.Set("ascending", "true")

	endpoint := fmt.Sprintf("%s/markets?%s", c.gammaBase, params.Encode())

	var raw []gammaMarket
	if err := c.get(ctx, c.gammaLimiter, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("polymarket.ListActiveMarkets: %w: %w", domain.ErrTransientFetch, err)
	}

	markets := make([]domain.MarketMetadata, 0, len(raw))
	for _, gm := range raw {
		markets = append(markets, mapGammaMarket(gm))
	}
	return markets, nil
}

// FindBySlug busca un mercado por slug exacto (case-insensitive).
// Devuelve found=false si Gamma no conoce el slug.
func (c *Client) FindBySlug(ctx context.Context, slug string) (domain.MarketMetadata, bool, error) {
	endpoint := fmt.Sprintf("%s/markets?slug=%s", c.gammaBase, url.QueryEscape(slug))

	var raw []gammaMarket
	if err := c.get(ctx, c.gammaLimiter, endpoint, &raw); err != nil {
		return domain.MarketMetadata{}, false, fmt.Errorf("polymarket.FindBySlug: %w: %w", domain.ErrTransientFetch, err)
	}

	for _, gm := range raw {
		if strings.EqualFold(gm.Slug, slug) {
			return mapGammaMarket(gm), true, nil
		}
	}
	return domain.MarketMetadata{}, false, nil
}
