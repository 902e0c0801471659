package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
	"github.com/matheushexsel/polymarket-worker/internal/ports"
)

// AssetSpec describe un asset configurado y su modo de resolución.
type AssetSpec struct {
	Name       string
	Mode       domain.ResolutionMode
	Slug       string
	YesTokenID string
	NoTokenID  string
	Keywords   []string
	TickSize   float64
	NegRisk    bool
	ExpiresAt  time.Time // opcional en modo explicit
}

// ResolverConfig parametriza el market resolver.
type ResolverConfig struct {
	// MinLead descarta mercados que expiran demasiado pronto:
	// no vale la pena cotizar contra una expiración inminente.
	MinLead   time.Duration
	ScanLimit int
}

// Resolver encuentra el mercado tradeable de un asset para este ciclo.
// Cualquier fallo de red o parseo produce "sin mercado" — nunca propaga
// un error más allá de esta frontera; el ciclo continúa con otros assets.
type Resolver struct {
	listing ports.MarketListing
	cfg     ResolverConfig
}

// NewResolver crea un Resolver.
func NewResolver(listing ports.MarketListing, cfg ResolverConfig) *Resolver {
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = 100
	}
	return &Resolver{listing: listing, cfg: cfg}
}

// Resolve devuelve el mercado del asset según su modo, o found=false.
func (r *Resolver) Resolve(ctx context.Context, asset AssetSpec, now time.Time) (domain.Market, bool) {
	switch asset.Mode {
	case domain.ResolveExplicit:
		return r.resolveExplicit(asset)
	case domain.ResolveSlug:
		return r.resolveSlug(ctx, asset)
	case domain.ResolveScan:
		return r.resolveScan(ctx, asset, now)
	default:
		slog.Warn("resolver: unknown resolution mode", "asset", asset.Name, "mode", asset.Mode)
		return domain.Market{}, false
	}
}

// resolveExplicit construye el mercado desde los token ids configurados,
// sin lookup de red. Sin expiry configurado, el closeout queda deshabilitado.
func (r *Resolver) resolveExplicit(asset AssetSpec) (domain.Market, bool) {
	if asset.YesTokenID == "" || asset.NoTokenID == "" {
		slog.Warn("resolver: explicit mode missing token ids", "asset", asset.Name)
		return domain.Market{}, false
	}
	return domain.Market{
		Asset:      asset.Name,
		Slug:       asset.Slug,
		YesTokenID: asset.YesTokenID,
		NoTokenID:  asset.NoTokenID,
		NegRisk:    asset.NegRisk,
		TickSize:   asset.TickSize,
		ExpiresAt:  asset.ExpiresAt,
	}, true
}

// resolveSlug busca el mercado por slug exacto (case-insensitive) en el
// listing. Fail closed si el listing devuelve menos de dos token ids.
func (r *Resolver) resolveSlug(ctx context.Context, asset AssetSpec) (domain.Market, bool) {
	md, found, err := r.listing.FindBySlug(ctx, asset.Slug)
	if err != nil {
		slog.Warn("resolver: slug lookup failed", "asset", asset.Name, "slug", asset.Slug, "err", err)
		return domain.Market{}, false
	}
	if !found || !strings.EqualFold(md.Slug, asset.Slug) {
		slog.Debug("resolver: slug not found in listing", "asset", asset.Name, "slug", asset.Slug)
		return domain.Market{}, false
	}
	return r.fromMetadata(asset, md)
}

// resolveScan pagina el listing de mercados activos, filtra por keywords y
// el marcador de corta duración, descarta los que expiran dentro del lead
// mínimo, y elige el de expiración más temprana.
func (r *Resolver) resolveScan(ctx context.Context, asset AssetSpec, now time.Time) (domain.Market, bool) {
	listing, err := r.listing.ListActiveMarkets(ctx, ports.ListingFilters{
		Active: true,
		Closed: false,
		Limit:  r.cfg.ScanLimit,
	})
	if err != nil {
		slog.Warn("resolver: listing scan failed", "asset", asset.Name, "err", err)
		return domain.Market{}, false
	}

	var best domain.MarketMetadata
	haveBest := false
	minExpiry := now.Add(r.cfg.MinLead)

	for _, md := range listing {
		if !md.Active || md.Closed || !md.ShortLived {
			continue
		}
		if !r.keywordMatch(asset, md) {
			continue
		}
		if len(md.TokenIDs) < 2 {
			continue
		}
		if md.EndDate.IsZero() || md.EndDate.Before(minExpiry) {
			// Demasiado cerca de expiry — no correr contra la expiración
			continue
		}
		if !haveBest || md.EndDate.Before(best.EndDate) {
			best = md
			haveBest = true
		}
	}

	if !haveBest {
		slog.Debug("resolver: no scan match", "asset", asset.Name, "candidates", len(listing))
		return domain.Market{}, false
	}
	return r.fromMetadata(asset, best)
}

// keywordMatch comprueba que el slug o la question contengan el nombre del
// asset o alguna de sus keywords.
func (r *Resolver) keywordMatch(asset AssetSpec, md domain.MarketMetadata) bool {
	haystack := strings.ToLower(md.Slug + " " + md.Question)
	keys := asset.Keywords
	if len(keys) == 0 {
		keys = []string{asset.Name}
	}
	for _, k := range keys {
		if k != "" && strings.Contains(haystack, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// fromMetadata construye el Market desde metadata del listing.
// Fail closed con menos de dos token ids.
func (r *Resolver) fromMetadata(asset AssetSpec, md domain.MarketMetadata) (domain.Market, bool) {
	if len(md.TokenIDs) < 2 {
		slog.Warn("resolver: market has fewer than two token ids", "asset", asset.Name, "slug", md.Slug)
		return domain.Market{}, false
	}
	tick := md.TickSize
	if tick <= 0 {
		tick = asset.TickSize
	}
	return domain.Market{
		Asset:      asset.Name,
		Slug:       md.Slug,
		YesTokenID: md.TokenIDs[0],
		NoTokenID:  md.TokenIDs[1],
		NegRisk:    md.NegRisk,
		TickSize:   tick,
		ExpiresAt:  md.EndDate,
	}, true
}
