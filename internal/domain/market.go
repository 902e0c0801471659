package domain

import "time"

// ResolutionMode indica cómo se resuelve el mercado tradeable de un asset.
type ResolutionMode string

const (
	ResolveExplicit ResolutionMode = "explicit"
	ResolveSlug     ResolutionMode = "slug"
	ResolveScan     ResolutionMode = "scan"
)

// Market es un mercado binario resuelto para un ciclo. Inmutable una vez
// resuelto; se re-resuelve cada ciclo porque estos mercados son de vida
// corta (expiran en minutos).
type Market struct {
	Asset      string
	Slug       string
	YesTokenID string
	NoTokenID  string
	NegRisk    bool
	TickSize   float64
	ExpiresAt  time.Time // zero → expiry desconocido (modo explicit sin expiry)
}

// MarketToken es uno de los dos outcomes del mercado.
type MarketToken struct {
	TokenID string
	Outcome string // "Yes" | "No"
}

// Tokens devuelve los dos tokens del mercado en orden YES, NO.
func (m Market) Tokens() []MarketToken {
	return []MarketToken{
		{TokenID: m.YesTokenID, Outcome: "Yes"},
		{TokenID: m.NoTokenID, Outcome: "No"},
	}
}

// HasExpiry devuelve true si el mercado tiene fecha de expiración conocida.
// Sin expiry conocido la lógica de closeout queda deshabilitada.
func (m Market) HasExpiry() bool {
	return !m.ExpiresAt.IsZero()
}

// TimeToExpiry devuelve el tiempo restante hasta la expiración.
// Devuelve 0 si no hay expiry conocido; negativo si ya expiró.
func (m Market) TimeToExpiry(now time.Time) time.Duration {
	if !m.HasExpiry() {
		return 0
	}
	return m.ExpiresAt.Sub(now)
}

// MarketMetadata es la metadata cruda de un mercado en el listing del venue.
type MarketMetadata struct {
	Slug        string
	Question    string
	ConditionID string
	TokenIDs    []string
	TickSize    float64
	NegRisk     bool
	EndDate     time.Time
	Active      bool
	Closed      bool
	ShortLived  bool // mercados recurrentes de corta duración (hourly/daily)
}
