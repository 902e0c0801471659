package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del worker.
type Config struct {
	Worker  WorkerConfig  `yaml:"worker"`
	Quoting QuotingConfig `yaml:"quoting"`
	Risk    RiskConfig    `yaml:"risk"`
	Gate    GateConfig    `yaml:"gate"`
	Assets  []AssetConfig `yaml:"assets"`
	API     APIConfig     `yaml:"api"`
	Venue   VenueConfig   `yaml:"venue"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// WorkerConfig controla el ciclo de ejecución.
type WorkerConfig struct {
	IntervalSeconds       int  `yaml:"interval_seconds"`
	CloseoutWindowSeconds int  `yaml:"closeout_window_seconds"`
	StaleOrderSeconds     int  `yaml:"stale_order_seconds"`
	MaxBookLatencyMs      int  `yaml:"max_book_latency_ms"`
	MinLeadSeconds        int  `yaml:"min_lead_seconds"`
	SeedEnabled           bool `yaml:"seed_enabled"`
}

// QuotingConfig controla precios y tamaños de las quotes.
type QuotingConfig struct {
	FairPrice            float64 `yaml:"fair_price"`
	HalfSpreadBps        float64 `yaml:"half_spread_bps"`
	TargetNotionalUSD    float64 `yaml:"target_notional_usd"`
	MinOrderSize         float64 `yaml:"min_order_size"`
	TickImprove          int     `yaml:"tick_improve"`
	MaxImproveBps        float64 `yaml:"max_improve_bps"`
	MinProfitBps         float64 `yaml:"min_profit_bps"`
	MinProfitPerShareUSD float64 `yaml:"min_profit_per_share_usd"`
	MinProfitTotalUSD    float64 `yaml:"min_profit_total_usd"`
}

// RiskConfig limita exposición y número de órdenes.
type RiskConfig struct {
	MaxOrdersPerSide  int     `yaml:"max_orders_per_side"`
	MaxPositionShares float64 `yaml:"max_position_shares"`
	MaxExposureUSD    float64 `yaml:"max_exposure_usd"`
}

// GateConfig contiene los umbrales de elegibilidad del book.
type GateConfig struct {
	MinBid            float64 `yaml:"min_bid"`
	MaxAsk            float64 `yaml:"max_ask"`
	MaxSpreadBps      float64 `yaml:"max_spread_bps"`
	MinTopSumDepthUSD float64 `yaml:"min_top_sum_depth_usd"`
	FOKMinDepthUSD    float64 `yaml:"fok_min_depth_usd"`
	SideMinDepthUSD   float64 `yaml:"side_min_depth_usd"`
}

// AssetConfig describe un activo a cotizar y cómo resolver su mercado.
type AssetConfig struct {
	Name       string   `yaml:"name"`
	Mode       string   `yaml:"mode"` // explicit | slug | scan
	Slug       string   `yaml:"slug"`
	YesTokenID string   `yaml:"yes_token_id"`
	NoTokenID  string   `yaml:"no_token_id"`
	Keywords   []string `yaml:"keywords"`
	TickSize   float64  `yaml:"tick_size"`
	NegRisk    bool     `yaml:"neg_risk"`
	ExpiresAt  string   `yaml:"expires_at"` // RFC3339, opcional en modo explicit
	Enabled    *bool    `yaml:"enabled"`    // nil → habilitado
}

// APIConfig controla el servidor HTTP de control.
type APIConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Listen      string `yaml:"listen"`
	BearerToken string `yaml:"bearer_token"`
	DryRun      bool   `yaml:"dry_run"`
}

// VenueConfig contiene los base URLs de las APIs del venue.
type VenueConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// Validate comprueba la configuración requerida para arrancar.
// Un error aquí aborta el proceso — nunca se valida por ciclo.
func (c *Config) Validate() error {
	if len(c.EnabledAssets()) == 0 {
		return fmt.Errorf("config.Validate: no enabled assets configured")
	}
	for _, a := range c.Assets {
		switch a.Mode {
		case "explicit":
			if a.YesTokenID == "" || a.NoTokenID == "" {
				return fmt.Errorf("config.Validate: asset %q: explicit mode requires yes_token_id and no_token_id", a.Name)
			}
		case "slug":
			if a.Slug == "" {
				return fmt.Errorf("config.Validate: asset %q: slug mode requires slug", a.Name)
			}
		case "scan":
			if len(a.Keywords) == 0 && a.Name == "" {
				return fmt.Errorf("config.Validate: asset %q: scan mode requires keywords", a.Name)
			}
		default:
			return fmt.Errorf("config.Validate: asset %q: unknown mode %q", a.Name, a.Mode)
		}
	}
	if c.Quoting.FairPrice <= 0 || c.Quoting.FairPrice >= 1 {
		return fmt.Errorf("config.Validate: quoting.fair_price must be in (0,1), got %v", c.Quoting.FairPrice)
	}
	if c.Risk.MaxOrdersPerSide <= 0 {
		return fmt.Errorf("config.Validate: risk.max_orders_per_side must be positive")
	}
	if c.API.Enabled && c.API.BearerToken == "" {
		return fmt.Errorf("config.Validate: api.bearer_token required when api is enabled (set API_BEARER_TOKEN)")
	}
	return nil
}

// EnabledAssets devuelve solo los assets habilitados.
func (c *Config) EnabledAssets() []AssetConfig {
	out := make([]AssetConfig, 0, len(c.Assets))
	for _, a := range c.Assets {
		if a.Enabled == nil || *a.Enabled {
			out = append(out, a)
		}
	}
	return out
}

// RunInterval devuelve el intervalo entre ciclos como time.Duration.
func (c *Config) RunInterval() time.Duration {
	return time.Duration(c.Worker.IntervalSeconds) * time.Second
}

// CloseoutWindow devuelve la ventana de closeout como time.Duration.
func (c *Config) CloseoutWindow() time.Duration {
	return time.Duration(c.Worker.CloseoutWindowSeconds) * time.Second
}

// StaleOrderAge devuelve la edad a partir de la cual una orden ACTIVE se cancela.
func (c *Config) StaleOrderAge() time.Duration {
	return time.Duration(c.Worker.StaleOrderSeconds) * time.Second
}

// MinLead devuelve el lead time mínimo hasta expiry para aceptar un mercado.
func (c *Config) MinLead() time.Duration {
	return time.Duration(c.Worker.MinLeadSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
// Los secretos (bearer token) solo viven en el entorno.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("API_BEARER_TOKEN"); v != "" {
		cfg.API.BearerToken = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Worker.IntervalSeconds <= 0 {
		cfg.Worker.IntervalSeconds = 15
	}
	if cfg.Worker.CloseoutWindowSeconds <= 0 {
		cfg.Worker.CloseoutWindowSeconds = 60
	}
	if cfg.Worker.StaleOrderSeconds <= 0 {
		cfg.Worker.StaleOrderSeconds = 90
	}
	if cfg.Worker.MaxBookLatencyMs <= 0 {
		cfg.Worker.MaxBookLatencyMs = 1500
	}
	if cfg.Worker.MinLeadSeconds <= 0 {
		cfg.Worker.MinLeadSeconds = 120
	}
	if cfg.Quoting.FairPrice <= 0 {
		cfg.Quoting.FairPrice = 0.50
	}
	if cfg.Quoting.HalfSpreadBps <= 0 {
		cfg.Quoting.HalfSpreadBps = 1000
	}
	if cfg.Quoting.TargetNotionalUSD <= 0 {
		cfg.Quoting.TargetNotionalUSD = 2
	}
	if cfg.Quoting.MinOrderSize <= 0 {
		cfg.Quoting.MinOrderSize = 1
	}
	if cfg.Quoting.TickImprove <= 0 {
		cfg.Quoting.TickImprove = 1
	}
	if cfg.Quoting.MaxImproveBps <= 0 {
		cfg.Quoting.MaxImproveBps = 50
	}
	if cfg.Risk.MaxOrdersPerSide <= 0 {
		cfg.Risk.MaxOrdersPerSide = 2
	}
	if cfg.Gate.MinBid <= 0 {
		cfg.Gate.MinBid = 0.02
	}
	if cfg.Gate.MaxAsk <= 0 {
		cfg.Gate.MaxAsk = 0.98
	}
	if cfg.Gate.MaxSpreadBps <= 0 {
		cfg.Gate.MaxSpreadBps = 2000
	}
	if cfg.Gate.MinTopSumDepthUSD <= 0 {
		cfg.Gate.MinTopSumDepthUSD = 10
	}
	if cfg.Gate.FOKMinDepthUSD <= 0 {
		cfg.Gate.FOKMinDepthUSD = 5
	}
	if cfg.Gate.SideMinDepthUSD <= 0 {
		cfg.Gate.SideMinDepthUSD = 2
	}
	for i := range cfg.Assets {
		if cfg.Assets[i].TickSize <= 0 {
			cfg.Assets[i].TickSize = 0.01
		}
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = ":8080"
	}
	if cfg.Venue.CLOBBase == "" {
		cfg.Venue.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.Venue.GammaBase == "" {
		cfg.Venue.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "worker.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
