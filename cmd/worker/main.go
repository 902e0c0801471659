package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matheushexsel/polymarket-worker/config"
	"github.com/matheushexsel/polymarket-worker/internal/adapters/notify"
	"github.com/matheushexsel/polymarket-worker/internal/adapters/polymarket"
	"github.com/matheushexsel/polymarket-worker/internal/adapters/storage"
	"github.com/matheushexsel/polymarket-worker/internal/api"
	"github.com/matheushexsel/polymarket-worker/internal/application/engine"
	"github.com/matheushexsel/polymarket-worker/internal/domain"
	"github.com/matheushexsel/polymarket-worker/internal/ports"
)

// Retención del histórico de resúmenes de ciclo.
const runSummaryRetention = 7 * 24 * time.Hour

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one cycle and exit")
	dryRun := flag.Bool("dry-run", false, "fetch real books but never place or cancel orders")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full per-asset table (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("worker starting",
		"config", *configPath,
		"interval", cfg.RunInterval(),
		"assets", len(cfg.EnabledAssets()),
		"dry_run", *dryRun,
		"once", *once,
	)

	creds := polymarket.Credentials{
		APIKey:     os.Getenv("POLY_API_KEY"),
		Secret:     os.Getenv("POLY_SECRET"),
		Passphrase: os.Getenv("POLY_PASSPHRASE"),
		Address:    os.Getenv("POLY_ADDRESS"),
	}
	if !creds.Configured() && !*dryRun {
		slog.Error("missing venue credentials (POLY_API_KEY / POLY_SECRET / POLY_ADDRESS); use -dry-run to run without them")
		os.Exit(1)
	}

	client := polymarket.NewClient(cfg.Venue.CLOBBase, cfg.Venue.GammaBase, creds)
	var venue ports.VenueClient = client
	if *dryRun {
		venue = polymarket.NewDryRunClient(client)
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if pruned, err := store.PruneRunSummaries(ctx, time.Now().UTC().Add(-runSummaryRetention)); err != nil {
		slog.Warn("failed to prune old run summaries", "err", err)
	} else if pruned > 0 {
		slog.Debug("old run summaries pruned", "count", pruned)
	}

	notifier := notify.NewConsole(*table)
	eng := engine.New(venue, client, store, notifier, buildEngineConfig(cfg))

	if cfg.API.Enabled {
		srv := api.NewServer(eng, store, api.Config{
			Listen:      cfg.API.Listen,
			BearerToken: cfg.API.BearerToken,
			DryRun:      cfg.API.DryRun || *dryRun,
		})
		go func() {
			if err := srv.Run(ctx); err != nil {
				slog.Error("api server exited with error", "err", err)
				cancel()
			}
		}()
	}

	if *once {
		if _, err := eng.RunOnce(ctx); err != nil {
			slog.Error("cycle failed", "err", err)
			os.Exit(1)
		}
		return
	}

	scheduler := engine.NewScheduler(eng, cfg.RunInterval())
	if err := scheduler.Run(ctx); err != nil {
		slog.Error("worker exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("worker stopped cleanly")
}

// buildEngineConfig traduce la configuración YAML a la configuración del engine.
func buildEngineConfig(cfg *config.Config) engine.Config {
	assets := make([]engine.AssetSpec, 0, len(cfg.EnabledAssets()))
	for _, a := range cfg.EnabledAssets() {
		var expiresAt time.Time
		if a.ExpiresAt != "" {
			t, err := time.Parse(time.RFC3339, a.ExpiresAt)
			if err != nil {
				slog.Warn("asset has invalid expires_at, closeout disabled", "asset", a.Name, "value", a.ExpiresAt)
			} else {
				expiresAt = t.UTC()
			}
		}
		assets = append(assets, engine.AssetSpec{
			Name:       a.Name,
			Mode:       domain.ResolutionMode(a.Mode),
			Slug:       a.Slug,
			YesTokenID: a.YesTokenID,
			NoTokenID:  a.NoTokenID,
			Keywords:   a.Keywords,
			TickSize:   a.TickSize,
			NegRisk:    a.NegRisk,
			ExpiresAt:  expiresAt,
		})
	}

	return engine.Config{
		Assets:         assets,
		MaxBookLatency: time.Duration(cfg.Worker.MaxBookLatencyMs) * time.Millisecond,
		Planner: engine.PlannerConfig{
			FairPrice:            cfg.Quoting.FairPrice,
			HalfSpreadBps:        cfg.Quoting.HalfSpreadBps,
			TargetNotionalUSD:    cfg.Quoting.TargetNotionalUSD,
			MinOrderSize:         cfg.Quoting.MinOrderSize,
			TickImprove:          cfg.Quoting.TickImprove,
			MaxImproveBps:        cfg.Quoting.MaxImproveBps,
			MinProfitBps:         cfg.Quoting.MinProfitBps,
			MinProfitPerShareUSD: cfg.Quoting.MinProfitPerShareUSD,
			MinProfitTotalUSD:    cfg.Quoting.MinProfitTotalUSD,
			SeedEnabled:          cfg.Worker.SeedEnabled,
			CloseoutWindow:       cfg.CloseoutWindow(),
			MaxOrdersPerSide:     cfg.Risk.MaxOrdersPerSide,
			MaxPositionShares:    cfg.Risk.MaxPositionShares,
			MaxExposureUSD:       cfg.Risk.MaxExposureUSD,
			Gate: engine.GateThresholds{
				MinBid:            cfg.Gate.MinBid,
				MaxAsk:            cfg.Gate.MaxAsk,
				MaxSpreadBps:      cfg.Gate.MaxSpreadBps,
				MinTopSumDepthUSD: cfg.Gate.MinTopSumDepthUSD,
				FOKMinDepthUSD:    cfg.Gate.FOKMinDepthUSD,
				SideMinDepthUSD:   cfg.Gate.SideMinDepthUSD,
			},
		},
		Resolver: engine.ResolverConfig{
			MinLead: cfg.MinLead(),
		},
		Tracker: engine.TrackerConfig{
			MaxOrdersPerSide: cfg.Risk.MaxOrdersPerSide,
			StaleOrderAge:    cfg.StaleOrderAge(),
		},
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
