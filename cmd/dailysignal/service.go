package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"stock-signal/config"
	"stock-signal/internal/bars"
	"stock-signal/internal/dashboard"
	"stock-signal/internal/marketdata/alpaca"
	"stock-signal/internal/marketdata/stooq"
	"stock-signal/internal/metrics"
	"stock-signal/internal/model"
	"stock-signal/internal/notification"
	"stock-signal/internal/pipeline"
	parquetstore "stock-signal/internal/store/parquet"
	redisstore "stock-signal/internal/store/redis"
	sqlitestore "stock-signal/internal/store/sqlite"
)

// runOptions are command-line overrides on top of the environment config.
type runOptions struct {
	SkipUpdate bool
}

// service wires the stores, adapters and publishers around one pipeline run.
type service struct {
	cfg   *config.Config
	log   *slog.Logger
	runID string

	db     *sqlitestore.DB
	pq     *parquetstore.Store
	redis  *redisstore.Publisher
	prom   *metrics.Metrics
	health *metrics.HealthStatus
	server *metrics.Server
	pipe   *pipeline.Pipeline
}

func newService(cfg *config.Config, lg *slog.Logger, opts runOptions) (*service, error) {
	runID := uuid.NewString()
	svc := &service{
		cfg:    cfg,
		log:    lg.With(slog.String("run_id", runID)),
		runID:  runID,
		prom:   metrics.NewMetrics(),
		health: metrics.NewHealthStatus(),
	}

	// ---- SQLite: signal journal, and bars unless Parquet is selected ----
	db, err := sqlitestore.Open(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	svc.db = db
	var repo model.BarRepository = db
	if cfg.BarStore == "parquet" {
		svc.pq, err = parquetstore.New(filepath.Join(cfg.DataDir, "parquet"))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("open parquet store: %w", err)
		}
		repo = svc.pq
	}

	var fetcher model.QuoteFetcher
	switch cfg.QuoteSource {
	case "alpaca":
		fetcher = alpaca.New(cfg.AlpacaAPIKey, cfg.AlpacaSecretKey, cfg.HistoryYears)
	default:
		fetcher = stooq.New(cfg.StooqBaseURL)
	}

	// ---- Notification channels ----
	backends := notification.Multi{notification.NewLogNotifier()}
	if cfg.TelegramEnabled() {
		tg, err := notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			svc.log.Warn("telegram disabled", "error", err)
		} else {
			backends = append(backends, tg)
		}
	}
	if cfg.LineEnabled() {
		backends = append(backends, notification.NewLineNotifier(cfg.LineChannelToken, cfg.LineUserID))
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	notifier := notification.NewSignalNotifier(backends, cfg.DashboardURL, svc.log)
	notifier.OnFailure = func(model.Signal, error) { svc.prom.NotifyFailures.Inc() }

	// ---- Optional Redis publisher ----
	publishers := map[string]model.SignalPublisher{}
	if cfg.RedisAddr != "" {
		pub, err := redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			svc.log.Warn("redis unavailable, continuing without", "error", err)
		} else {
			svc.redis = pub
			cb := pub.Breaker()
			logChange := cb.OnStateChange
			cb.OnStateChange = func(from, to redisstore.State) {
				logChange(from, to)
				svc.prom.RedisCircuitBreakerState.Set(float64(to))
			}
			publishers["redis"] = pub
		}
	}

	if cfg.MetricsAddr != "" {
		svc.server = metrics.NewServer(cfg.MetricsAddr, svc.prom, svc.health)
	}

	svc.pipe = pipeline.New(pipeline.Deps{
		Bars:       bars.New(repo, fetcher, svc.log),
		Journal:    db,
		Notifier:   notifier,
		Dashboard:  dashboard.New(cfg.DocsDir, dashboard.Options{}),
		Publishers: publishers,
		Metrics:    svc.prom,
		Logger:     svc.log,
	}, pipeline.Options{
		Workers:    cfg.Workers,
		RunID:      runID,
		SkipUpdate: opts.SkipUpdate,
	})

	svc.log.Info("service ready",
		"bar_store", cfg.BarStore,
		"quote_source", fetcher.Name(),
		"notifiers", len(backends),
		"redis", svc.redis != nil,
	)
	return svc, nil
}

// run executes one pipeline pass and pushes metrics.
func (svc *service) run(ctx context.Context, tickers []model.Ticker) pipeline.Report {
	if svc.server != nil {
		svc.server.Start()
	}

	svc.health.RunStarted()
	rep := svc.pipe.Run(ctx, tickers)
	svc.health.RunFinished(rep.Finished, len(rep.Signals), rep.Skipped(), rep.Err())

	for _, o := range rep.Outcomes {
		switch {
		case o.Signal != nil:
			svc.log.Info("result", "ticker", o.Ticker.Code, "action", o.Signal.Action, "prob_up", o.Signal.ProbUp)
		case errors.Is(o.Err, context.Canceled):
			svc.log.Warn("result", "ticker", o.Ticker.Code, "skipped", "canceled")
		default:
			svc.log.Warn("result", "ticker", o.Ticker.Code, "skipped", pipeline.Reason(o.Err), "error", o.Err)
		}
	}

	pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.prom.Push(pushCtx, svc.cfg.PushgatewayURL, "dailysignal"); err != nil {
		svc.log.Warn("metrics push failed", "error", err)
	}
	return rep
}

// close releases every resource in reverse order of acquisition.
func (svc *service) close() {
	if svc.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := svc.server.Stop(ctx); err != nil {
			svc.log.Warn("metrics server stop", "error", err)
		}
		cancel()
	}
	if svc.redis != nil {
		svc.redis.Close()
	}
	if svc.pq != nil {
		svc.pq.Close()
	}
	if err := svc.db.Close(); err != nil {
		svc.log.Warn("sqlite close", "error", err)
	}
}
