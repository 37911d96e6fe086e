// cmd/dailysignal runs the daily signal job once: refresh bars, train a
// model per ticker, emit BUY/SELL levels, notify and publish the dashboard.
//
// Usage:
//
//	go run ./cmd/dailysignal --tickers=tickers.yml --workers=2
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"stock-signal/config"
	"stock-signal/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	tickersPath := flag.String("tickers", "", "Path to tickers.yml (overrides TICKERS_FILE)")
	workers := flag.Int("workers", 0, "Tickers processed concurrently (overrides WORKERS)")
	skipUpdate := flag.Bool("skip-update", false, "Use local bars only; do not contact the quote source")
	flag.Parse()

	cfg := config.Load()
	if *tickersPath != "" {
		cfg.TickersFile = *tickersPath
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("[dailysignal] %v", err)
		return 2
	}

	lg := logger.Init("dailysignal", logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	tickers, err := config.LoadTickers(cfg.TickersFile)
	if err != nil {
		lg.Error("load tickers", "error", err)
		return 2
	}
	if len(tickers) == 0 {
		lg.Warn("no enabled tickers; nothing to do", "file", cfg.TickersFile)
		return 0
	}
	if err := cfg.EnsureDirs(); err != nil {
		lg.Error("prepare directories", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := newService(cfg, lg, runOptions{SkipUpdate: *skipUpdate})
	if err != nil {
		lg.Error("init failed", "error", err)
		return 1
	}
	defer svc.close()

	rep := svc.run(ctx, tickers)
	if err := rep.Err(); err != nil {
		lg.Error("run finished with delivery failures", "error", err)
		return 1
	}
	return 0
}
