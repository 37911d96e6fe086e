// cmd/featexport computes the full-history feature table (warm-up rows
// kept, undefined values left null) for stored tickers and writes it to
// Parquet or JSON for offline analysis.
//
// Usage:
//
//	go run ./cmd/featexport --format=parquet --out=data/features
//	go run ./cmd/featexport --ticker=7203.jp --format=json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"stock-signal/config"
	"stock-signal/internal/feature"
	"stock-signal/internal/model"
	parquetstore "stock-signal/internal/store/parquet"
	sqlitestore "stock-signal/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	ticker := flag.String("ticker", "", "Single ticker to export (default: every ticker in TICKERS_FILE)")
	format := flag.String("format", "parquet", "Output format: parquet or json")
	outDir := flag.String("out", "", "Output directory (default: DATA_DIR/features)")
	flag.Parse()

	cfg := config.Load()
	if *outDir == "" {
		*outDir = filepath.Join(cfg.DataDir, "features")
	}
	*format = strings.ToLower(*format)
	if *format != "parquet" && *format != "json" {
		log.Fatalf("[featexport] unknown format %q", *format)
	}

	codes, err := exportCodes(*ticker, cfg.TickersFile)
	if err != nil {
		log.Fatalf("[featexport] %v", err)
	}

	repo, err := openRepo(cfg)
	if err != nil {
		log.Fatalf("[featexport] open bar store: %v", err)
	}
	defer repo.Close()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("[featexport] mkdir: %v", err)
	}

	ctx := context.Background()
	exported, totalRows := 0, 0
	for _, code := range codes {
		bars, err := repo.LoadBars(ctx, code)
		if err != nil {
			log.Printf("[featexport] %s: load failed: %v", code, err)
			continue
		}
		if len(bars) == 0 {
			log.Printf("[featexport] %s: no local history, skipped", code)
			continue
		}

		rows := feature.Compute(bars, false)
		path, err := export(rows, *outDir, code, *format)
		if err != nil {
			log.Printf("[featexport] %s: export failed: %v", code, err)
			continue
		}
		exported++
		totalRows += len(rows)
		log.Printf("[featexport] %s: %d rows → %s", code, len(rows), path)
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        FEATURE EXPORT COMPLETE       ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Tickers exported:  %-16d ║\n", exported)
	fmt.Printf("║  Rows written:      %-16d ║\n", totalRows)
	fmt.Printf("║  Format:            %-16s ║\n", *format)
	fmt.Println("╚══════════════════════════════════════╝")
}

func exportCodes(ticker, tickersFile string) ([]string, error) {
	if ticker != "" {
		return []string{ticker}, nil
	}
	tickers, err := config.LoadTickers(tickersFile)
	if err != nil {
		return nil, err
	}
	codes := make([]string, len(tickers))
	for i, t := range tickers {
		codes[i] = t.Code
	}
	return codes, nil
}

func openRepo(cfg *config.Config) (model.BarRepository, error) {
	if cfg.BarStore == "parquet" {
		return parquetstore.New(filepath.Join(cfg.DataDir, "parquet"))
	}
	return sqlitestore.Open(cfg.SQLitePath)
}

// export writes rows to outDir/<code>.features.<ext> and returns the path.
func export(rows []model.FeatureRow, outDir, code, format string) (string, error) {
	if strings.ContainsAny(code, `/\`) || strings.HasPrefix(code, ".") {
		return "", fmt.Errorf("invalid ticker %q", code)
	}
	switch format {
	case "json":
		path := filepath.Join(outDir, code+".features.json")
		raw, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return "", err
		}
		return path, os.WriteFile(path, raw, 0o644)
	default:
		path := filepath.Join(outDir, code+".features.parquet")
		return path, parquetstore.WriteFeatures(path, rows)
	}
}
