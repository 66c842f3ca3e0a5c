package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"aShareBacktest/config"
	"aShareBacktest/internal/adapters/logger"
	"aShareBacktest/internal/adapters/parquetstore"
	"aShareBacktest/internal/market"
	"aShareBacktest/internal/utils"
)

// import_bars loads daily bar CSV files into the parquet bar store. Each file
// is named after its code (e.g. 600519.csv or 600519.SH.csv) unless -code is given.
func main() {
	code := flag.String("code", "", "code for a single input file (default: derived from the file name)")
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: import_bars [-code 600519] file.csv [file.csv ...]")
		os.Exit(2)
	}
	if *code != "" && flag.NArg() > 1 {
		log.Fatalf("FATAL: -code can only be used with a single file")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	store := parquetstore.NewStore(cfg.DataDir)
	ctx := context.Background()

	failed := 0
	for _, file := range flag.Args() {
		c := *code
		if c == "" {
			c = codeFromFile(file)
		}
		c = market.StripSuffix(c)
		if err := market.ValidateCode(c); err != nil {
			appLogger.Error(ctx, err, "Skipping file", map[string]interface{}{"file": file})
			failed++
			continue
		}

		bars, err := utils.ReadBarsFromCSV(file)
		if err != nil {
			appLogger.Error(ctx, err, "Error reading bars", map[string]interface{}{"file": file})
			failed++
			continue
		}
		if err := store.WriteBars(ctx, c, bars); err != nil {
			appLogger.Error(ctx, err, "Error writing bars", map[string]interface{}{"code": c})
			failed++
			continue
		}
		appLogger.Info(ctx, "Imported bars", map[string]interface{}{"code": c, "count": len(bars), "file": file})
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func codeFromFile(file string) string {
	return strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
}
