package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"dataikos/internal/config"
	"dataikos/internal/database"
	"dataikos/internal/export"
	"dataikos/internal/logging"
)

// Admin tool: renders the slot schedule or the order list as an xlsx file.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	var (
		mode   = flag.String("mode", "schedule", "what to export: schedule or orders")
		from   = flag.String("from", "", "start date YYYY-MM-DD (default today)")
		days   = flag.Int("days", 14, "number of days in the schedule export")
		status = flag.String("status", "", "order status filter for the orders export")
	)
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	logger := baseLogger.With().Str("component", "export").Logger()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	exporter := export.NewExporter(db, cfg.Exports.Path, &logger)
	ctx := context.Background()

	var filePath string
	switch *mode {
	case "schedule":
		startDate := time.Now()
		if *from != "" {
			startDate, err = time.Parse("2006-01-02", *from)
			if err != nil {
				return fmt.Errorf("parse from date: %w", err)
			}
		}
		endDate := startDate.AddDate(0, 0, *days-1)
		filePath, err = exporter.ExportSchedule(ctx, startDate, endDate)
	case "orders":
		filePath, err = exporter.ExportOrders(ctx, *status)
	default:
		return fmt.Errorf("unknown export mode: %s", *mode)
	}
	if err != nil {
		return err
	}

	fmt.Println(filePath)
	return nil
}
