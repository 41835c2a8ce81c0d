// Command subtrack-import loads a bank or card export into the subscription
// store, or onto the ingest queue when one is configured.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"subtrack/internal/cli"
	"subtrack/internal/ingest"
	"subtrack/internal/log"
)

func main() {
	file := flag.String("file", "", "path to the CSV export")
	format := flag.String("format", ingest.FormatGeneric, "bank export format")
	direct := flag.Bool("direct", false, "store records now even when a queue is configured")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: subtrack-import -file export.csv [-format generic] [-direct]")
		os.Exit(2)
	}

	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentIngest)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(*file)
	if err != nil {
		logger.Error("Failed to open export", log.FieldError, err, "file", *file)
		os.Exit(1)
	}
	parsed, err := ingest.NewCSVParser().Parse(f, *format)
	_ = f.Close()
	if err != nil {
		logger.Error("Failed to parse export", log.FieldError, err, "file", *file, "format", *format)
		os.Exit(1)
	}
	logger.Info("Parsed export", "file", *file, "rows", parsed.Rows,
		"candidates", len(parsed.Candidates), "unparsable", parsed.Skipped)

	queue := cfg.AMQPEnabled() && !*direct
	if err := checkTarget(cfg.DataBackend, queue); err != nil {
		logger.Error("Refusing to import", log.FieldError, err)
		os.Exit(1)
	}

	res := cli.CreateBackend(ctx, cfg, logger)
	svc := cli.NewService(cfg, res, logger)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}()

	if queue && res.Publisher == nil {
		queue = false
		if err := checkTarget(cfg.DataBackend, queue); err != nil {
			logger.Error("Ingest queue unavailable, refusing to import", log.FieldError, err)
			_ = res.Cleanup()
			os.Exit(1)
		}
		logger.Warn("Ingest queue unavailable, storing records directly", "backend", cfg.DataBackend)
	}

	var out any
	if queue {
		out, err = svc.QueueIngest(ctx, ingest.SourceCSV, parsed.Candidates)
	} else {
		out, err = svc.Ingest(ctx, ingest.SourceCSV, parsed.Candidates)
	}
	if err != nil {
		logger.Error("Import failed", log.FieldError, err, "file", *file)
		stop()
		_ = res.Cleanup()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
