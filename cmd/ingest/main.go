// Command ingest backfills Chatterino log files into the Postgres chat log.
//
//	ingest -logs /path/to/chatterino/logs
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/subculture-collective/chatterchain/db"
	"github.com/subculture-collective/chatterchain/ingest"
)

func initLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	_ = godotenv.Load()
	initLogging()

	logsDir := flag.String("logs", os.Getenv("INGEST_LOGS_DIR"), "directory of Chatterino log files")
	flag.Parse()
	if *logsDir == "" {
		slog.Error("missing -logs directory (or INGEST_LOGS_DIR)")
		os.Exit(2)
	}

	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() { _ = database.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(ctx, database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}

	slog.Info("ingesting logs", slog.String("dir", *logsDir))
	stats, err := ingest.Run(ctx, database, ingest.Options{LogsDir: *logsDir})
	if err != nil {
		slog.Error("ingest failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("ingest complete", slog.Int("files", stats.Files), slog.Int64("messages", stats.Messages))
}
