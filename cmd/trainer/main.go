// Command trainer builds Markov models from collected chat logs in one batch
// run. It reads the collector's log directory, trains one chain per requested
// channel (or a single global model), and atomically replaces the model files
// so the server and bot can pick them up with a reload.
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

	"github.com/subculture-collective/chatterchain/config"
	"github.com/subculture-collective/chatterchain/telemetry"
	"github.com/subculture-collective/chatterchain/trainer"
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

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	logDir := flag.String("logs", cfg.LogDir, "directory of collector log files")
	outDir := flag.String("out", cfg.ModelDir, "output directory for model files")
	order := flag.Int("order", cfg.ChainOrder, "chain order (1..6)")
	channels := flag.String("channels", strings.Join(cfg.TwitchChannels, ","), "comma-separated channels; empty trains one global model")
	authored := flag.Bool("authored", cfg.AuthoredMode, "prefix sentences with the author login")
	fineTune := flag.String("fine-tune", "", "existing model file to continue training from")
	checkpoint := flag.Bool("checkpoint", false, "also write a date-stamped checkpoint")
	after := flag.String("after", "", "skip log files older than this ISO date")
	flag.Parse()

	telemetry.Init()

	var channelList []string
	for _, ch := range strings.Split(*channels, ",") {
		if ch = strings.TrimSpace(ch); ch != "" {
			channelList = append(channelList, ch)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = trainer.Run(ctx, trainer.Options{
		LogDir:       *logDir,
		OutDir:       *outDir,
		Order:        *order,
		Channels:     channelList,
		Authored:     *authored,
		FineTunePath: *fineTune,
		Checkpoint:   *checkpoint,
		AfterDate:    *after,
	})
	if err != nil {
		slog.Error("training failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("done")
}
