// Command collector joins the configured Twitch channels and mirrors every
// chat message into per-channel daily log files and, when Postgres is
// reachable, the chat_messages table. The trainer consumes the log files; the
// HTTP API serves the database rows.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/subculture-collective/chatterchain/chat"
	"github.com/subculture-collective/chatterchain/config"
	"github.com/subculture-collective/chatterchain/db"
	"github.com/subculture-collective/chatterchain/oauth"
	"github.com/subculture-collective/chatterchain/telemetry"
	"github.com/subculture-collective/chatterchain/twitchapi"
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
	if err := cfg.ValidateCollectorReady(); err != nil {
		slog.Error("collector not configured", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdown, err := telemetry.InitTracing("chatterchain-collector", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres mirror is best-effort: without it the collector still writes
	// log files, which is all the trainer needs.
	database := connectDB(ctx)
	if database != nil {
		defer func() { _ = database.Close() }()
		oauth.StartRefresher(ctx, database, "twitch", 5*time.Minute, 15*time.Minute, func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
			res, err := twitchapi.RefreshToken(rctx, cfg.TwitchClientID, cfg.TwitchClientSecret, refreshToken)
			if err != nil {
				return "", "", time.Time{}, "", err
			}
			return res.AccessToken, res.RefreshToken, twitchapi.ComputeExpiry(res.ExpiresIn), strings.Join(res.Scope, " "), nil
		})
	}

	// Startup diagnostics: report which channels are currently live.
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		helix := &twitchapi.HelixClient{
			AppTokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
			ClientID:       cfg.TwitchClientID,
		}
		ctx2, cancel := context.WithTimeout(ctx, 8*time.Second)
		for _, ch := range cfg.TwitchChannels {
			streams, err := helix.GetStreams(ctx2, ch)
			if err != nil {
				slog.Debug("live status check failed", slog.String("channel", ch), slog.Any("err", err))
				continue
			}
			slog.Info("channel status", slog.String("channel", ch), slog.Bool("live", len(streams) > 0))
		}
		cancel()
	}

	collector, err := chat.NewCollector(cfg, database)
	if err != nil {
		slog.Error("collector init failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("collector starting", slog.Any("channels", cfg.TwitchChannels), slog.String("log_dir", cfg.LogDir))
	if err := collector.Run(ctx); err != nil {
		slog.Error("collector exited with error", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("collector stopped")
}

func connectDB(ctx context.Context) *sql.DB {
	database, err := db.Connect()
	if err != nil {
		slog.Warn("db open failed; running file-only", slog.Any("err", err))
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		slog.Warn("db unreachable; running file-only", slog.Any("err", err))
		_ = database.Close()
		return nil
	}
	if err := db.Migrate(ctx, database); err != nil {
		slog.Warn("db migrate failed; running file-only", slog.Any("err", err))
		_ = database.Close()
		return nil
	}
	return database
}
