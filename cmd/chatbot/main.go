// Command chatbot loads a trained model and answers @mentions in the
// configured Twitch channels with sample-best generations. The model is held
// read-only for the whole session; restart the bot (or rerun the trainer and
// restart) to pick up new models.
package main

import (
	"context"
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
	"github.com/subculture-collective/chatterchain/markov"
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
	telemetry.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Fall back to the token stored by the OAuth flow when the env doesn't
	// carry one; the refresher keeps that row current.
	if cfg.TwitchOAuthToken == "" {
		if database, err := db.Connect(); err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			reachable := database.PingContext(pingCtx) == nil
			cancel()
			if !reachable {
				_ = database.Close()
			} else {
				defer func() { _ = database.Close() }()
				if access, _, _, _, err := db.GetOAuthToken(ctx, database, "twitch"); err == nil && access != "" {
					cfg.TwitchOAuthToken = "oauth:" + access
					slog.Info("using stored bot token", slog.String("component", "chatbot"))
				}
				oauth.StartRefresher(ctx, database, "twitch", 5*time.Minute, 15*time.Minute, func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
					res, err := twitchapi.RefreshToken(rctx, cfg.TwitchClientID, cfg.TwitchClientSecret, refreshToken)
					if err != nil {
						return "", "", time.Time{}, "", err
					}
					return res.AccessToken, res.RefreshToken, twitchapi.ComputeExpiry(res.ExpiresIn), strings.Join(res.Scope, " "), nil
				})
			}
		}
	}

	slog.Info("loading model", slog.String("path", cfg.ModelPath))
	f, err := os.Open(cfg.ModelPath)
	if err != nil {
		slog.Error("open model failed", slog.Any("err", err))
		os.Exit(1)
	}
	model, err := markov.LoadAny(f)
	_ = f.Close()
	if err != nil {
		slog.Error("load model failed", slog.Any("err", err))
		os.Exit(1)
	}

	bot := chat.NewBot(cfg, model, nil)
	if err := bot.Run(ctx); err != nil {
		slog.Error("chat bot exited with error", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("chat bot stopped")
}
