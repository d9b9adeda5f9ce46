package chat

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/subculture-collective/chatterchain/config"
	"github.com/subculture-collective/chatterchain/markov"
	"github.com/subculture-collective/chatterchain/telemetry"
)

// Bot answers messages of the form `@<botname> [seed...]` with a sample-best
// generation from a loaded model. The model is read-only for the bot's
// lifetime, so the IRC read loop can sample without locking.
type Bot struct {
	cfg   *config.Config
	model markov.Model
	rng   markov.Rand
}

// NewBot wires a bot around a loaded model. A nil rng gets a PCG source
// seeded from the global generator.
func NewBot(cfg *config.Config, model markov.Model, rng markov.Rand) *Bot {
	telemetry.Init()
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Bot{cfg: cfg, model: model, rng: rng}
}

// Reply computes the response for one incoming message, or "" when the
// message is not addressed to the bot or generation came up empty.
func (b *Bot) Reply(text string) string {
	prefix := "@" + strings.ToLower(b.cfg.TwitchBotUsername)
	if !strings.HasPrefix(strings.ToLower(text), prefix) {
		return ""
	}
	// format: `@BOTNAME <seed...>`; the seed is truncated to the model order.
	seed := strings.Fields(text)[1:]
	if max := b.model.Order(); len(seed) > max {
		seed = seed[:max]
	}
	out, err := b.model.SampleBest(seed, b.rng, b.cfg.SampleCount)
	if err != nil {
		slog.Error("generation failed", slog.Any("err", err), slog.String("component", "chatbot"))
		return ""
	}
	telemetry.GenerationsTotal.Inc()
	return strings.Join(out, " ")
}

// Run connects the bot to chat and answers mentions until the context is
// cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.cfg.ValidateChatReady(); err != nil {
		return err
	}
	client := twitch.NewClient(b.cfg.TwitchBotUsername, b.cfg.TwitchOAuthToken)

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		if strings.EqualFold(msg.User.Name, b.cfg.TwitchBotUsername) {
			return
		}
		if resp := b.Reply(msg.Message); resp != "" {
			slog.Info("replying",
				slog.String("channel", msg.Channel),
				slog.String("to", msg.User.Name),
				slog.Int("length", len(resp)),
				slog.String("component", "chatbot"))
			client.Say(msg.Channel, resp)
		}
	})

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := client.Disconnect(); err != nil {
			slog.Warn("twitch disconnect", slog.Any("err", err), slog.String("component", "chatbot"))
		}
		close(done)
	}()

	client.Join(b.cfg.TwitchChannels...)
	slog.Info("chat bot ready",
		slog.Int("channels", len(b.cfg.TwitchChannels)),
		slog.Int("order", b.model.Order()),
		slog.String("component", "chatbot"))
	if err := client.Connect(); err != nil && ctx.Err() == nil {
		return err
	}
	<-done
	return nil
}
