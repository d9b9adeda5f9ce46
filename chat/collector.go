package chat

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/subculture-collective/chatterchain/config"
	"github.com/subculture-collective/chatterchain/db"
	"github.com/subculture-collective/chatterchain/telemetry"
)

// Collector mirrors Twitch chat into per-channel daily log files and,
// when a database handle is provided, batches rows into chat_messages.
type Collector struct {
	cfg   *config.Config
	dbx   *sql.DB // nil disables the Postgres mirror
	sinks map[string]*DailyLogSink

	mu      sync.Mutex
	pending map[string][]db.ChatLine

	channelIDs map[string]int64
}

// NewCollector prepares sinks for every configured channel. The database
// handle may be nil; the collector then only writes log files.
func NewCollector(cfg *config.Config, dbx *sql.DB) (*Collector, error) {
	telemetry.Init()
	c := &Collector{
		cfg:        cfg,
		dbx:        dbx,
		sinks:      make(map[string]*DailyLogSink, len(cfg.TwitchChannels)),
		pending:    make(map[string][]db.ChatLine),
		channelIDs: make(map[string]int64),
	}
	for _, ch := range cfg.TwitchChannels {
		slog.Info("initializing log sink", slog.String("channel", ch), slog.String("component", "collector"))
		sink, err := NewDailyLogSink(cfg.LogDir, ch)
		if err != nil {
			return nil, err
		}
		c.sinks[ch] = sink
	}
	return c, nil
}

// Run connects to Twitch IRC, joins the configured channels, and records chat
// until the context is cancelled. It blocks for the lifetime of the
// connection and flushes everything on the way out.
func (c *Collector) Run(ctx context.Context) error {
	var client *twitch.Client
	if c.cfg.TwitchBotUsername != "" && c.cfg.TwitchOAuthToken != "" {
		client = twitch.NewClient(c.cfg.TwitchBotUsername, c.cfg.TwitchOAuthToken)
	} else {
		slog.Info("no bot credentials; connecting anonymously", slog.String("component", "collector"))
		client = twitch.NewAnonymousClient()
	}

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		c.record(msg)
	})

	// Periodic flush so quiet channels still reach disk and DB.
	go func() {
		ticker := time.NewTicker(c.cfg.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.flush(ctx)
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := client.Disconnect(); err != nil {
			slog.Warn("twitch disconnect", slog.Any("err", err), slog.String("component", "collector"))
		}
		close(done)
	}()

	client.Join(c.cfg.TwitchChannels...)
	slog.Info("collector connecting", slog.Int("channels", len(c.cfg.TwitchChannels)), slog.String("component", "collector"))
	if err := client.Connect(); err != nil && ctx.Err() == nil {
		return err
	}
	<-done

	// Final drain: DB batch first, then the file sinks.
	c.flush(context.WithoutCancel(ctx))
	for ch, sink := range c.sinks {
		if err := sink.Close(); err != nil {
			slog.Error("closing log sink", slog.String("channel", ch), slog.Any("err", err), slog.String("component", "collector"))
		}
	}
	return nil
}

func (c *Collector) record(msg twitch.PrivateMessage) {
	telemetry.ChatMessagesReceived.Inc()
	at := msg.Time.UTC()
	if at.IsZero() {
		at = time.Now().UTC()
	}

	sink, ok := c.sinks[msg.Channel]
	if !ok {
		return
	}
	if err := sink.WriteLine(at, msg.User.Name, msg.Message); err != nil {
		slog.Error("log sink write failed", slog.String("channel", msg.Channel), slog.Any("err", err), slog.String("component", "collector"))
	}

	if c.dbx == nil {
		return
	}
	c.mu.Lock()
	c.pending[msg.Channel] = append(c.pending[msg.Channel], db.ChatLine{
		Chatter: msg.User.Name,
		Message: msg.Message,
		SentAt:  at,
	})
	full := len(c.pending[msg.Channel]) >= c.cfg.BatchSize
	c.mu.Unlock()
	if full {
		c.flush(context.Background())
	}
}

// flush drains the pending buffers into Postgres and pushes sink buffers to
// disk. Insert failures keep the batch for the next attempt.
func (c *Collector) flush(ctx context.Context) {
	c.mu.Lock()
	batches := c.pending
	c.pending = make(map[string][]db.ChatLine)
	c.mu.Unlock()

	for ch, lines := range batches {
		if len(lines) == 0 {
			continue
		}
		if err := c.insert(ctx, ch, lines); err != nil {
			telemetry.ChatInsertFailures.Inc()
			slog.Error("chat batch insert failed", slog.String("channel", ch), slog.Int("messages", len(lines)), slog.Any("err", err), slog.String("component", "collector"))
			c.mu.Lock()
			c.pending[ch] = append(lines, c.pending[ch]...)
			c.mu.Unlock()
			continue
		}
		telemetry.ChatMessagesPersisted.Add(float64(len(lines)))
		slog.Debug("chat batch inserted", slog.String("channel", ch), slog.Int("messages", len(lines)), slog.String("component", "collector"))
	}

	for ch, sink := range c.sinks {
		if err := sink.Flush(); err != nil {
			slog.Error("log sink flush failed", slog.String("channel", ch), slog.Any("err", err), slog.String("component", "collector"))
		}
	}
}

func (c *Collector) insert(ctx context.Context, channel string, lines []db.ChatLine) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	id, err := db.GetOrCreateChannel(ctx, c.dbx, channel, c.channelIDs)
	if err != nil {
		return err
	}
	return db.InsertMessages(ctx, c.dbx, id, lines)
}
