package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/subculture-collective/chatterchain/db"
)

// HandleChannels lists all logged channels.
func (h *Handlers) HandleChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.db == nil {
		http.Error(w, "no database configured", http.StatusServiceUnavailable)
		return
	}
	channels, err := db.Channels(r.Context(), h.db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if channels == nil {
		channels = []db.ChannelInfo{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(channels)
}

// HandleLogsDispatcher routes /logs/{channel} and /logs/{channel}/stream.
func (h *Handlers) HandleLogsDispatcher(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		http.Error(w, "no database configured", http.StatusServiceUnavailable)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/logs/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		h.handleLogsJSON(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "stream":
		h.handleLogsSSE(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

// handleLogsJSON serves filtered channel history.
func (h *Handlers) handleLogsJSON(w http.ResponseWriter, r *http.Request, channel string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := db.LogsQuery{
		Chatter: r.URL.Query().Get("chatter"),
		Pattern: r.URL.Query().Get("pattern"),
		Offset:  parseIntQuery(r, "offset", 0),
		Limit:   parseIntQuery(r, "limit", 100),
	}
	msgs, err := db.FetchLogs(r.Context(), h.db, channel, q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []db.Message{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(msgs)
}

// handleLogsSSE tails new messages for a channel using Server-Sent Events.
func (h *Handlers) handleLogsSSE(w http.ResponseWriter, r *http.Request, channel string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()
	mark, err := db.LatestMessageID(ctx, h.db, channel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	enc := json.NewEncoder(w)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		msgs, err := db.MessagesAfter(ctx, h.db, channel, mark, 500)
		if err != nil {
			slog.Warn("sse tail query failed", slog.String("channel", channel), slog.Any("err", err), slog.String("component", "http"))
			return
		}
		for _, m := range msgs {
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if err := enc.Encode(m); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				return
			}
			mark = m.ID
		}
		if len(msgs) > 0 {
			flusher.Flush()
		}
	}
}
