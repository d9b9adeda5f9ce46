package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ChatLine is one chat message headed for storage.
type ChatLine struct {
	Chatter string
	Message string
	SentAt  time.Time
}

// Message is a stored chat message as served by the log API.
type Message struct {
	ID      int64     `json:"id"`
	Channel string    `json:"channel"`
	Chatter string    `json:"chatter"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// ChannelInfo describes a logged channel.
type ChannelInfo struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	LoggingEnabled bool   `json:"logging_enabled"`
}

// GetOrCreateChannel resolves a channel name to its id, inserting the row on first
// sight. The optional cache avoids a round trip per message during bulk ingest.
func GetOrCreateChannel(ctx context.Context, dbx *sql.DB, name string, cache map[string]int64) (int64, error) {
	if cache != nil {
		if id, ok := cache[name]; ok {
			return id, nil
		}
	}
	var id int64
	err := dbx.QueryRowContext(ctx,
		`INSERT INTO channels (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("get or create channel %q: %w", name, err)
	}
	if cache != nil {
		cache[name] = id
	}
	return id, nil
}

// insertChunk bounds the parameter count of a single multi-row insert
// (Postgres caps bind parameters at 65535).
const insertChunk = 500

// InsertMessages bulk-inserts chat lines for one channel using multi-row statements.
func InsertMessages(ctx context.Context, dbx *sql.DB, channelID int64, lines []ChatLine) error {
	for len(lines) > 0 {
		n := len(lines)
		if n > insertChunk {
			n = insertChunk
		}
		chunk := lines[:n]
		lines = lines[n:]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO chat_messages (channel_id, chatter, message, sent_at) VALUES `)
		args := make([]any, 0, len(chunk)*4)
		for i, l := range chunk {
			if i > 0 {
				sb.WriteString(",")
			}
			base := i * 4
			fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4)
			args = append(args, channelID, l.Chatter, l.Message, l.SentAt)
		}
		if _, err := dbx.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert %d chat messages: %w", len(chunk), err)
		}
	}
	return nil
}

// Channels lists all channels that have ever been logged.
func Channels(ctx context.Context, dbx *sql.DB) ([]ChannelInfo, error) {
	rows, err := dbx.QueryContext(ctx, `SELECT id, name, logging_enabled FROM channels ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []ChannelInfo
	for rows.Next() {
		var ch ChannelInfo
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.LoggingEnabled); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// LogsQuery filters a channel log fetch. Zero values mean "no filter"; Limit
// defaults to 100 and is capped at 1000.
type LogsQuery struct {
	Chatter string
	Pattern string
	Offset  int
	Limit   int
}

// FetchLogs returns messages for a channel, newest first.
func FetchLogs(ctx context.Context, dbx *sql.DB, channel string, q LogsQuery) ([]Message, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	var sb strings.Builder
	sb.WriteString(`SELECT m.id, c.name, m.chatter, m.message, m.sent_at
		FROM chat_messages m JOIN channels c ON c.id = m.channel_id
		WHERE c.name = $1`)
	args := []any{channel}
	if q.Chatter != "" {
		args = append(args, q.Chatter)
		fmt.Fprintf(&sb, " AND m.chatter = $%d", len(args))
	}
	if q.Pattern != "" {
		args = append(args, "%"+q.Pattern+"%")
		fmt.Fprintf(&sb, " AND m.message ILIKE $%d", len(args))
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY m.sent_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	fmt.Fprintf(&sb, " OFFSET $%d", len(args))

	rows, err := dbx.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("fetch logs for %q: %w", channel, err)
	}
	defer func() { _ = rows.Close() }()
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Channel, &m.Chatter, &m.Message, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MessagesAfter returns up to limit messages with id greater than sinceID for a
// channel, oldest first. The SSE stream uses it to tail new rows.
func MessagesAfter(ctx context.Context, dbx *sql.DB, channel string, sinceID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := dbx.QueryContext(ctx, `SELECT m.id, c.name, m.chatter, m.message, m.sent_at
		FROM chat_messages m JOIN channels c ON c.id = m.channel_id
		WHERE c.name = $1 AND m.id > $2
		ORDER BY m.id ASC LIMIT $3`, channel, sinceID, limit)
	if err != nil {
		return nil, fmt.Errorf("tail logs for %q: %w", channel, err)
	}
	defer func() { _ = rows.Close() }()
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Channel, &m.Chatter, &m.Message, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LatestMessageID returns the current high-water mark for a channel (0 when empty).
func LatestMessageID(ctx context.Context, dbx *sql.DB, channel string) (int64, error) {
	var id sql.NullInt64
	err := dbx.QueryRowContext(ctx, `SELECT MAX(m.id)
		FROM chat_messages m JOIN channels c ON c.id = m.channel_id
		WHERE c.name = $1`, channel).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id.Int64, nil
}
