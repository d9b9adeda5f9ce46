// Package ingest backfills Chatterino log files into the chat_messages table.
// Files are named <channel>-<YYYY-MM-DD>.log and contain lines like
//
//	# Start logging at 2021-08-01 18:00:03 EDT
//	[18:00:05]  somechatter: message text
//
// The header's timezone applies to every following message time.
package ingest

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/subculture-collective/chatterchain/db"
)

var (
	tzRe  = regexp.MustCompile(`# Start logging at \d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} (\w+)`)
	msgRe = regexp.MustCompile(`\[(\d{2}:\d{2}:\d{2})\]  (\w+): (.*)`)
)

// parseKnownTZOffset maps the timezone abbreviations Chatterino emits to
// fixed offsets. Anything else fails the file rather than silently shifting
// timestamps.
func parseKnownTZOffset(tz string) (string, error) {
	switch tz {
	case "EDT":
		return "-0400", nil
	case "EST":
		return "-0500", nil
	case "UTC":
		return "+0000", nil
	}
	return "", fmt.Errorf("encountered unknown timezone: %s", tz)
}

// Options configures an ingest run.
type Options struct {
	LogsDir string
}

// Stats reports what one run did.
type Stats struct {
	Files    int
	Messages int64
}

// Run walks the log directory and inserts every parseable message. Files that
// fail to parse abort the run; unparseable single lines are skipped.
func Run(ctx context.Context, dbx *sql.DB, opts Options) (Stats, error) {
	var stats Stats
	cache := make(map[string]int64)

	err := filepath.WalkDir(opts.LogsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(d.Name()) != ".log" {
			return nil
		}
		channel, date, ok := splitLogName(d.Name())
		if !ok {
			slog.Warn("skipping log with unrecognized name", slog.String("file", d.Name()), slog.String("component", "ingest"))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		start := time.Now()
		lines, err := parseFile(path, date)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		channelID, err := db.GetOrCreateChannel(ctx, dbx, channel, cache)
		if err != nil {
			return err
		}
		if err := db.InsertMessages(ctx, dbx, channelID, lines); err != nil {
			return fmt.Errorf("insert %s: %w", path, err)
		}

		stats.Files++
		stats.Messages += int64(len(lines))
		slog.Info("file ingested",
			slog.String("channel", channel),
			slog.String("date", date),
			slog.Int("messages", len(lines)),
			slog.Duration("took", time.Since(start)),
			slog.String("component", "ingest"))
		return nil
	})
	if err != nil {
		return stats, err
	}
	return stats, nil
}

// splitLogName extracts channel and date from "<channel>-<YYYY-MM-DD>.log".
// The channel is everything before the first dash; Twitch logins cannot
// contain dashes.
func splitLogName(name string) (channel, date string, ok bool) {
	stem := strings.TrimSuffix(name, ".log")
	channel, date, found := strings.Cut(stem, "-")
	if !found || channel == "" || date == "" {
		return "", "", false
	}
	return channel, date, true
}

// parseFile reads one Chatterino log, resolving each message time against the
// file's date and the most recent timezone header.
func parseFile(path, date string) ([]db.ChatLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	tzOffset := "+0000"
	var out []db.ChatLine
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if m := tzRe.FindStringSubmatch(line); m != nil {
			tzOffset, err = parseKnownTZOffset(m[1])
			if err != nil {
				return nil, err
			}
			continue
		}
		m := msgRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		sentAt, err := time.Parse("2006-01-02 15:04:05 -0700", fmt.Sprintf("%s %s %s", date, m[1], tzOffset))
		if err != nil {
			return nil, fmt.Errorf("bad timestamp on line %q: %w", line, err)
		}
		out = append(out, db.ChatLine{
			Chatter: m[2],
			Message: m[3],
			SentAt:  sentAt.UTC(),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
