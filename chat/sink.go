package chat

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DailyLogSink appends chat lines to one file per UTC day, rotating when the
// date changes: <dir>/<channel>/<YYYY-MM-DD>.log. Lines are buffered; call
// Flush on shutdown and after batch boundaries.
type DailyLogSink struct {
	dir     string
	channel string
	day     string
	file    *os.File
	w       *bufio.Writer
}

const sinkBufSize = 64 * 1024

// NewDailyLogSink creates the channel's log directory and opens today's file
// in append mode.
func NewDailyLogSink(dir, channel string) (*DailyLogSink, error) {
	s := &DailyLogSink{dir: filepath.Join(dir, channel), channel: channel}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir for %s: %w", channel, err)
	}
	if err := s.open(time.Now().UTC()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DailyLogSink) open(now time.Time) error {
	day := now.Format("2006-01-02")
	f, err := os.OpenFile(filepath.Join(s.dir, day+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file for %s: %w", s.channel, err)
	}
	s.day = day
	s.file = f
	s.w = bufio.NewWriterSize(f, sinkBufSize)
	return nil
}

// WriteLine appends one message, rotating first if the UTC day rolled over.
// Format: channel,HH:MM:SS,login,text
func (s *DailyLogSink) WriteLine(at time.Time, login, text string) error {
	at = at.UTC()
	if day := at.Format("2006-01-02"); day != s.day {
		if err := s.rotate(at); err != nil {
			return err
		}
	}
	// IRC messages cannot contain newlines, but be safe about log injection.
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	_, err := fmt.Fprintf(s.w, "%s,%s,%s,%s\n", s.channel, at.Format("15:04:05"), login, text)
	return err
}

func (s *DailyLogSink) rotate(now time.Time) error {
	if err := s.Flush(); err != nil {
		return err
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close rotated log for %s: %w", s.channel, err)
	}
	return s.open(now)
}

// Flush writes buffered lines through to the file.
func (s *DailyLogSink) Flush() error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flush log sink for %s: %w", s.channel, err)
	}
	return nil
}

// Close flushes and closes the current file.
func (s *DailyLogSink) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}
