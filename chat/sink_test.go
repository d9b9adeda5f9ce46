package chat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDailyLogSinkWritesAndRotates(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDailyLogSink(dir, "testchan")
	if err != nil {
		t.Fatalf("NewDailyLogSink error: %v", err)
	}

	day1 := time.Date(2024, 3, 1, 23, 59, 58, 0, time.UTC)
	day2 := time.Date(2024, 3, 2, 0, 0, 1, 0, time.UTC)

	if err := sink.WriteLine(day1, "alice", "good night"); err != nil {
		t.Fatalf("WriteLine error: %v", err)
	}
	if err := sink.WriteLine(day2, "bob", "good morning"); err != nil {
		t.Fatalf("WriteLine error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	first, err := os.ReadFile(filepath.Join(dir, "testchan", "2024-03-01.log"))
	if err != nil {
		t.Fatalf("read day-1 file: %v", err)
	}
	if got := string(first); got != "testchan,23:59:58,alice,good night\n" {
		t.Errorf("day-1 contents = %q", got)
	}
	second, err := os.ReadFile(filepath.Join(dir, "testchan", "2024-03-02.log"))
	if err != nil {
		t.Fatalf("read day-2 file: %v", err)
	}
	if !strings.Contains(string(second), "bob,good morning") {
		t.Errorf("day-2 contents = %q", second)
	}
}

func TestDailyLogSinkStripsNewlines(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDailyLogSink(dir, "testchan")
	if err != nil {
		t.Fatalf("NewDailyLogSink error: %v", err)
	}
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := sink.WriteLine(at, "mallory", "line one\r\nline two"); err != nil {
		t.Fatalf("WriteLine error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "testchan", "2024-03-01.log"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if strings.Count(string(data), "\n") != 1 {
		t.Errorf("expected a single line, got %q", data)
	}
}
