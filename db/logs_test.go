package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/subculture-collective/chatterchain/db"
	"github.com/subculture-collective/chatterchain/testutil"
)

func TestChannelGetOrCreate(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()

	cache := make(map[string]int64)
	id1, err := db.GetOrCreateChannel(ctx, database, "testchan_goc", cache)
	if err != nil {
		t.Fatalf("GetOrCreateChannel error: %v", err)
	}
	id2, err := db.GetOrCreateChannel(ctx, database, "testchan_goc", cache)
	if err != nil {
		t.Fatalf("GetOrCreateChannel (repeat) error: %v", err)
	}
	if id1 != id2 {
		t.Errorf("channel id changed between calls: %d vs %d", id1, id2)
	}
	if cache["testchan_goc"] != id1 {
		t.Errorf("cache not populated: %v", cache)
	}
}

func TestInsertAndFetchLogs(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()

	id, err := db.GetOrCreateChannel(ctx, database, "testchan_logs", nil)
	if err != nil {
		t.Fatalf("GetOrCreateChannel error: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Second)
	lines := []db.ChatLine{
		{Chatter: "alice", Message: "hello world", SentAt: base},
		{Chatter: "bob", Message: "hello there", SentAt: base.Add(time.Second)},
		{Chatter: "alice", Message: "goodbye", SentAt: base.Add(2 * time.Second)},
	}
	if err := db.InsertMessages(ctx, database, id, lines); err != nil {
		t.Fatalf("InsertMessages error: %v", err)
	}

	msgs, err := db.FetchLogs(ctx, database, "testchan_logs", db.LogsQuery{})
	if err != nil {
		t.Fatalf("FetchLogs error: %v", err)
	}
	if len(msgs) < 3 {
		t.Fatalf("FetchLogs returned %d messages, want at least 3", len(msgs))
	}
	// Newest first.
	if msgs[0].SentAt.Before(msgs[1].SentAt) {
		t.Errorf("messages not sorted newest first: %v then %v", msgs[0].SentAt, msgs[1].SentAt)
	}

	byChatter, err := db.FetchLogs(ctx, database, "testchan_logs", db.LogsQuery{Chatter: "alice"})
	if err != nil {
		t.Fatalf("FetchLogs(chatter) error: %v", err)
	}
	for _, m := range byChatter {
		if m.Chatter != "alice" {
			t.Errorf("chatter filter leaked message from %q", m.Chatter)
		}
	}

	byPattern, err := db.FetchLogs(ctx, database, "testchan_logs", db.LogsQuery{Pattern: "HELLO"})
	if err != nil {
		t.Fatalf("FetchLogs(pattern) error: %v", err)
	}
	if len(byPattern) < 2 {
		t.Errorf("ILIKE pattern matched %d messages, want at least 2", len(byPattern))
	}
}

func TestMessagesAfterTailsNewRows(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()

	id, err := db.GetOrCreateChannel(ctx, database, "testchan_tail", nil)
	if err != nil {
		t.Fatalf("GetOrCreateChannel error: %v", err)
	}
	mark, err := db.LatestMessageID(ctx, database, "testchan_tail")
	if err != nil {
		t.Fatalf("LatestMessageID error: %v", err)
	}

	now := time.Now().UTC()
	if err := db.InsertMessages(ctx, database, id, []db.ChatLine{
		{Chatter: "carol", Message: "first", SentAt: now},
		{Chatter: "carol", Message: "second", SentAt: now.Add(time.Millisecond)},
	}); err != nil {
		t.Fatalf("InsertMessages error: %v", err)
	}

	msgs, err := db.MessagesAfter(ctx, database, "testchan_tail", mark, 10)
	if err != nil {
		t.Fatalf("MessagesAfter error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("MessagesAfter returned %d rows, want 2", len(msgs))
	}
	if msgs[0].Message != "first" || msgs[1].Message != "second" {
		t.Errorf("tail out of order: %v", msgs)
	}
}
