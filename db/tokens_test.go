package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/subculture-collective/chatterchain/db"
	"github.com/subculture-collective/chatterchain/testutil"
)

func TestOAuthTokenRoundTrip(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := db.UpsertOAuthToken(ctx, database, "twitch_test", "access123", "refresh456", expiry, "chat:read chat:edit"); err != nil {
		t.Fatalf("UpsertOAuthToken error: %v", err)
	}

	access, refresh, exp, scope, err := db.GetOAuthToken(ctx, database, "twitch_test")
	if err != nil {
		t.Fatalf("GetOAuthToken error: %v", err)
	}
	if access != "access123" || refresh != "refresh456" {
		t.Errorf("tokens = %q/%q, want access123/refresh456", access, refresh)
	}
	if scope != "chat:read chat:edit" {
		t.Errorf("scope = %q", scope)
	}
	if !exp.Equal(expiry) {
		t.Errorf("expiry = %v, want %v", exp, expiry)
	}
}

func TestGetOAuthTokenMissingProvider(t *testing.T) {
	database := testutil.SetupTestDB(t)
	access, refresh, exp, scope, err := db.GetOAuthToken(context.Background(), database, "never_stored")
	if err != nil {
		t.Fatalf("GetOAuthToken error: %v", err)
	}
	if access != "" || refresh != "" || scope != "" || !exp.IsZero() {
		t.Errorf("expected zero values for missing provider, got %q/%q/%v/%q", access, refresh, exp, scope)
	}
}
